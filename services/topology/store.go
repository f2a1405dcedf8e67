package topology

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hyperdag/routing-plane/models"
	"go.uber.org/zap"
)

var (
	// ErrNodeNotFound is returned when an operation references an unknown node
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeAlreadyRegistered is returned when registering a duplicate node ID
	ErrNodeAlreadyRegistered = errors.New("node already registered")

	// ErrEdgeWouldCreateCycle is returned when an edge would break acyclicity
	ErrEdgeWouldCreateCycle = errors.New("edge would create a cycle")

	// ErrInvalidNode is returned when a node fails validation
	ErrInvalidNode = errors.New("invalid node")
)

const (
	// DefaultMaxFailureCount is the consecutive-failure threshold after which
	// a node transitions to failed.
	DefaultMaxFailureCount = 3

	// reputationDecayStep is subtracted from reputation on a failed probe.
	reputationDecayStep = 0.1

	// reputationRecoverStep is added to reputation on a successful probe.
	reputationRecoverStep = 0.05

	// degradedUtilizationThreshold marks a node degraded when exceeded.
	degradedUtilizationThreshold = 0.9
)

// StoreConfig holds configuration for the topology store
type StoreConfig struct {
	// MaxFailureCount is the consecutive probe failures before a node fails
	MaxFailureCount int
}

// DefaultStoreConfig returns a sensible default configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{MaxFailureCount: DefaultMaxFailureCount}
}

// Store holds the provider topology. All reads go through immutable snapshots;
// mutations clone the affected structures under the mutex and swap the
// snapshot pointer, so planners never observe a partially-updated graph.
type Store struct {
	mu     sync.Mutex
	snap   atomic.Pointer[Snapshot]
	config StoreConfig
	logger *zap.Logger

	// pruned remembers the inbound edges removed when a node failed, keyed by
	// the failed node ID, so reinstatement can restore them.
	pruned map[string][]models.Edge
}

// NewStore creates an empty topology store
func NewStore(config StoreConfig, logger *zap.Logger) *Store {
	if config.MaxFailureCount <= 0 {
		config.MaxFailureCount = DefaultMaxFailureCount
	}
	s := &Store{
		config: config,
		logger: logger,
		pruned: make(map[string][]models.Edge),
	}
	s.snap.Store(newSnapshot(nil, nil, 0))
	return s
}

// Snapshot returns the current immutable view of the topology. Callers must
// treat the returned graph as read-only.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// RegisterNode adds a node to the topology. The node is cloned; later changes
// to the caller's copy do not affect the store.
func (s *Store) RegisterNode(node *models.Node) error {
	if err := validateNode(node); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap.Load()
	if _, exists := snap.nodes[node.ID]; exists {
		return fmt.Errorf("%w: %s", ErrNodeAlreadyRegistered, node.ID)
	}

	n := node.Clone()
	if n.Status == "" {
		n.Status = models.NodeStatusActive
	}

	next := snap.cloneNodes()
	next.nodes[n.ID] = n
	s.snap.Store(next)

	s.logger.Info("node registered",
		zap.String("node_id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.String("region", n.Geo.Region))
	return nil
}

// AddEdge adds a directed edge. Edges that would create a cycle, self-loops,
// and edges between unregistered nodes are rejected.
func (s *Store) AddEdge(edge models.Edge) error {
	if edge.From == edge.To {
		return fmt.Errorf("%w: self-loop %s", ErrEdgeWouldCreateCycle, edge.From)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap.Load()
	if _, ok := snap.nodes[edge.From]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, edge.From)
	}
	if _, ok := snap.nodes[edge.To]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, edge.To)
	}
	if snap.reachable(edge.To, edge.From) {
		return fmt.Errorf("%w: %s -> %s", ErrEdgeWouldCreateCycle, edge.From, edge.To)
	}

	next := snap.cloneEdges()
	next.edges[edge.From] = append(next.edges[edge.From], edge)
	s.snap.Store(next)
	return nil
}

// ListEdges returns the outgoing edges of a node in the current snapshot.
func (s *Store) ListEdges(from string) []models.Edge {
	return s.Snapshot().Edges(from)
}

// DetectCycles reports whether the current topology contains a cycle.
// AddEdge already rejects cycle-forming edges, so a true result indicates
// corruption.
func (s *Store) DetectCycles() bool {
	return s.Snapshot().HasCycle()
}

// ApplyProbe folds a health probe result into the node's state and returns
// the node's status after the transition. Crossing the failure threshold
// prunes all inbound edges to the node across the adjacency structure.
func (s *Store) ApplyProbe(result models.ProbeResult) (models.NodeStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap.Load()
	prev, ok := snap.nodes[result.NodeID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNodeNotFound, result.NodeID)
	}

	n := prev.Clone()
	n.LastHealthCheck = result.CheckedAt

	if result.Success {
		n.Metrics.GPUUtilization = result.GPUUtilization
		n.Metrics.ResponseTimeMs = result.ResponseTimeMs
		n.Metrics.Availability = result.Availability
		n.Metrics.ErrorRate = result.ErrorRate
		if n.FailureCount > 0 {
			n.FailureCount--
		}
		n.Reputation = clamp01(n.Reputation + reputationRecoverStep)
		if n.Status != models.NodeStatusFailed {
			if result.GPUUtilization > degradedUtilizationThreshold {
				n.Status = models.NodeStatusDegraded
			} else {
				n.Status = models.NodeStatusActive
			}
		}
	} else {
		n.FailureCount++
		n.Reputation = clamp01(n.Reputation - reputationDecayStep)
	}

	next := snap.cloneNodes()
	next.nodes[n.ID] = n

	if !result.Success && n.FailureCount >= s.config.MaxFailureCount && n.Status != models.NodeStatusFailed {
		n.Status = models.NodeStatusFailed
		next = pruneInbound(next, n.ID, s.pruned)
		s.logger.Info("topology changed: node failed, inbound edges pruned",
			zap.String("node_id", n.ID),
			zap.Int("failure_count", n.FailureCount),
			zap.Int("pruned_edges", len(s.pruned[n.ID])))
	}

	s.snap.Store(next)
	return n.Status, nil
}

// Reinstate returns a failed node to service on probation: status degraded,
// reputation reset to 0.5, failure count cleared, and the inbound edges that
// were pruned at failure time restored. Edges added while the node was failed
// may have made a pruned edge cycle-forming; such edges are dropped, not
// restored.
func (s *Store) Reinstate(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap.Load()
	prev, ok := snap.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if prev.Status != models.NodeStatusFailed {
		return nil
	}

	n := prev.Clone()
	n.Status = models.NodeStatusDegraded
	n.FailureCount = 0
	n.Reputation = 0.5

	next := snap.cloneNodes()
	next.nodes[n.ID] = n
	next = next.cloneEdges()
	for _, e := range s.pruned[nodeID] {
		if next.reachable(e.To, e.From) {
			s.logger.Warn("pruned edge not restored: would create a cycle",
				zap.String("from", e.From),
				zap.String("to", e.To))
			continue
		}
		next.edges[e.From] = append(next.edges[e.From], e)
	}
	delete(s.pruned, nodeID)
	s.snap.Store(next)

	s.logger.Info("topology changed: node reinstated on probation",
		zap.String("node_id", nodeID))
	return nil
}

// pruneInbound removes every edge targeting nodeID, recording the removed
// edges for later reinstatement. Node metadata is kept (soft removal).
func pruneInbound(snap *Snapshot, nodeID string, pruned map[string][]models.Edge) *Snapshot {
	next := snap.cloneEdges()
	var removed []models.Edge
	for from, edges := range next.edges {
		kept := edges[:0:0]
		for _, e := range edges {
			if e.To == nodeID {
				removed = append(removed, e)
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(next.edges, from)
		} else {
			next.edges[from] = kept
		}
	}
	if len(removed) > 0 {
		pruned[nodeID] = removed
	}
	return next
}

func validateNode(node *models.Node) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidNode)
	}
	if node.Kind == "" {
		return fmt.Errorf("%w: %s: missing kind", ErrInvalidNode, node.ID)
	}
	for task, score := range node.Capabilities {
		if score < 0 || score > 1 {
			return fmt.Errorf("%w: %s: capability %s out of range", ErrInvalidNode, node.ID, task)
		}
	}
	if node.Reputation < 0 || node.Reputation > 1 {
		return fmt.Errorf("%w: %s: reputation out of range", ErrInvalidNode, node.ID)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
