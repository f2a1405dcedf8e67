package planner

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/hyperdag/routing-plane/models"
	"github.com/hyperdag/routing-plane/services"
	"github.com/hyperdag/routing-plane/services/topology"
	"go.uber.org/zap"
)

// MinCapability is the minimum task capability a provider needs to qualify.
const MinCapability = 0.5

// MaxFallbackPaths bounds the fallback paths attached to a route result.
const MaxFallbackPaths = 3

// estimatedTokens is the nominal request size used for cost estimates.
const estimatedTokens = 1000

// Scorer ranks a candidate provider for a request. Implemented by the fuzzy
// decision engine; injected so the planner stays testable in isolation.
type Scorer interface {
	Score(node *models.Node, req *models.RouteRequest) float64
}

// Candidate is one planned path from the gateway to a qualifying provider
type Candidate struct {
	Path               []string // node IDs, gateway first, provider last
	Provider           *models.Node
	PathWeight         float64 // accumulated dynamic weight
	EstimatedCost      float64
	EstimatedLatencyMs float64
	FuzzyScore         float64
}

// Planner computes candidate routes over a topology snapshot
type Planner struct {
	scorer   Scorer
	balanced BalancedWeights
	logger   *zap.Logger
}

// NewPlanner creates a planner with the given scorer
func NewPlanner(scorer Scorer, logger *zap.Logger) *Planner {
	return &Planner{
		scorer:   scorer,
		balanced: DefaultBalancedWeights(),
		logger:   logger,
	}
}

// SetBalancedWeights overrides the balanced-priority blend.
func (p *Planner) SetBalancedWeights(w BalancedWeights) {
	p.balanced = w
}

// Plan computes candidate paths from the gateway to every qualifying
// provider, ranked by fuzzy desirability. The first candidate is the primary
// route; the rest are fallbacks in order.
func (p *Planner) Plan(snap *topology.Snapshot, gatewayID string, req *models.RouteRequest) ([]*Candidate, error) {
	if _, ok := snap.Node(gatewayID); !ok {
		return nil, fmt.Errorf("%w: %s", topology.ErrNodeNotFound, gatewayID)
	}

	qualified := p.filterCandidates(snap, req)
	if len(qualified) == 0 {
		return nil, services.NewNoCandidatesError(
			fmt.Sprintf("no provider qualifies for task %q with the given constraints", req.TaskType))
	}

	dist, prev := p.shortestPaths(snap, gatewayID, req)

	candidates := make([]*Candidate, 0, len(qualified))
	for _, node := range qualified {
		d, reachable := dist[node.ID]
		if !reachable {
			continue
		}
		path := reconstructPath(prev, gatewayID, node.ID)
		candidates = append(candidates, &Candidate{
			Path:               path,
			Provider:           node,
			PathWeight:         d,
			EstimatedCost:      node.Metrics.CostPerToken * estimatedTokens,
			EstimatedLatencyMs: pathLatency(snap, path) + node.Metrics.ResponseTimeMs,
			FuzzyScore:         p.scorer.Score(node, req),
		})
	}
	if len(candidates) == 0 {
		return nil, services.NewNoValidPathError(gatewayID)
	}

	// Rank by fuzzy desirability, not raw path weight. Exact ties prefer the
	// lower estimated latency.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FuzzyScore != candidates[j].FuzzyScore {
			return candidates[i].FuzzyScore > candidates[j].FuzzyScore
		}
		return candidates[i].EstimatedLatencyMs < candidates[j].EstimatedLatencyMs
	})

	p.logger.Debug("plan computed",
		zap.String("request_id", req.ID.String()),
		zap.String("task_type", string(req.TaskType)),
		zap.Int("qualified", len(qualified)),
		zap.Int("reachable", len(candidates)),
		zap.String("primary", candidates[0].Provider.ID))

	return candidates, nil
}

// filterCandidates applies the hard qualification checks. Any failing check
// excludes the node entirely.
func (p *Planner) filterCandidates(snap *topology.Snapshot, req *models.RouteRequest) []*models.Node {
	var out []*models.Node
	for _, node := range snap.Nodes() {
		if node.Kind != models.NodeKindProvider {
			continue
		}
		if node.Status == models.NodeStatusFailed {
			continue
		}
		cap := node.Capability(req.TaskType)
		if cap < MinCapability {
			continue
		}
		if req.Requirements.MinAccuracy > 0 && cap < req.Requirements.MinAccuracy {
			continue
		}
		if !node.MatchesCompliance(req.Requirements.GeographicConstraints) {
			continue
		}
		if req.Requirements.MaxCost > 0 && node.Metrics.CostPerToken > req.Requirements.MaxCost {
			continue
		}
		if req.Requirements.MaxLatencyMs > 0 && node.Metrics.ResponseTimeMs > req.Requirements.MaxLatencyMs {
			continue
		}
		if req.Preferences.Avoided(node.ID) {
			continue
		}
		out = append(out, node)
	}
	return out
}

// shortestPaths runs Dijkstra from the gateway using per-request dynamic
// edge weights. Edges into failed nodes are never relaxed.
func (p *Planner) shortestPaths(snap *topology.Snapshot, gatewayID string, req *models.RouteRequest) (map[string]float64, map[string]string) {
	dist := map[string]float64{gatewayID: 0}
	prev := make(map[string]string)
	visited := make(map[string]bool)

	pq := &priorityQueue{{id: gatewayID, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true

		for _, edge := range snap.Edges(cur.id) {
			dest, ok := snap.Node(edge.To)
			if !ok || dest.Status == models.NodeStatusFailed {
				continue
			}
			alt := cur.dist + p.dynamicWeight(edge, dest, req)
			if d, seen := dist[edge.To]; !seen || alt < d {
				dist[edge.To] = alt
				prev[edge.To] = cur.id
				heap.Push(pq, &pqItem{id: edge.To, dist: alt})
			}
		}
	}

	delete(dist, gatewayID) // the gateway itself is not a destination
	return dist, prev
}

// reconstructPath walks the predecessor map back from target to source.
func reconstructPath(prev map[string]string, source, target string) []string {
	var rev []string
	for cur := target; ; {
		rev = append(rev, cur)
		if cur == source {
			break
		}
		cur = prev[cur]
	}
	path := make([]string, len(rev))
	for i, id := range rev {
		path[len(rev)-1-i] = id
	}
	return path
}

// pathLatency sums the edge latencies along a path.
func pathLatency(snap *topology.Snapshot, path []string) float64 {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		for _, e := range snap.Edges(path[i]) {
			if e.To == path[i+1] {
				total += e.LatencyMs
				break
			}
		}
	}
	return total
}

// BuildRouteResult assembles a RouteResult from ranked candidates: the first
// candidate is the chosen route, the next MaxFallbackPaths become fallbacks.
func BuildRouteResult(candidates []*Candidate, reasoning string) *models.RouteResult {
	primary := candidates[0]
	result := &models.RouteResult{
		Path:               primary.Path,
		ProviderID:         primary.Provider.ID,
		EstimatedCost:      primary.EstimatedCost,
		EstimatedLatencyMs: primary.EstimatedLatencyMs,
		Confidence:         primary.FuzzyScore,
		Reasoning:          reasoning,
	}
	for _, c := range candidates[1:] {
		if len(result.FallbackPaths) >= MaxFallbackPaths {
			break
		}
		result.FallbackPaths = append(result.FallbackPaths, c.Path)
	}
	return result
}

// pqItem is one entry in the Dijkstra priority queue
type pqItem struct {
	id   string
	dist float64
}

// priorityQueue implements heap.Interface over pqItems ordered by distance
type priorityQueue []*pqItem

func (q priorityQueue) Len() int            { return len(q) }
func (q priorityQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q priorityQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x interface{}) { *q = append(*q, x.(*pqItem)) }
func (q *priorityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
