package health

import (
	"context"
	"sync"
	"time"

	"github.com/hyperdag/routing-plane/models"
	"github.com/hyperdag/routing-plane/services/topology"
	"go.uber.org/zap"
)

// Prober checks the health of a single node. Implementations talk to the
// actual provider endpoints; tests use deterministic doubles.
type Prober interface {
	Probe(ctx context.Context, node *models.Node) models.ProbeResult
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, node *models.Node) models.ProbeResult

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, node *models.Node) models.ProbeResult {
	return f(ctx, node)
}

// MonitorConfig holds configuration for the health monitor
type MonitorConfig struct {
	// Interval between probe sweeps
	Interval time.Duration

	// ProbeTimeout bounds a single node probe
	ProbeTimeout time.Duration

	// RecoveryBackoff is how long a failed node waits before it becomes
	// eligible for a probation probe
	RecoveryBackoff time.Duration
}

// DefaultMonitorConfig returns a sensible default configuration
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:        30 * time.Second,
		ProbeTimeout:    10 * time.Second,
		RecoveryBackoff: 150 * time.Second,
	}
}

// Monitor periodically probes every node and folds the results into the
// topology store. Probes within one sweep run concurrently with per-node
// isolation: one slow or failing probe never blocks the others.
type Monitor struct {
	store  *topology.Store
	prober Prober
	config MonitorConfig
	logger *zap.Logger

	// lastFailedProbe tracks when each failed node last failed a probe, to
	// gate probation eligibility.
	mu              sync.Mutex
	lastFailedProbe map[string]time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a health monitor over the given store and prober
func NewMonitor(store *topology.Store, prober Prober, config MonitorConfig, logger *zap.Logger) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultMonitorConfig().Interval
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = DefaultMonitorConfig().ProbeTimeout
	}
	if config.RecoveryBackoff <= 0 {
		config.RecoveryBackoff = 5 * config.Interval
	}
	return &Monitor{
		store:           store,
		prober:          prober,
		config:          config,
		logger:          logger,
		lastFailedProbe: make(map[string]time.Time),
	}
}

// Start launches the probe loop. It returns immediately; call Stop to halt.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep(ctx)
			}
		}
	}()

	m.logger.Info("health monitor started",
		zap.Duration("interval", m.config.Interval),
		zap.Duration("recovery_backoff", m.config.RecoveryBackoff))
}

// Stop halts the probe loop and waits for the current sweep to finish.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

// Sweep probes every node once, concurrently, and applies the results.
// Exported so tests and the CLI can drive probes without the timer.
func (m *Monitor) Sweep(ctx context.Context) {
	snap := m.store.Snapshot()
	nodes := snap.Nodes()

	var wg sync.WaitGroup
	for _, node := range nodes {
		if node.Status == models.NodeStatusFailed && !m.probationEligible(node.ID) {
			continue
		}
		wg.Add(1)
		go func(node *models.Node) {
			defer wg.Done()
			m.probeNode(ctx, node)
		}(node)
	}
	wg.Wait()
}

// probeNode runs one probe and applies its result, handling the probation
// path for failed nodes.
func (m *Monitor) probeNode(ctx context.Context, node *models.Node) {
	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	result := m.prober.Probe(probeCtx, node)
	result.NodeID = node.ID
	if result.CheckedAt.IsZero() {
		result.CheckedAt = time.Now()
	}

	wasFailed := node.Status == models.NodeStatusFailed

	status, err := m.store.ApplyProbe(result)
	if err != nil {
		m.logger.Warn("probe result not applied",
			zap.String("node_id", node.ID),
			zap.Error(err))
		return
	}

	if !result.Success {
		m.markFailedProbe(node.ID, result.CheckedAt)
		m.logger.Debug("probe failed",
			zap.String("node_id", node.ID),
			zap.String("status", string(status)))
		return
	}

	if wasFailed {
		// Probation probe succeeded: reinstate with reset reputation.
		if err := m.store.Reinstate(node.ID); err != nil {
			m.logger.Warn("reinstatement failed",
				zap.String("node_id", node.ID),
				zap.Error(err))
			return
		}
		m.clearFailedProbe(node.ID)
		m.logger.Info("node passed probation probe",
			zap.String("node_id", node.ID))
		return
	}

	m.clearFailedProbe(node.ID)
	m.logger.Debug("probe succeeded",
		zap.String("node_id", node.ID),
		zap.String("status", string(status)),
		zap.Float64("gpu_utilization", result.GPUUtilization))
}

// probationEligible reports whether a failed node has waited out its
// recovery backoff and may receive one probation probe.
func (m *Monitor) probationEligible(nodeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastFailedProbe[nodeID]
	if !ok {
		return true
	}
	return time.Since(last) >= m.config.RecoveryBackoff
}

func (m *Monitor) markFailedProbe(nodeID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFailedProbe[nodeID] = at
}

func (m *Monitor) clearFailedProbe(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastFailedProbe, nodeID)
}
