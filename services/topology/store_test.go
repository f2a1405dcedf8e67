package topology

import (
	"testing"
	"time"

	"github.com/hyperdag/routing-plane/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(DefaultStoreConfig(), zap.NewNop())
}

func testNode(id string, kind models.NodeKind) *models.Node {
	return &models.Node{
		ID:   id,
		Kind: kind,
		Capabilities: map[models.TaskType]float64{
			models.TaskTypeLLM: 0.8,
		},
		Metrics: models.NodeMetrics{
			Availability: 0.99,
		},
		Reputation: 0.8,
	}
}

func TestRegisterNode(t *testing.T) {
	tests := []struct {
		name    string
		node    *models.Node
		wantErr error
	}{
		{
			name: "valid provider",
			node: testNode("provider-1", models.NodeKindProvider),
		},
		{
			name:    "missing id",
			node:    &models.Node{Kind: models.NodeKindProvider},
			wantErr: ErrInvalidNode,
		},
		{
			name:    "missing kind",
			node:    &models.Node{ID: "x"},
			wantErr: ErrInvalidNode,
		},
		{
			name: "capability out of range",
			node: &models.Node{
				ID:   "x",
				Kind: models.NodeKindProvider,
				Capabilities: map[models.TaskType]float64{
					models.TaskTypeLLM: 1.5,
				},
			},
			wantErr: ErrInvalidNode,
		},
		{
			name: "reputation out of range",
			node: &models.Node{
				ID:         "x",
				Kind:       models.NodeKindProvider,
				Reputation: -0.1,
			},
			wantErr: ErrInvalidNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			err := store.RegisterNode(tt.node)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got, ok := store.Snapshot().Node(tt.node.ID)
			require.True(t, ok)
			assert.Equal(t, models.NodeStatusActive, got.Status)
		})
	}
}

func TestRegisterNodeDuplicate(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RegisterNode(testNode("a", models.NodeKindProvider)))
	assert.ErrorIs(t, store.RegisterNode(testNode("a", models.NodeKindProvider)), ErrNodeAlreadyRegistered)
}

func TestRegisterNodeClonesInput(t *testing.T) {
	store := newTestStore(t)
	node := testNode("a", models.NodeKindProvider)
	require.NoError(t, store.RegisterNode(node))

	node.Capabilities[models.TaskTypeLLM] = 0.1

	got, ok := store.Snapshot().Node("a")
	require.True(t, ok)
	assert.Equal(t, 0.8, got.Capability(models.TaskTypeLLM))
}

func TestAddEdge(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RegisterNode(testNode("gateway", models.NodeKindGateway)))
	require.NoError(t, store.RegisterNode(testNode("cache", models.NodeKindCache)))
	require.NoError(t, store.RegisterNode(testNode("provider", models.NodeKindProvider)))

	require.NoError(t, store.AddEdge(models.Edge{From: "gateway", To: "cache", Weight: 1}))
	require.NoError(t, store.AddEdge(models.Edge{From: "cache", To: "provider", Weight: 1}))

	assert.Len(t, store.ListEdges("gateway"), 1)
	assert.False(t, store.DetectCycles())

	t.Run("rejects unknown endpoint", func(t *testing.T) {
		assert.ErrorIs(t, store.AddEdge(models.Edge{From: "gateway", To: "nope"}), ErrNodeNotFound)
	})

	t.Run("rejects self-loop", func(t *testing.T) {
		assert.ErrorIs(t, store.AddEdge(models.Edge{From: "cache", To: "cache"}), ErrEdgeWouldCreateCycle)
	})

	t.Run("rejects cycle", func(t *testing.T) {
		assert.ErrorIs(t, store.AddEdge(models.Edge{From: "provider", To: "gateway"}), ErrEdgeWouldCreateCycle)
		assert.False(t, store.DetectCycles())
	})
}

func TestDetectCyclesOnCyclicGraph(t *testing.T) {
	// AddEdge prevents cycles, so build a corrupt snapshot directly to prove
	// the auditor catches one.
	nodes := map[string]*models.Node{
		"a": testNode("a", models.NodeKindGateway),
		"b": testNode("b", models.NodeKindProvider),
	}
	edges := map[string][]models.Edge{
		"a": {{From: "a", To: "b"}},
		"b": {{From: "b", To: "a"}},
	}
	snap := newSnapshot(nodes, edges, 1)
	assert.True(t, snap.HasCycle())
}

func TestApplyProbeTransitions(t *testing.T) {
	t.Run("successful probe updates metrics and recovers reputation", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.RegisterNode(testNode("p", models.NodeKindProvider)))

		status, err := store.ApplyProbe(models.ProbeResult{
			NodeID:         "p",
			Success:        true,
			GPUUtilization: 0.5,
			ResponseTimeMs: 120,
			Availability:   0.99,
			CheckedAt:      time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, models.NodeStatusActive, status)

		node, _ := store.Snapshot().Node("p")
		assert.Equal(t, 0.5, node.Metrics.GPUUtilization)
		assert.Equal(t, 120.0, node.Metrics.ResponseTimeMs)
		assert.InDelta(t, 0.85, node.Reputation, 1e-9)
	})

	t.Run("high utilization degrades", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.RegisterNode(testNode("p", models.NodeKindProvider)))

		status, err := store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: true, GPUUtilization: 0.95})
		require.NoError(t, err)
		assert.Equal(t, models.NodeStatusDegraded, status)
	})

	t.Run("utilization back to normal reactivates", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.RegisterNode(testNode("p", models.NodeKindProvider)))

		_, err := store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: true, GPUUtilization: 0.95})
		require.NoError(t, err)
		status, err := store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: true, GPUUtilization: 0.4})
		require.NoError(t, err)
		assert.Equal(t, models.NodeStatusActive, status)
	})

	t.Run("failed probe decays reputation and counts up", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.RegisterNode(testNode("p", models.NodeKindProvider)))

		status, err := store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: false})
		require.NoError(t, err)
		assert.Equal(t, models.NodeStatusActive, status)

		node, _ := store.Snapshot().Node("p")
		assert.Equal(t, 1, node.FailureCount)
		assert.InDelta(t, 0.7, node.Reputation, 1e-9)
	})

	t.Run("successful probe decrements failure count with floor zero", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.RegisterNode(testNode("p", models.NodeKindProvider)))

		_, err := store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: false})
		require.NoError(t, err)
		_, err = store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: true})
		require.NoError(t, err)
		_, err = store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: true})
		require.NoError(t, err)

		node, _ := store.Snapshot().Node("p")
		assert.Equal(t, 0, node.FailureCount)
	})

	t.Run("unknown node", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.ApplyProbe(models.ProbeResult{NodeID: "nope", Success: true})
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})
}

func TestFailureThresholdPrunesInboundEdges(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RegisterNode(testNode("gateway", models.NodeKindGateway)))
	require.NoError(t, store.RegisterNode(testNode("cache", models.NodeKindCache)))
	require.NoError(t, store.RegisterNode(testNode("p", models.NodeKindProvider)))
	require.NoError(t, store.AddEdge(models.Edge{From: "gateway", To: "p", Weight: 1}))
	require.NoError(t, store.AddEdge(models.Edge{From: "cache", To: "p", Weight: 1}))

	var status models.NodeStatus
	for i := 0; i < DefaultMaxFailureCount; i++ {
		var err error
		status, err = store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: false})
		require.NoError(t, err)
	}
	assert.Equal(t, models.NodeStatusFailed, status)

	// All inbound edges gone from every adjacency list, node metadata kept.
	snap := store.Snapshot()
	assert.Empty(t, snap.Edges("gateway"))
	assert.Empty(t, snap.Edges("cache"))
	node, ok := snap.Node("p")
	require.True(t, ok)
	assert.Equal(t, models.NodeStatusFailed, node.Status)
	assert.False(t, snap.HasCycle())
}

func TestReinstate(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RegisterNode(testNode("gateway", models.NodeKindGateway)))
	require.NoError(t, store.RegisterNode(testNode("p", models.NodeKindProvider)))
	require.NoError(t, store.AddEdge(models.Edge{From: "gateway", To: "p", Weight: 1}))

	for i := 0; i < DefaultMaxFailureCount; i++ {
		_, err := store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: false})
		require.NoError(t, err)
	}
	require.Empty(t, store.Snapshot().Edges("gateway"))

	require.NoError(t, store.Reinstate("p"))

	node, _ := store.Snapshot().Node("p")
	assert.Equal(t, models.NodeStatusDegraded, node.Status)
	assert.Equal(t, 0, node.FailureCount)
	assert.Equal(t, 0.5, node.Reputation)
	assert.Len(t, store.Snapshot().Edges("gateway"), 1)
	assert.False(t, store.DetectCycles())

	t.Run("no-op on healthy node", func(t *testing.T) {
		require.NoError(t, store.Reinstate("gateway"))
		node, _ := store.Snapshot().Node("gateway")
		assert.Equal(t, models.NodeStatusActive, node.Status)
	})
}

func TestReinstateDropsEdgesThatWouldCreateCycle(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RegisterNode(testNode("a", models.NodeKindGateway)))
	require.NoError(t, store.RegisterNode(testNode("b", models.NodeKindProvider)))
	require.NoError(t, store.AddEdge(models.Edge{From: "a", To: "b", Weight: 1}))

	for i := 0; i < DefaultMaxFailureCount; i++ {
		_, err := store.ApplyProbe(models.ProbeResult{NodeID: "b", Success: false})
		require.NoError(t, err)
	}
	require.Empty(t, store.Snapshot().Edges("a"))

	// With a->b pruned, the reverse edge is legal.
	require.NoError(t, store.AddEdge(models.Edge{From: "b", To: "a", Weight: 1}))

	require.NoError(t, store.Reinstate("b"))

	// Restoring a->b would close a cycle with b->a, so it stays dropped.
	snap := store.Snapshot()
	assert.Empty(t, snap.Edges("a"))
	assert.Len(t, snap.Edges("b"), 1)
	assert.False(t, store.DetectCycles())

	node, ok := snap.Node("b")
	require.True(t, ok)
	assert.Equal(t, models.NodeStatusDegraded, node.Status)
}

func TestSnapshotIsolation(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RegisterNode(testNode("gateway", models.NodeKindGateway)))
	require.NoError(t, store.RegisterNode(testNode("p", models.NodeKindProvider)))
	require.NoError(t, store.AddEdge(models.Edge{From: "gateway", To: "p", Weight: 1}))

	before := store.Snapshot()
	beforeVersion := before.Version()

	for i := 0; i < DefaultMaxFailureCount; i++ {
		_, err := store.ApplyProbe(models.ProbeResult{NodeID: "p", Success: false})
		require.NoError(t, err)
	}

	// The old snapshot still sees the pre-failure world.
	node, _ := before.Node("p")
	assert.Equal(t, models.NodeStatusActive, node.Status)
	assert.Len(t, before.Edges("gateway"), 1)
	assert.Equal(t, beforeVersion, before.Version())

	after := store.Snapshot()
	assert.Greater(t, after.Version(), beforeVersion)
	assert.Empty(t, after.Edges("gateway"))
}
