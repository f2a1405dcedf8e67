package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperdag/routing-plane/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gateway", cfg.Topology.GatewayID)
	assert.Equal(t, 3, cfg.Topology.MaxFailureCount)
	assert.Equal(t, 30*time.Second, cfg.Health.Interval)
	assert.Equal(t, 0.7, cfg.Consensus.Threshold)
	assert.Equal(t, 2, cfg.Consensus.MinProviders)
	assert.Equal(t, "memory", cfg.Performance.Driver)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GATEWAY_ID", "edge-1")
	t.Setenv("MAX_FAILURE_COUNT", "5")
	t.Setenv("HEALTH_INTERVAL", "10s")
	t.Setenv("CONSENSUS_THRESHOLD", "0.8")
	t.Setenv("PERFSTORE_DRIVER", "sqlite")
	t.Setenv("PERFSTORE_PATH", "/tmp/perf.db")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "edge-1", cfg.Topology.GatewayID)
	assert.Equal(t, 5, cfg.Topology.MaxFailureCount)
	assert.Equal(t, 10*time.Second, cfg.Health.Interval)
	assert.Equal(t, 0.8, cfg.Consensus.Threshold)
	assert.Equal(t, "sqlite", cfg.Performance.Driver)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty gateway", func(c *Config) { c.Topology.GatewayID = "" }},
		{"negative failure count", func(c *Config) { c.Topology.MaxFailureCount = 0 }},
		{"zero interval", func(c *Config) { c.Health.Interval = 0 }},
		{"threshold too low", func(c *Config) { c.Consensus.Threshold = 0.2 }},
		{"threshold too high", func(c *Config) { c.Consensus.Threshold = 1.1 }},
		{"min providers too low", func(c *Config) { c.Consensus.MinProviders = 1 }},
		{"min providers too high", func(c *Config) { c.Consensus.MinProviders = 6 }},
		{"unknown driver", func(c *Config) { c.Performance.Driver = "redis" }},
		{"sqlite without path", func(c *Config) {
			c.Performance.Driver = "sqlite"
			c.Performance.Path = ""
		}},
		{"empty log level", func(c *Config) { c.Observability.LogLevel = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

const seedYAML = `
nodes:
  - id: gateway
    kind: gateway
  - id: provider-a
    kind: provider
    capabilities:
      llm: 0.9
      code: 0.7
    region: eu-west
    compliance: [gdpr]
    cost_per_token: 0.00002
    response_ms: 180
    pricing: spot
    discount: 0.7
    reputation: 0.85
edges:
  - from: gateway
    to: provider-a
    weight: 1.5
    latency_ms: 12
`

func TestLoadTopology(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	seed, err := LoadTopology(path)
	require.NoError(t, err)
	require.Len(t, seed.Nodes, 2)
	require.Len(t, seed.Edges, 1)

	node := seed.Nodes[1].Node()
	assert.Equal(t, "provider-a", node.ID)
	assert.Equal(t, models.NodeKindProvider, node.Kind)
	assert.Equal(t, 0.9, node.Capability(models.TaskTypeLLM))
	assert.Equal(t, []string{"gdpr"}, node.Geo.ComplianceTags)
	assert.Equal(t, models.PricingSpot, node.Pricing.Model)
	assert.Equal(t, 0.7, node.Pricing.DiscountFactor)
	assert.Equal(t, 0.85, node.Reputation)
	assert.Equal(t, models.NodeStatusActive, node.Status)

	gw := seed.Nodes[0].Node()
	assert.Equal(t, 1.0, gw.Metrics.Availability) // defaulted
	assert.Equal(t, 0.8, gw.Reputation)           // defaulted

	edge := seed.Edges[0].Edge()
	assert.Equal(t, "gateway", edge.From)
	assert.Equal(t, 1.5, edge.Weight)
	assert.Equal(t, 12.0, edge.LatencyMs)
	assert.Equal(t, 1.0, edge.Reliability) // defaulted
}

func TestLoadTopologyErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTopology(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("nodes: {not a list"), 0o644))
		_, err := LoadTopology(path)
		assert.Error(t, err)
	})

	t.Run("empty topology", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("nodes: []"), 0o644))
		_, err := LoadTopology(path)
		assert.Error(t, err)
	})
}
