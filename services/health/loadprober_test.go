package health

import (
	"context"
	"testing"

	"github.com/hyperdag/routing-plane/models"
	"github.com/hyperdag/routing-plane/services/providers"
	"github.com/stretchr/testify/assert"
)

func TestLoadAwareProberOverridesUtilization(t *testing.T) {
	base := ProberFunc(func(ctx context.Context, node *models.Node) models.ProbeResult {
		return models.ProbeResult{Success: true, GPUUtilization: 0.2}
	})
	monitor := providers.NewMockExecutor()
	monitor.SetLoad("p1", 0.95)

	prober := NewLoadAwareProber(base, monitor)

	result := prober.Probe(context.Background(), &models.Node{ID: "p1"})
	assert.Equal(t, 0.95, result.GPUUtilization)

	// Unknown nodes keep the probe's own reading.
	result = prober.Probe(context.Background(), &models.Node{ID: "p2"})
	assert.Equal(t, 0.2, result.GPUUtilization)
}

func TestLoadAwareProberSkipsFailedProbes(t *testing.T) {
	base := ProberFunc(func(ctx context.Context, node *models.Node) models.ProbeResult {
		return models.ProbeResult{Success: false, GPUUtilization: 0.1}
	})
	monitor := providers.NewMockExecutor()
	monitor.SetLoad("p1", 0.95)

	result := NewLoadAwareProber(base, monitor).Probe(context.Background(), &models.Node{ID: "p1"})
	assert.False(t, result.Success)
	assert.Equal(t, 0.1, result.GPUUtilization)
}
