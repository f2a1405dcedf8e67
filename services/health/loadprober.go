package health

import (
	"context"

	"github.com/hyperdag/routing-plane/models"
	"github.com/hyperdag/routing-plane/services/providers"
)

// NewLoadAwareProber wraps a prober so that GPU utilization is taken from a
// load monitor whenever the monitor reports the probed node. Probes that
// already failed pass through unchanged.
func NewLoadAwareProber(base Prober, loads providers.LoadMonitor) Prober {
	return ProberFunc(func(ctx context.Context, node *models.Node) models.ProbeResult {
		result := base.Probe(ctx, node)
		if !result.Success {
			return result
		}
		current, err := loads.GetCurrentLoad(ctx)
		if err != nil {
			return result
		}
		if load, ok := current[node.ID]; ok {
			result.GPUUtilization = load
		}
		return result
	})
}
