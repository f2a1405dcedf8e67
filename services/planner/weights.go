package planner

import (
	"github.com/hyperdag/routing-plane/models"
)

// epsilon guards divisions by near-zero capability or reputation.
const epsilon = 0.01

// BalancedWeights holds the blend used for the balanced priority.
type BalancedWeights struct {
	Capability  float64
	Cost        float64
	Speed       float64
	Reliability float64
}

// DefaultBalancedWeights returns the standard 0.3/0.25/0.25/0.2 split.
func DefaultBalancedWeights() BalancedWeights {
	return BalancedWeights{
		Capability:  0.3,
		Cost:        0.25,
		Speed:       0.25,
		Reliability: 0.2,
	}
}

// dynamicWeight computes the effective traversal weight of an edge for one
// request. The static edge weight is inflated by properties of the edge's
// destination node according to the request priority, then multiplied by
// utilization and failure-history penalties.
func (p *Planner) dynamicWeight(edge models.Edge, dest *models.Node, req *models.RouteRequest) float64 {
	base := edge.Weight
	if base <= 0 {
		base = 1
	}

	var w float64
	switch req.Priority {
	case models.PrioritySpeed:
		w = base * (1 + dest.Metrics.ResponseTimeMs/1000) * (1 + dest.Metrics.GPUUtilization)
	case models.PriorityCost:
		w = base * (1 + dest.Metrics.CostPerToken*costScale)
		if dest.Pricing.Model == models.PricingSpot {
			w *= dest.Pricing.DiscountFactor
		}
	case models.PriorityAccuracy:
		cap := dest.Capability(req.TaskType)
		w = base * (1 / (cap + epsilon)) * (1 / (dest.Reputation + epsilon))
	default: // balanced
		bw := p.balanced
		capTerm := 1 - dest.Capability(req.TaskType)
		costTerm := normalize(dest.Metrics.CostPerToken * costScale)
		speedTerm := normalize(dest.Metrics.ResponseTimeMs / 1000)
		relTerm := 1 - dest.Reputation*dest.Metrics.Availability
		w = base * (bw.Capability*capTerm + bw.Cost*costTerm + bw.Speed*speedTerm + bw.Reliability*relTerm + epsilon)
	}

	// Penalties applied to every priority.
	w *= 1 + dest.Metrics.GPUUtilization
	w *= 1 + failurePenalty*float64(dest.FailureCount)
	return w
}

// costScale brings per-token costs (order 1e-5) into the same range as the
// other weight terms.
const costScale = 1e4

// failurePenalty is the per-consecutive-failure multiplier increment.
const failurePenalty = 0.5

// normalize squashes an unbounded non-negative term into [0, 1).
func normalize(v float64) float64 {
	if v < 0 {
		v = 0
	}
	return v / (1 + v)
}
