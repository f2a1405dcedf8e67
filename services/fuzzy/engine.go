package fuzzy

import (
	"errors"
	"sync"

	"github.com/hyperdag/routing-plane/models"
	"go.uber.org/zap"
)

// ErrNoCandidates is returned when Decide is called with no candidates
var ErrNoCandidates = errors.New("no candidates to decide between")

// Scoring weights: capability-headroom, priority-specific term, reliability.
const (
	capabilityWeight  = 0.3
	priorityWeight    = 0.4
	reliabilityWeight = 0.2

	complianceBonus   = 1.1
	compliancePenalty = 0.5

	preferredBonus = 1.05
)

// Feedback multiplier bounds and learning rate. The upper bound caps runaway
// amplification at 3x.
const (
	learningRate  = 0.1
	minMultiplier = 0.25
	maxMultiplier = 3.0
)

// costScale brings per-token costs into unit range for scoring.
const costScale = 1e4

// Decision is the outcome of scoring a candidate set
type Decision struct {
	SelectedProvider string             `json:"selected_provider"`
	Confidence       float64            `json:"confidence"`
	Scores           map[string]float64 `json:"scores"`
}

// Engine scores providers with an adaptive weighted-sum approximation of
// fuzzy inference and adjusts itself from request feedback.
type Engine struct {
	mu sync.RWMutex
	// multipliers holds the learned per-provider, per-priority feedback
	// multiplier, bounded to [minMultiplier, maxMultiplier].
	multipliers map[string]map[models.Priority]float64
	logger      *zap.Logger
}

// NewEngine creates a fuzzy decision engine with no learned history
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		multipliers: make(map[string]map[models.Priority]float64),
		logger:      logger,
	}
}

// SeedHistory initializes feedback multipliers from historical performance
// scores, keyed by provider. The mean historical score maps linearly into the
// multiplier range so a 0.5 average is neutral.
func (e *Engine) SeedHistory(history map[string][]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for providerID, scores := range history {
		if len(scores) == 0 {
			continue
		}
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		m := clampMultiplier(2 * sum / float64(len(scores)))
		priorities := map[models.Priority]float64{
			models.PrioritySpeed:    m,
			models.PriorityCost:     m,
			models.PriorityAccuracy: m,
			models.PriorityBalanced: m,
		}
		e.multipliers[providerID] = priorities
	}
}

// Score computes the desirability of a provider for a request. The result is
// always within [0, 1].
func (e *Engine) Score(node *models.Node, req *models.RouteRequest) float64 {
	capability := node.Capability(req.TaskType)
	headroom := clamp01(1 - node.Metrics.GPUUtilization)

	score := capabilityWeight * capability * headroom
	score += priorityWeight * e.priorityScore(node, req)
	score += reliabilityWeight * node.Reputation * node.Metrics.Availability

	if len(req.Requirements.GeographicConstraints) > 0 {
		if node.MatchesCompliance(req.Requirements.GeographicConstraints) {
			score *= complianceBonus
		} else {
			score *= compliancePenalty
		}
	}

	if req.Preferences != nil {
		for _, id := range req.Preferences.PreferredProviders {
			if id == node.ID {
				score *= preferredBonus
				break
			}
		}
	}

	score *= e.multiplier(node.ID, req.Priority)
	return clamp01(score)
}

// priorityScore mirrors the planner's priority weighting as a [0, 1] score.
func (e *Engine) priorityScore(node *models.Node, req *models.RouteRequest) float64 {
	switch req.Priority {
	case models.PrioritySpeed:
		responsiveness := 1 / (1 + node.Metrics.ResponseTimeMs/1000)
		return responsiveness * clamp01(1-node.Metrics.GPUUtilization)
	case models.PriorityCost:
		s := 1 / (1 + node.Metrics.CostPerToken*costScale)
		if node.Pricing.Model == models.PricingSpot {
			s *= 2 - node.Pricing.DiscountFactor
		}
		return clamp01(s)
	case models.PriorityAccuracy:
		return node.Capability(req.TaskType) * node.Reputation
	default: // balanced
		capability := node.Capability(req.TaskType)
		costScore := 1 / (1 + node.Metrics.CostPerToken*costScale)
		speedScore := 1 / (1 + node.Metrics.ResponseTimeMs/1000)
		reliability := node.Reputation * node.Metrics.Availability
		return 0.3*capability + 0.25*costScore + 0.25*speedScore + 0.2*reliability
	}
}

// Decide scores every candidate and selects the best. Confidence is the
// winner's score scaled by its margin over the runner-up.
func (e *Engine) Decide(candidates []*models.Node, req *models.RouteRequest) (*Decision, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	scores := make(map[string]float64, len(candidates))
	var best, second float64
	var selected string
	for _, node := range candidates {
		s := e.Score(node, req)
		scores[node.ID] = s
		if s > best || selected == "" {
			second = best
			best = s
			selected = node.ID
		} else if s > second {
			second = s
		}
	}

	confidence := best
	if len(candidates) > 1 {
		// Narrow margins over the runner-up reduce confidence.
		confidence = best * (0.5 + 0.5*clamp01(best-second+0.5))
	}

	e.logger.Debug("fuzzy decision",
		zap.String("request_id", req.ID.String()),
		zap.String("selected", selected),
		zap.Float64("score", best),
		zap.Float64("confidence", confidence))

	return &Decision{
		SelectedProvider: selected,
		Confidence:       clamp01(confidence),
		Scores:           scores,
	}, nil
}

// LearnFromFeedback adjusts the provider's multiplier for the request
// priority. Scores above 0.5 raise the multiplier, below 0.5 lower it;
// the update is monotonic in the feedback sign and bounded.
func (e *Engine) LearnFromFeedback(providerID string, priority models.Priority, performanceScore float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	priorities, ok := e.multipliers[providerID]
	if !ok {
		priorities = map[models.Priority]float64{
			models.PrioritySpeed:    1,
			models.PriorityCost:     1,
			models.PriorityAccuracy: 1,
			models.PriorityBalanced: 1,
		}
		e.multipliers[providerID] = priorities
	}

	m := priorities[priority]
	if m == 0 {
		m = 1
	}
	m = clampMultiplier(m + learningRate*(performanceScore-0.5))
	priorities[priority] = m

	e.logger.Debug("feedback applied",
		zap.String("provider_id", providerID),
		zap.String("priority", string(priority)),
		zap.Float64("performance_score", performanceScore),
		zap.Float64("multiplier", m))
}

// Multiplier returns the learned multiplier for a provider and priority,
// 1.0 when nothing has been learned.
func (e *Engine) Multiplier(providerID string, priority models.Priority) float64 {
	return e.multiplier(providerID, priority)
}

func (e *Engine) multiplier(providerID string, priority models.Priority) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if priorities, ok := e.multipliers[providerID]; ok {
		if m, ok := priorities[priority]; ok && m > 0 {
			return m
		}
	}
	return 1
}

func clampMultiplier(m float64) float64 {
	if m < minMultiplier {
		return minMultiplier
	}
	if m > maxMultiplier {
		return maxMultiplier
	}
	return m
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
