package consensus

import (
	"context"
	"errors"
	"time"

	"github.com/hyperdag/routing-plane/models"
	"github.com/hyperdag/routing-plane/services/providers"
	"go.uber.org/zap"
)

// MaxParticipants caps how many providers take part in one consensus round.
const MaxParticipants = 3

// ErrNoParticipants is returned when no providers are available to query
var ErrNoParticipants = errors.New("no participants for consensus")

// Options controls one consensus round
type Options struct {
	// Threshold is the minimum agreement score for a confident result,
	// clamped to [0.5, 1.0].
	Threshold float64

	// MinProviders is the minimum responder count for a full-strength
	// result, clamped to [2, 5]. Fewer responders mark the result degraded.
	MinProviders int

	// Timeout bounds the whole round. Responses arriving later are treated
	// as non-responses, not errors.
	Timeout time.Duration
}

// DefaultOptions returns the standard consensus configuration
func DefaultOptions() Options {
	return Options{
		Threshold:    0.7,
		MinProviders: 2,
		Timeout:      10 * time.Second,
	}
}

// normalize clamps the options into their contractual ranges.
func (o Options) normalize() Options {
	if o.Threshold < 0.5 {
		o.Threshold = 0.5
	}
	if o.Threshold > 1.0 {
		o.Threshold = 1.0
	}
	if o.MinProviders < 2 {
		o.MinProviders = 2
	}
	if o.MinProviders > 5 {
		o.MinProviders = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultOptions().Timeout
	}
	return o
}

// Coordinator fans a question out to several providers concurrently and
// aggregates their answers into a single consensus result.
type Coordinator struct {
	executor providers.Executor
	logger   *zap.Logger
}

// NewCoordinator creates a consensus coordinator over the given executor
func NewCoordinator(executor providers.Executor, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		executor: executor,
		logger:   logger,
	}
}

// SelectParticipants picks the consensus participant set: the primary
// selection first, then fallback providers, then user-preferred providers
// not already included, capped at MaxParticipants.
func SelectParticipants(primary string, fallbacks []string, prefs *models.Preferences) []string {
	participants := make([]string, 0, MaxParticipants)
	seen := make(map[string]bool)

	add := func(id string) {
		if id == "" || seen[id] || len(participants) >= MaxParticipants {
			return
		}
		if prefs.Avoided(id) {
			return
		}
		seen[id] = true
		participants = append(participants, id)
	}

	add(primary)
	for _, id := range fallbacks {
		add(id)
	}
	if prefs != nil {
		for _, id := range prefs.PreferredProviders {
			add(id)
		}
	}
	return participants
}

// AchieveConsensus queries every participant concurrently and aggregates the
// responses that arrive before the deadline. Slow calls are abandoned, not
// aborted. A round with fewer responders than MinProviders still returns a
// best-effort result, explicitly marked degraded.
func (c *Coordinator) AchieveConsensus(ctx context.Context, question string, participants []string, opts Options) (*models.ConsensusResult, error) {
	opts = opts.normalize()
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if len(participants) > MaxParticipants {
		participants = participants[:MaxParticipants]
	}

	started := time.Now()
	deadline := time.After(opts.Timeout)

	// Buffered so late responders never block; we simply stop reading.
	results := make(chan models.ProviderResponse, len(participants))
	for _, providerID := range participants {
		go func(providerID string) {
			queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.Timeout)
			defer cancel()
			res, err := c.executor.ExecuteQuery(queryCtx, providerID, question, "")
			if err != nil {
				c.logger.Warn("consensus participant failed",
					zap.String("provider_id", providerID),
					zap.Error(err))
				return
			}
			results <- models.ProviderResponse{
				ProviderID:       providerID,
				Response:         res.Response,
				Confidence:       res.Confidence,
				ProcessingTimeMs: res.ProcessingTimeMs,
				Cost:             res.Cost,
			}
		}(providerID)
	}

	var responses []models.ProviderResponse
collect:
	for len(responses) < len(participants) {
		select {
		case r := <-results:
			responses = append(responses, r)
		case <-deadline:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	result := c.aggregate(participants, responses, opts)
	result.TotalLatencyMs = float64(time.Since(started).Milliseconds())

	c.logger.Info("consensus round complete",
		zap.Int("participants", len(participants)),
		zap.Int("responders", len(responses)),
		zap.Float64("agreement", result.AgreementScore),
		zap.Bool("confident", result.Confident),
		zap.Bool("degraded", result.Degraded))

	return result, nil
}

// aggregate clusters the responses by similarity and derives the agreement
// score and final answer.
func (c *Coordinator) aggregate(participants []string, responses []models.ProviderResponse, opts Options) *models.ConsensusResult {
	result := &models.ConsensusResult{
		ProviderConfidences: make(map[string]float64, len(responses)),
		Participants:        participants,
		Responses:           responses,
		Degraded:            len(responses) < opts.MinProviders,
	}

	for _, r := range responses {
		result.ProviderConfidences[r.ProviderID] = r.Confidence
		result.TotalCost += r.Cost
	}

	if len(responses) == 0 {
		return result
	}

	cluster, similarity := largestCluster(responses)
	share := float64(len(cluster)) / float64(len(participants))
	result.AgreementScore = similarity * share
	result.Confident = !result.Degraded && result.AgreementScore >= opts.Threshold

	// Final answer: the highest-confidence member of the winning cluster.
	best := cluster[0]
	for _, r := range cluster[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	result.Answer = best.Response
	return result
}
