package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperdag/routing-plane/models"
	"github.com/hyperdag/routing-plane/services"
	"github.com/hyperdag/routing-plane/services/consensus"
	"github.com/hyperdag/routing-plane/services/fuzzy"
	"github.com/hyperdag/routing-plane/services/perfstore"
	"github.com/hyperdag/routing-plane/services/planner"
	"github.com/hyperdag/routing-plane/services/providers"
	"github.com/hyperdag/routing-plane/services/topology"
	"go.uber.org/zap"
)

// Config holds configuration for the routing orchestrator
type Config struct {
	// GatewayID is the topology node routing starts from
	GatewayID string

	// Consensus holds the defaults for consensus rounds
	Consensus consensus.Options
}

// Orchestrator is the top-level entry point of the routing plane. It
// sequences planner, fuzzy decision, execution (single provider or
// consensus), quality assessment, and feedback learning.
type Orchestrator struct {
	store       *topology.Store
	planner     *planner.Planner
	engine      *fuzzy.Engine
	coordinator *consensus.Coordinator
	executor    providers.Executor
	perf        perfstore.Store
	scorer      QualityScorer
	config      Config
	logger      *zap.Logger
}

// NewOrchestrator creates a routing orchestrator with all dependencies
func NewOrchestrator(
	store *topology.Store,
	pl *planner.Planner,
	engine *fuzzy.Engine,
	coordinator *consensus.Coordinator,
	executor providers.Executor,
	perf perfstore.Store,
	scorer QualityScorer,
	config Config,
	logger *zap.Logger,
) *Orchestrator {
	if scorer == nil {
		scorer = NewKeywordScorer()
	}
	return &Orchestrator{
		store:       store,
		planner:     pl,
		engine:      engine,
		coordinator: coordinator,
		executor:    executor,
		perf:        perf,
		scorer:      scorer,
		config:      config,
		logger:      logger,
	}
}

// RouteAdvancedRequest routes one request end to end and returns the full
// result. Planning failures are fatal and surfaced immediately; execution
// failures are retried against the fallback paths before propagating.
func (o *Orchestrator) RouteAdvancedRequest(ctx context.Context, req *models.RouteRequest) (*models.AdvancedRoutingResult, error) {
	// The caller's request stays untouched; normalization and classification
	// happen on a private copy.
	derived := *req
	req = &derived
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if !req.Priority.Valid() {
		req.Priority = models.PriorityBalanced
	}
	started := time.Now()

	// Step 1: classify the task type when the caller did not supply one.
	if req.TaskType == "" {
		req.TaskType = ClassifyTask(req.Content)
	}
	o.logger.Info("routing request",
		zap.String("request_id", req.ID.String()),
		zap.String("task_type", string(req.TaskType)),
		zap.String("priority", string(req.Priority)),
		zap.Bool("consensus", req.Requirements.ConsensusRequired))

	// Step 2: plan candidate paths over the current topology snapshot.
	o.logger.Debug("step 2: planning paths", zap.String("request_id", req.ID.String()))
	snap := o.store.Snapshot()
	candidates, err := o.planner.Plan(snap, o.config.GatewayID, req)
	if err != nil {
		return nil, err
	}

	// Step 3: fuzzy decision over the candidates' terminal providers.
	o.logger.Debug("step 3: fuzzy decision", zap.String("request_id", req.ID.String()))
	terminals := make([]*models.Node, len(candidates))
	for i, c := range candidates {
		terminals[i] = c.Provider
	}
	decision, err := o.engine.Decide(terminals, req)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "fuzzy decision failed", err)
	}
	routingTime := time.Since(started)

	route := planner.BuildRouteResult(candidates, o.reasoning(req, candidates, decision))

	// Step 4: execute, through consensus or a single provider. A fallback
	// retry can land on a different candidate than the primary, so routing
	// metadata is built from the candidate that actually served.
	var result *models.AdvancedRoutingResult
	served := candidates[0]
	if req.Requirements.ConsensusRequired {
		result, err = o.executeConsensus(ctx, req, candidates, decision)
	} else {
		result, served, err = o.executeSingle(ctx, req, candidates, decision)
	}
	if err != nil {
		return nil, err
	}

	result.Routing = models.RoutingMetadata{
		DAGPath:          served.Path,
		FuzzyScore:       decision.Scores[served.Provider.ID],
		AlternativePaths: alternativePaths(candidates, served),
	}
	result.Reasoning = route.Reasoning
	if served != candidates[0] {
		result.Reasoning += fmt.Sprintf("; primary failed, served by fallback %s", served.Provider.ID)
	}
	if result.Consensus != nil && result.Consensus.Degraded {
		result.Reasoning += fmt.Sprintf("; consensus degraded: only %d of %d participants responded",
			len(result.Consensus.Responses), len(result.Consensus.Participants))
	}
	result.Performance.RoutingTime = routingTime
	result.ProcessingTime = time.Since(started)

	// Step 5: assess quality and feed the outcome back into the engine.
	result.Quality = o.scorer.Assess(req.Content, result.Answer, result.Confidence)
	performanceScore := o.performanceScore(req, result)
	o.engine.LearnFromFeedback(result.Provider, req.Priority, performanceScore)
	o.recordSample(ctx, req, result, performanceScore)

	o.logger.Info("request routed",
		zap.String("request_id", req.ID.String()),
		zap.String("provider", result.Provider),
		zap.Duration("processing_time", result.ProcessingTime),
		zap.Float64("performance_score", performanceScore))

	return result, nil
}

// executeSingle runs the request against the selected provider, retrying the
// fallback paths in rank order when execution fails. It returns the candidate
// that produced the answer alongside the result.
func (o *Orchestrator) executeSingle(ctx context.Context, req *models.RouteRequest, candidates []*planner.Candidate, decision *fuzzy.Decision) (*models.AdvancedRoutingResult, *planner.Candidate, error) {
	attempts := candidates
	if len(attempts) > planner.MaxFallbackPaths+1 {
		attempts = attempts[:planner.MaxFallbackPaths+1]
	}

	inferenceStart := time.Now()
	var lastErr error
	for i, candidate := range attempts {
		providerID := candidate.Provider.ID
		if i > 0 {
			o.logger.Warn("falling back to alternate path",
				zap.String("request_id", req.ID.String()),
				zap.String("provider", providerID),
				zap.Int("attempt", i+1),
				zap.Error(lastErr))
		}

		res, err := o.executor.ExecuteQuery(ctx, providerID, req.Content, req.Context)
		if err != nil {
			lastErr = err
			continue
		}

		confidence := res.Confidence * decision.Confidence
		return &models.AdvancedRoutingResult{
			Answer:     res.Response,
			Provider:   providerID,
			Confidence: clamp01(confidence),
			TotalCost:  res.Cost,
			Performance: models.PerformanceBreakdown{
				InferenceTime: time.Since(inferenceStart),
			},
		}, candidate, nil
	}

	return nil, nil, services.NewDomainError(services.ErrorTypeProviderExecution,
		fmt.Sprintf("all %d execution attempts failed", len(attempts)),
		fmt.Errorf("%w: %w", services.ErrProviderExecution, lastErr))
}

// alternativePaths lists the paths of the candidates that did not serve the
// request, capped at the planner's fallback limit.
func alternativePaths(candidates []*planner.Candidate, served *planner.Candidate) [][]string {
	var paths [][]string
	for _, c := range candidates {
		if c == served {
			continue
		}
		if len(paths) == planner.MaxFallbackPaths {
			break
		}
		paths = append(paths, c.Path)
	}
	return paths
}

// executeConsensus runs a consensus round over the top candidates.
func (o *Orchestrator) executeConsensus(ctx context.Context, req *models.RouteRequest, candidates []*planner.Candidate, decision *fuzzy.Decision) (*models.AdvancedRoutingResult, error) {
	opts := o.config.Consensus
	if req.Requirements.ConsensusThreshold > 0 {
		opts.Threshold = req.Requirements.ConsensusThreshold
	}
	if req.Requirements.MinConsensusProviders > 0 {
		opts.MinProviders = req.Requirements.MinConsensusProviders
	}

	var fallbacks []string
	for _, c := range candidates[1:] {
		fallbacks = append(fallbacks, c.Provider.ID)
	}
	participants := consensus.SelectParticipants(decision.SelectedProvider, fallbacks, req.Preferences)

	consensusStart := time.Now()
	consensusResult, err := o.coordinator.AchieveConsensus(ctx, req.Content, participants, opts)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeProviderExecution, "consensus round failed", err)
	}

	confidence := consensusResult.AgreementScore
	if consensusResult.Degraded {
		confidence *= 0.5
	}

	return &models.AdvancedRoutingResult{
		Answer:     consensusResult.Answer,
		Provider:   decision.SelectedProvider,
		Confidence: clamp01(confidence),
		TotalCost:  consensusResult.TotalCost,
		Consensus:  consensusResult,
		Performance: models.PerformanceBreakdown{
			ConsensusTime: time.Since(consensusStart),
			InferenceTime: time.Since(consensusStart),
		},
	}, nil
}

// reasoning builds the human-readable explanation attached to a result.
func (o *Orchestrator) reasoning(req *models.RouteRequest, candidates []*planner.Candidate, decision *fuzzy.Decision) string {
	primary := candidates[0]
	return fmt.Sprintf(
		"selected %s for %s task (priority %s): fuzzy score %.3f, estimated latency %.0fms, estimated cost %.6f, %d fallback path(s)",
		decision.SelectedProvider, req.TaskType, req.Priority,
		decision.Scores[decision.SelectedProvider],
		primary.EstimatedLatencyMs, primary.EstimatedCost,
		len(candidates)-1)
}

// performanceScore mixes answer quality with how well the outcome satisfied
// the request priority. Output is within [0, 1].
func (o *Orchestrator) performanceScore(req *models.RouteRequest, result *models.AdvancedRoutingResult) float64 {
	base := result.Quality.Overall()
	if req.Preferences != nil {
		base = result.Quality.Weighted(req.Preferences.QualityWeights)
	}

	var satisfaction float64
	switch req.Priority {
	case models.PrioritySpeed:
		latencyMs := float64(result.Performance.InferenceTime.Milliseconds())
		satisfaction = 1 / (1 + latencyMs/1000)
	case models.PriorityCost:
		satisfaction = 1 / (1 + result.TotalCost*100)
	case models.PriorityAccuracy:
		satisfaction = result.Quality.EstimatedAccuracy
	default:
		satisfaction = base
	}

	return clamp01(0.6*base + 0.4*satisfaction)
}

// recordSample persists the request outcome for future seeding.
func (o *Orchestrator) recordSample(ctx context.Context, req *models.RouteRequest, result *models.AdvancedRoutingResult, score float64) {
	if o.perf == nil {
		return
	}
	sample := perfstore.Sample{
		Score:      score,
		LatencyMs:  float64(result.Performance.InferenceTime.Milliseconds()),
		Cost:       result.TotalCost,
		Priority:   string(req.Priority),
		RecordedAt: time.Now(),
	}
	if err := o.perf.Record(ctx, result.Provider, sample); err != nil {
		o.logger.Warn("performance sample not recorded",
			zap.String("provider", result.Provider),
			zap.Error(err))
	}
}
