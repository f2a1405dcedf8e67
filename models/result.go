package models

import (
	"time"
)

// RouteResult represents a planned route to a selected provider.
// Produced once per request and never mutated afterward.
type RouteResult struct {
	Path               []string   `json:"path"` // node IDs, gateway first, provider last
	ProviderID         string     `json:"provider_id"`
	EstimatedCost      float64    `json:"estimated_cost"`
	EstimatedLatencyMs float64    `json:"estimated_latency_ms"`
	Confidence         float64    `json:"confidence"` // fuzzy score, 0.0 to 1.0
	Reasoning          string     `json:"reasoning"`
	FallbackPaths      [][]string `json:"fallback_paths,omitempty"` // at most 3
}

// ProviderResponse represents one provider's answer to a query
type ProviderResponse struct {
	ProviderID       string  `json:"provider_id"`
	Response         string  `json:"response"`
	Confidence       float64 `json:"confidence"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
	Cost             float64 `json:"cost"`
}

// ConsensusResult represents the aggregated outcome of a multi-provider query
type ConsensusResult struct {
	Answer              string             `json:"answer"`
	ProviderConfidences map[string]float64 `json:"provider_confidences"`
	AgreementScore      float64            `json:"agreement_score"` // 0.0 to 1.0
	Confident           bool               `json:"confident"`       // agreement >= threshold
	Degraded            bool               `json:"degraded"`        // fewer responders than required
	Participants        []string           `json:"participants"`
	Responses           []ProviderResponse `json:"responses"`
	TotalCost           float64            `json:"total_cost"`
	TotalLatencyMs      float64            `json:"total_latency_ms"`
}

// RoutingMetadata describes how a request was routed
type RoutingMetadata struct {
	DAGPath          []string   `json:"dag_path"`
	FuzzyScore       float64    `json:"fuzzy_score"`
	AlternativePaths [][]string `json:"alternative_paths,omitempty"`
}

// PerformanceBreakdown holds per-stage timings for one request
type PerformanceBreakdown struct {
	RoutingTime   time.Duration `json:"routing_time"`
	InferenceTime time.Duration `json:"inference_time"`
	ConsensusTime time.Duration `json:"consensus_time,omitempty"`
}

// QualityVector is the three-axis quality assessment of an answer
type QualityVector struct {
	EstimatedAccuracy float64 `json:"estimated_accuracy"`
	ResponseRelevance float64 `json:"response_relevance"`
	Completeness      float64 `json:"completeness"`
}

// Overall returns the mean of the three quality axes.
func (q QualityVector) Overall() float64 {
	return (q.EstimatedAccuracy + q.ResponseRelevance + q.Completeness) / 3
}

// Weighted returns the quality mix under caller-supplied axis weights.
// Recognized keys are "accuracy", "relevance", and "completeness"; a missing
// weight defaults to 1. With no weights it falls back to Overall.
func (q QualityVector) Weighted(weights map[string]float64) float64 {
	if len(weights) == 0 {
		return q.Overall()
	}
	axis := func(key string) float64 {
		if w, ok := weights[key]; ok && w >= 0 {
			return w
		}
		return 1
	}
	wa, wr, wc := axis("accuracy"), axis("relevance"), axis("completeness")
	total := wa + wr + wc
	if total == 0 {
		return q.Overall()
	}
	return (wa*q.EstimatedAccuracy + wr*q.ResponseRelevance + wc*q.Completeness) / total
}

// AdvancedRoutingResult is the full outcome of one routed request
type AdvancedRoutingResult struct {
	Answer         string                `json:"answer"`
	Provider       string                `json:"provider"`
	Confidence     float64               `json:"confidence"`
	ProcessingTime time.Duration         `json:"processing_time"`
	TotalCost      float64               `json:"total_cost"`
	Routing        RoutingMetadata       `json:"routing"`
	Consensus      *ConsensusResult      `json:"consensus,omitempty"`
	Performance    PerformanceBreakdown  `json:"performance"`
	Reasoning      string                `json:"reasoning"`
	Quality        QualityVector         `json:"quality"`
}
