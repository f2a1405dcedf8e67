package models

import (
	"github.com/google/uuid"
)

// Priority represents the optimization goal of a routing request
type Priority string

const (
	PrioritySpeed    Priority = "speed"
	PriorityCost     Priority = "cost"
	PriorityAccuracy Priority = "accuracy"
	PriorityBalanced Priority = "balanced"
)

// Valid reports whether the priority is one of the known values.
func (p Priority) Valid() bool {
	switch p {
	case PrioritySpeed, PriorityCost, PriorityAccuracy, PriorityBalanced:
		return true
	}
	return false
}

// Requirements holds the hard constraints of a routing request.
// Zero values mean "unconstrained".
type Requirements struct {
	MaxLatencyMs          float64  `json:"max_latency_ms,omitempty"`
	MaxCost               float64  `json:"max_cost,omitempty"`
	MinAccuracy           float64  `json:"min_accuracy,omitempty"`
	GeographicConstraints []string `json:"geographic_constraints,omitempty"`
	ConsensusRequired     bool     `json:"consensus_required,omitempty"`
	ConsensusThreshold    float64  `json:"consensus_threshold,omitempty"` // 0.5 to 1.0
	MinConsensusProviders int      `json:"min_consensus_providers,omitempty"`
}

// Preferences holds optional user steering for provider selection
type Preferences struct {
	PreferredProviders []string           `json:"preferred_providers,omitempty"`
	AvoidProviders     []string           `json:"avoid_providers,omitempty"`
	QualityWeights     map[string]float64 `json:"quality_weights,omitempty"`
}

// Avoided reports whether a provider is on the request's avoid list.
func (p *Preferences) Avoided(providerID string) bool {
	if p == nil {
		return false
	}
	for _, id := range p.AvoidProviders {
		if id == providerID {
			return true
		}
	}
	return false
}

// RouteRequest represents one incoming routing request.
// Immutable for the lifetime of the request.
type RouteRequest struct {
	ID           uuid.UUID    `json:"id"`
	TaskType     TaskType     `json:"task_type,omitempty"` // classified from content when empty
	Priority     Priority     `json:"priority"`
	Requirements Requirements `json:"requirements"`
	Content      string       `json:"content"`
	Context      string       `json:"context,omitempty"`
	Preferences  *Preferences `json:"preferences,omitempty"`
}

// NewRouteRequest creates a routing request with a fresh ID and balanced
// priority defaults.
func NewRouteRequest(content string) *RouteRequest {
	return &RouteRequest{
		ID:       uuid.New(),
		Priority: PriorityBalanced,
		Content:  content,
	}
}
