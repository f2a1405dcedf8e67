package providers

import (
	"context"
)

// QueryResult is the outcome of one provider query
type QueryResult struct {
	// Response is the provider's answer text
	Response string `json:"response"`

	// Confidence is the provider's self-reported confidence, 0.0 to 1.0
	Confidence float64 `json:"confidence"`

	// ProcessingTimeMs is the provider-side processing time
	ProcessingTimeMs float64 `json:"processing_time_ms"`

	// Cost is the billed cost of the query
	Cost float64 `json:"cost"`
}

// Executor runs a query against one AI provider. The network clients behind
// it are external collaborators; the routing plane depends only on this
// signature.
type Executor interface {
	// ExecuteQuery sends content to the identified provider and returns its
	// answer. Implementations must honor context cancellation.
	ExecuteQuery(ctx context.Context, providerID, content, queryContext string) (*QueryResult, error)
}

// LoadMonitor reports current per-provider utilization from an external
// load-monitoring collaborator. Health probes use it to fill in GPU
// utilization when the provider endpoint reports none itself.
type LoadMonitor interface {
	// GetCurrentLoad returns utilization per provider ID, 0.0 to 1.0.
	GetCurrentLoad(ctx context.Context) (map[string]float64, error)
}
