package perfstore

import (
	"context"
	"sync"
	"time"
)

// Sample is one recorded performance observation for a provider
type Sample struct {
	Score      float64   `json:"score"` // 0.0 to 1.0
	LatencyMs  float64   `json:"latency_ms"`
	Cost       float64   `json:"cost"`
	Priority   string    `json:"priority"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store persists historical performance samples per provider. The routing
// plane records a sample after each completed request and seeds the fuzzy
// engine from the history at startup.
type Store interface {
	// Record appends a sample for a provider.
	Record(ctx context.Context, providerID string, sample Sample) error

	// Load returns all recorded scores grouped by provider.
	Load(ctx context.Context) (map[string][]float64, error)
}

// MemoryStore is an in-memory Store, the default when no durable history is
// configured.
type MemoryStore struct {
	mu      sync.RWMutex
	samples map[string][]Sample
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		samples: make(map[string][]Sample),
	}
}

// Record implements Store.
func (s *MemoryStore) Record(_ context.Context, providerID string, sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now()
	}
	s.samples[providerID] = append(s.samples[providerID], sample)
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (map[string][]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]float64, len(s.samples))
	for providerID, samples := range s.samples {
		scores := make([]float64, len(samples))
		for i, sample := range samples {
			scores[i] = sample.Score
		}
		out[providerID] = scores
	}
	return out, nil
}

// Samples returns the full samples recorded for a provider.
func (s *MemoryStore) Samples(providerID string) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Sample(nil), s.samples[providerID]...)
}
