package providers

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockExecutor is a deterministic Executor for tests and the routerd CLI.
// Responses, delays, and failures are configured per provider so routing
// decisions can be asserted exactly.
type MockExecutor struct {
	mu        sync.RWMutex
	responses map[string]QueryResult
	delays    map[string]time.Duration
	failures  map[string]error
	loads     map[string]float64
	calls     []string
}

// NewMockExecutor creates a mock executor with no canned behavior. Unknown
// providers get a generic echo response.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		responses: make(map[string]QueryResult),
		delays:    make(map[string]time.Duration),
		failures:  make(map[string]error),
		loads:     make(map[string]float64),
	}
}

// SetResponse cans a response for a provider
func (m *MockExecutor) SetResponse(providerID string, result QueryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[providerID] = result
}

// SetDelay makes a provider's queries take the given duration
func (m *MockExecutor) SetDelay(providerID string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[providerID] = delay
}

// SetFailure makes a provider's queries return the given error
func (m *MockExecutor) SetFailure(providerID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[providerID] = err
}

// SetLoad sets the utilization reported for a provider by GetCurrentLoad
func (m *MockExecutor) SetLoad(providerID string, load float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads[providerID] = load
}

// GetCurrentLoad implements LoadMonitor.
func (m *MockExecutor) GetCurrentLoad(_ context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.loads))
	for id, load := range m.loads {
		out[id] = load
	}
	return out, nil
}

// Calls returns the provider IDs queried so far, in order.
func (m *MockExecutor) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.calls...)
}

// ExecuteQuery implements Executor.
func (m *MockExecutor) ExecuteQuery(ctx context.Context, providerID, content, queryContext string) (*QueryResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, providerID)
	delay := m.delays[providerID]
	failure := m.failures[providerID]
	canned, hasCanned := m.responses[providerID]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failure != nil {
		return nil, failure
	}

	if hasCanned {
		result := canned
		return &result, nil
	}

	return &QueryResult{
		Response:         fmt.Sprintf("[%s] response to: %s", providerID, content),
		Confidence:       0.8,
		ProcessingTimeMs: float64(delay.Milliseconds()),
		Cost:             0.0001,
	}, nil
}
