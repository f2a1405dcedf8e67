package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrExecutorNotFound is returned when no executor serves a provider
	ErrExecutorNotFound = errors.New("executor not found for provider")

	// ErrExecutorAlreadyRegistered is returned on duplicate registration
	ErrExecutorAlreadyRegistered = errors.New("executor already registered")
)

// Registry maps provider IDs to the executors that can reach them. It
// implements Executor itself by dispatching on provider ID, so callers hold
// one Executor regardless of how many backends are wired.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
	fallback  Executor
}

// NewRegistry creates an empty executor registry
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
	}
}

// Register binds an executor to a provider ID
func (r *Registry) Register(providerID string, executor Executor) error {
	if executor == nil {
		return errors.New("executor cannot be nil")
	}
	if providerID == "" {
		return errors.New("provider ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[providerID]; exists {
		return fmt.Errorf("%w: %s", ErrExecutorAlreadyRegistered, providerID)
	}
	r.executors[providerID] = executor
	return nil
}

// SetFallback sets the executor used for provider IDs with no dedicated
// registration.
func (r *Registry) SetFallback(executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = executor
}

// Unregister removes a provider binding
func (r *Registry) Unregister(providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[providerID]; !exists {
		return fmt.Errorf("%w: %s", ErrExecutorNotFound, providerID)
	}
	delete(r.executors, providerID)
	return nil
}

// Get returns the executor bound to a provider ID
func (r *Registry) Get(providerID string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if executor, ok := r.executors[providerID]; ok {
		return executor, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrExecutorNotFound, providerID)
}

// ExecuteQuery implements Executor by dispatching to the registered backend.
func (r *Registry) ExecuteQuery(ctx context.Context, providerID, content, queryContext string) (*QueryResult, error) {
	executor, err := r.Get(providerID)
	if err != nil {
		return nil, err
	}
	return executor.ExecuteQuery(ctx, providerID, content, queryContext)
}
