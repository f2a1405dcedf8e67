package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNoCandidates      ErrorType = "no_candidate_providers"
	ErrorTypeNoValidPath       ErrorType = "no_valid_path"
	ErrorTypeProviderExecution ErrorType = "provider_execution"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeTopology          ErrorType = "topology"
	ErrorTypeInternal          ErrorType = "internal"
)

var (
	// ErrNoCandidateProviders is returned when filtering removed every node
	ErrNoCandidateProviders = errors.New("no candidate providers available")

	// ErrNoValidPath is returned when the planner found no path to any candidate
	ErrNoValidPath = errors.New("no valid path to any candidate provider")

	// ErrProviderExecution is returned when the execution collaborator failed
	ErrProviderExecution = errors.New("provider execution failed")
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// NewNoCandidatesError creates an error for a request whose filtering step
// removed every provider, with the reason each check failed.
func NewNoCandidatesError(reason string) *DomainError {
	return NewDomainError(ErrorTypeNoCandidates, reason, ErrNoCandidateProviders)
}

// NewNoValidPathError creates an error for a request that had candidates but
// no reachable path from the gateway.
func NewNoValidPathError(gatewayID string) *DomainError {
	e := NewDomainError(ErrorTypeNoValidPath, "gateway cannot reach any candidate", ErrNoValidPath)
	return e.WithDetail("gateway_id", gatewayID)
}
