package providers

import (
	"context"
	"errors"
	"fmt"

	"refunds/internal/compliance/models"
)

// ErrorCategory is the normalized failure taxonomy for rule providers.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorCircuitOpen    ErrorCategory = "circuit_open"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorInternal       ErrorCategory = "internal"
)

// ProviderError wraps a rule provider failure with its category.
type ProviderError struct {
	Category   ErrorCategory
	Provider   models.ProviderType
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError builds a ProviderError. Timeouts, outages and open circuits
// are retryable.
func NewProviderError(category ErrorCategory, provider models.ProviderType, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorCircuitOpen

	return &ProviderError{
		Category:   category,
		Provider:   provider,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// Classify normalizes an arbitrary provider failure. Errors that are already
// ProviderErrors are returned unchanged.
func Classify(provider models.ProviderType, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ErrorTimeout, provider, "rule fetch timed out", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ErrorInternal, provider, "rule fetch canceled", err)
	default:
		return NewProviderError(ErrorProviderOutage, provider, "rule fetch failed", err)
	}
}

// IsRetryable reports whether err is a retryable provider failure.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the category from err, defaulting to internal.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}
