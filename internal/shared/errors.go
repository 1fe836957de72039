package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")

	// Provider resolution errors
	ErrUnknownProvider       = fmt.Errorf("unknown provider")
	ErrProviderDisabled      = fmt.Errorf("provider disabled")
	ErrUnsupportedCapability = fmt.Errorf("unsupported capability")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")

	// ErrInvariant marks a violated internal invariant. It is a defect, never control flow.
	ErrInvariant = fmt.Errorf("internal invariant violated")
)

// ProviderError is an upstream failure tagged with the provider namespace that produced it.
type ProviderError struct {
	Provider   string
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d) at %s", e.Provider, e.StatusCode, e.Endpoint)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s API error at %s: %v", e.Provider, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s API error at %s", e.Provider, e.Endpoint)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is maps status codes onto the sentinel errors so callers can use [errors.Is].
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrNotAuthenticated:
		return e.StatusCode == http.StatusUnauthorized
	case ErrAPIRequest:
		return true
	}
	return false
}

// Retryable is true for transport failures, rate limits and server errors.
func (e *ProviderError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err is a transient upstream failure worth another attempt.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// ProviderOf returns the provider namespace attached to err, or "".
func ProviderOf(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Provider
	}
	return ""
}
