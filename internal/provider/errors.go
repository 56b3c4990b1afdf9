package provider

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common provider failures.
var (
	// Context/Token errors
	ErrContextLengthExceeded = errors.New("context length exceeded")

	// Safety/Content errors
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// Rate limiting errors
	ErrRateLimit = errors.New("rate limit exceeded")

	// Authentication errors
	ErrAuthentication = errors.New("authentication failed")

	// Network errors
	ErrNetwork            = errors.New("network error")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")

	// Configuration errors
	ErrUnsupportedKind = errors.New("unsupported provider kind")
	ErrMissingAPIKey   = errors.New("missing api key")
)

// ErrorCode represents a provider error code.
type ErrorCode string

const (
	ErrorCodeContextLength  ErrorCode = "context_length_exceeded"
	ErrorCodeContentBlocked ErrorCode = "content_blocked"
	ErrorCodeRateLimit      ErrorCode = "rate_limit"
	ErrorCodeAuth           ErrorCode = "authentication_failed"
	ErrorCodeNetwork        ErrorCode = "network_error"
	ErrorCodeUnavailable    ErrorCode = "service_unavailable"
	ErrorCodeInvalidRequest ErrorCode = "invalid_request"
)

var codeSentinels = map[ErrorCode]error{
	ErrorCodeContextLength:  ErrContextLengthExceeded,
	ErrorCodeContentBlocked: ErrContentBlocked,
	ErrorCodeRateLimit:      ErrRateLimit,
	ErrorCodeAuth:           ErrAuthentication,
	ErrorCodeNetwork:        ErrNetwork,
	ErrorCodeUnavailable:    ErrServiceUnavailable,
	ErrorCodeInvalidRequest: ErrInvalidRequest,
}

// ProviderError wraps errors with additional context.
type ProviderError struct {
	Provider   string
	Code       ErrorCode
	Message    string
	Underlying error
	Retryable  bool
	RetryAfter *time.Duration
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	prefix := string(e.Code)
	if e.Provider != "" {
		prefix = e.Provider + ": " + prefix
	}
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s (%v)", prefix, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// Is matches the sentinel for the error's code.
func (e *ProviderError) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

// FromStatus maps an HTTP status code returned by a backend SDK onto a
// ProviderError.
func FromStatus(name string, status int, err error) *ProviderError {
	pe := &ProviderError{Provider: name, Underlying: err}
	switch {
	case status == 401 || status == 403:
		pe.Code, pe.Message = ErrorCodeAuth, "authentication failed"
	case status == 429:
		pe.Code, pe.Message, pe.Retryable = ErrorCodeRateLimit, "rate limit exceeded", true
	case status == 400 || status == 404 || status == 422:
		pe.Code, pe.Message = ErrorCodeInvalidRequest, "invalid request"
	case status >= 500:
		pe.Code, pe.Message, pe.Retryable = ErrorCodeUnavailable, "service unavailable", true
	default:
		pe.Code, pe.Message, pe.Retryable = ErrorCodeNetwork, "network error", true
	}
	return pe
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return false
}
