// Package providers implements the Provider Router (H): an ordered list of
// LLM backends behind per-provider circuit breakers, with a uniform error
// taxonomy and deterministic fallback ordering.
package providers

import (
	"fmt"

	"immcad-api/internal/domain"
)

// ErrorCode classifies a provider failure for routing and telemetry.
type ErrorCode string

const (
	ErrorCodeRateLimit     ErrorCode = "rate_limit"
	ErrorCodeTimeout       ErrorCode = "timeout"
	ErrorCodeProviderError ErrorCode = "provider_error"
)

// Error is a classified provider failure.
type Error struct {
	Provider string
	Code     ErrorCode
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %s", e.Provider, e.Code, e.Message)
}

// NewError builds a classified provider Error.
func NewError(provider string, code ErrorCode, message string) *Error {
	return &Error{Provider: provider, Code: code, Message: message}
}

// Result is a successful provider response.
type Result struct {
	Provider   string
	Answer     string
	Citations  []domain.Citation
	Confidence domain.Confidence
}

// Provider generates a chat answer from a message and its grounding citations.
type Provider interface {
	Name() string
	Generate(message string, citations []domain.Citation, locale domain.Locale) (Result, error)
}
