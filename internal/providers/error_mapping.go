package providers

import "strings"

// MapException classifies a raw error message into the rate_limit / timeout
// / provider_error taxonomy by substring match, the same heuristic the
// python original applies to opaque SDK exceptions.
func MapException(provider, message string) *Error {
	lowered := strings.ToLower(message)

	switch {
	case strings.Contains(lowered, "rate"), strings.Contains(lowered, "429"), strings.Contains(lowered, "quota"):
		return NewError(provider, ErrorCodeRateLimit, message)
	case strings.Contains(lowered, "timeout"), strings.Contains(lowered, "timed out"), strings.Contains(lowered, "deadline"):
		return NewError(provider, ErrorCodeTimeout, message)
	default:
		return NewError(provider, ErrorCodeProviderError, message)
	}
}

// nonTransientProviderErrorMarkers are provider_error messages that must
// never be retried within a provider's own adapter: they indicate a
// malformed response, not a transient backend hiccup.
var nonTransientProviderErrorMarkers = []string{
	"no choices",
	"no message content",
}

// IsNonTransient reports whether a provider_error should bypass a
// provider's internal retry loop and surface immediately.
func IsNonTransient(err *Error) bool {
	if err.Code != ErrorCodeProviderError {
		return false
	}
	lowered := strings.ToLower(err.Message)
	for _, marker := range nonTransientProviderErrorMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
