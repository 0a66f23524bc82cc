package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"immcad-api/internal/apierr"
)

type traceIDKey struct{}

// traceIDMiddleware assigns a trace id to every request (generated here,
// since this service is the entry point rather than a downstream hop) and
// echoes it on the x-trace-id response header of every response, success
// or error, per the case-search route's header-echo convention.
func traceIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := uuid.NewString()
		w.Header().Set("x-trace-id", traceID)
		ctx := context.WithValue(r.Context(), traceIDKey{}, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func traceIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(traceIDKey{}).(string); ok {
		return v
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, apiErr *apierr.Error) {
	if apiErr.TraceID == "" {
		apiErr.TraceID = traceIDFrom(r)
	}
	writeJSON(w, apiErr.HTTPStatus(), apiErr.ToEnvelope())
}

func apiErrorRateLimited(traceID string) *apierr.Error {
	return apierr.New(apierr.CodeRateLimited, "too many requests, try again shortly", traceID)
}

func apiErrorUnauthorized(traceID string) *apierr.Error {
	return apierr.New(apierr.CodeUnauthorized, "missing or invalid bearer token", traceID)
}

func apiErrorValidation(traceID, message string) *apierr.Error {
	return apierr.New(apierr.CodeValidationError, message, traceID)
}

func apiErrorSourceUnavailable(traceID, message string) *apierr.Error {
	return apierr.New(apierr.CodeSourceUnavailable, message, traceID)
}

func apierrValidationPolicy(traceID, message, policyReason string) *apierr.Error {
	return apierr.New(apierr.CodeValidationError, message, traceID).WithPolicyReason(policyReason)
}

func apierrSourceUnavailablePolicy(traceID, message, policyReason string) *apierr.Error {
	return apierr.New(apierr.CodeSourceUnavailable, message, traceID).WithPolicyReason(policyReason)
}

func apierrPolicyBlocked(traceID, message, policyReason string) *apierr.Error {
	return apierr.New(apierr.CodePolicyBlocked, message, traceID).WithPolicyReason(policyReason)
}
