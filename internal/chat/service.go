// Package chat implements the Chat Service (I): composes the policy gate,
// grounding adapter, provider router, and citation enforcer into one
// request/response cycle, emitting audit events along the way.
package chat

import (
	"log/slog"

	"immcad-api/internal/domain"
	"immcad-api/internal/grounding"
	"immcad-api/internal/policy"
	"immcad-api/internal/providers"
)

// Service handles chat requests end to end.
type Service struct {
	Grounding grounding.Adapter
	Router    *providers.Router
	Audit     *slog.Logger
}

// Handle runs the full chat pipeline for one request.
func (s *Service) Handle(req domain.ChatRequest, traceID string) domain.ChatResponse {
	if policy.ShouldRefuse(req.Message) {
		s.emitAudit("policy_block", traceID, req, nil, "")
		return domain.ChatResponse{
			Answer:     policy.RefusalText,
			Citations:  []domain.Citation{},
			Confidence: domain.ConfidenceLow,
			Disclaimer: policy.DisclaimerText,
			FallbackUsed: domain.FallbackUsed{
				Used:   false,
				Reason: domain.FallbackReasonPolicyBlock,
			},
		}
	}

	citations := s.Grounding.CitationCandidates(req.Message, req.Locale, req.Mode)

	routed, err := s.Router.Generate(req.Message, citations, req.Locale)
	if err != nil {
		provErr := asProviderError(err)
		s.emitAudit("provider_error", traceID, req, provErr, "")
		return domain.ChatResponse{
			Answer:     policy.SafeConstrainedResponse,
			Citations:  []domain.Citation{},
			Confidence: domain.ConfidenceLow,
			Disclaimer: policy.DisclaimerText,
			FallbackUsed: domain.FallbackUsed{
				Used:   false,
				Reason: domain.FallbackReasonProviderError,
			},
		}
	}

	answer, finalCitations, confidence := policy.EnforceCitationRequirement(routed.Result.Answer, routed.Result.Citations)

	fallback := domain.FallbackUsed{Used: routed.FallbackUsed}
	if routed.FallbackUsed {
		fallback.Provider = routed.Result.Provider
		fallback.Reason = mapProviderErrorCode(routed.FallbackReason)
	}

	return domain.ChatResponse{
		Answer:       answer,
		Citations:    finalCitations,
		Confidence:   confidence,
		Disclaimer:   policy.DisclaimerText,
		FallbackUsed: fallback,
	}
}

func (s *Service) emitAudit(eventType, traceID string, req domain.ChatRequest, provErr *providers.Error, provider string) {
	if s.Audit == nil {
		return
	}
	attrs := []any{
		"event_type", eventType,
		"trace_id", traceID,
		"locale", req.Locale,
		"mode", req.Mode,
		"message_length", len(req.Message),
	}
	if provErr != nil {
		attrs = append(attrs, "provider", provErr.Provider, "provider_error_code", string(provErr.Code))
	}
	s.Audit.Info("chat audit event", attrs...)
}

func asProviderError(err error) *providers.Error {
	if pe, ok := err.(*providers.Error); ok {
		return pe
	}
	return providers.NewError("router", providers.ErrorCodeProviderError, err.Error())
}

func mapProviderErrorCode(code providers.ErrorCode) domain.FallbackReason {
	switch code {
	case providers.ErrorCodeTimeout:
		return domain.FallbackReasonTimeout
	case providers.ErrorCodeRateLimit:
		return domain.FallbackReasonRateLimit
	default:
		return domain.FallbackReasonProviderError
	}
}
