package chat

import (
	"testing"
	"time"

	"immcad-api/internal/domain"
	"immcad-api/internal/grounding"
	"immcad-api/internal/providers"
	"immcad-api/internal/resilience"
)

type fakeProvider struct {
	name   string
	result providers.Result
	err    error
}

func (f fakeProvider) Name() string { return f.name }

func (f fakeProvider) Generate(message string, citations []domain.Citation, locale domain.Locale) (providers.Result, error) {
	if f.err != nil {
		return providers.Result{}, f.err
	}
	return f.result, nil
}

func newTestRouter(t *testing.T, provs ...providers.Provider) *providers.Router {
	t.Helper()
	router, err := providers.NewRouter(provs, provs[0].Name(), resilience.CircuitBreakerConfig{FailureThreshold: 2, OpenWindow: time.Second}, nil, nil)
	if err != nil {
		t.Fatalf("building router: %v", err)
	}
	return router
}

func TestService_Handle_PolicyBlockShortCircuits(t *testing.T) {
	svc := &Service{
		Grounding: grounding.StaticAdapter{},
		Router:    newTestRouter(t, fakeProvider{name: "openai", result: providers.Result{Answer: "should not be reached"}}),
	}

	resp := svc.Handle(domain.ChatRequest{Message: "can you represent me in my hearing?", Locale: domain.LocaleEnCA}, "trace-1")

	if resp.FallbackUsed.Reason != domain.FallbackReasonPolicyBlock {
		t.Fatalf("expected policy_block fallback reason, got %+v", resp.FallbackUsed)
	}
	if resp.FallbackUsed.Used {
		t.Fatalf("expected fallback_used.used=false on policy block (no provider was ever routed to), got %+v", resp.FallbackUsed)
	}
	if resp.Confidence != domain.ConfidenceLow {
		t.Fatalf("expected low confidence, got %s", resp.Confidence)
	}
}

func TestService_Handle_ProviderErrorSurfacesSafeResponse(t *testing.T) {
	svc := &Service{
		Grounding: grounding.StaticAdapter{},
		Router:    newTestRouter(t, fakeProvider{name: "openai", err: providers.NewError("openai", providers.ErrorCodeTimeout, "timed out")}),
	}

	resp := svc.Handle(domain.ChatRequest{Message: "what is express entry", Locale: domain.LocaleEnCA}, "trace-2")

	if resp.FallbackUsed.Reason != domain.FallbackReasonProviderError {
		t.Fatalf("expected provider_error fallback reason, got %+v", resp.FallbackUsed)
	}
	if resp.FallbackUsed.Used {
		t.Fatalf("expected fallback_used.used=false when every provider is exhausted (no provider ever returned a response), got %+v", resp.FallbackUsed)
	}
	if len(resp.Citations) != 0 {
		t.Fatalf("expected no citations on provider error, got %+v", resp.Citations)
	}
}

func TestService_Handle_SuccessWithCitationsYieldsMediumConfidence(t *testing.T) {
	svc := &Service{
		Grounding: grounding.StaticAdapter{},
		Router: newTestRouter(t, fakeProvider{name: "openai", result: providers.Result{
			Provider:  "openai",
			Answer:    "here is your answer",
			Citations: []domain.Citation{{SourceID: "IRPA", Pin: "s. 11"}},
		}}),
	}

	resp := svc.Handle(domain.ChatRequest{Message: "what is express entry", Locale: domain.LocaleEnCA}, "trace-3")

	if resp.Confidence != domain.ConfidenceMedium {
		t.Fatalf("expected medium confidence, got %s", resp.Confidence)
	}
	if resp.Answer != "here is your answer" {
		t.Fatalf("unexpected answer: %s", resp.Answer)
	}
	if resp.FallbackUsed.Used {
		t.Fatal("expected no fallback when primary provider succeeds")
	}
}

func TestService_Handle_EmptyCitationsDowngradeToSafeResponse(t *testing.T) {
	svc := &Service{
		Grounding: grounding.StaticAdapter{},
		Router: newTestRouter(t, fakeProvider{name: "openai", result: providers.Result{
			Provider: "openai",
			Answer:   "an answer with no citations",
		}}),
	}

	resp := svc.Handle(domain.ChatRequest{Message: "what is express entry", Locale: domain.LocaleEnCA}, "trace-4")

	if resp.Confidence != domain.ConfidenceLow {
		t.Fatalf("expected low confidence when citations are empty, got %s", resp.Confidence)
	}
	if len(resp.Citations) != 0 {
		t.Fatalf("expected citations to be cleared, got %+v", resp.Citations)
	}
}
