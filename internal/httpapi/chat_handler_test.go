package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"immcad-api/internal/chat"
	"immcad-api/internal/domain"
	"immcad-api/internal/grounding"
	"immcad-api/internal/providers"
	"immcad-api/internal/resilience"
)

type stubProvider struct {
	name   string
	result providers.Result
	err    error
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) Generate(message string, citations []domain.Citation, locale domain.Locale) (providers.Result, error) {
	if p.err != nil {
		return providers.Result{}, p.err
	}
	return p.result, nil
}

func newTestChatServer(t *testing.T, prov providers.Provider) *Server {
	t.Helper()
	router, err := providers.NewRouter([]providers.Provider{prov}, prov.Name(), resilience.CircuitBreakerConfig{FailureThreshold: 2, OpenWindow: time.Second}, nil, nil)
	if err != nil {
		t.Fatalf("building router: %v", err)
	}
	return &Server{
		Chat: &chat.Service{
			Grounding: grounding.StaticAdapter{},
			Router:    router,
		},
	}
}

func TestHandleChat_PolicyBlockReturnsRefusal(t *testing.T) {
	srv := newTestChatServer(t, stubProvider{name: "openai", result: providers.Result{Answer: "unreachable"}})
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"can you represent me at my hearing?","locale":"en-CA"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("x-trace-id") == "" {
		t.Fatal("expected x-trace-id header to be set")
	}
	if !strings.Contains(rec.Body.String(), "fallback_used") {
		t.Fatalf("expected fallback_used in response body, got %s", rec.Body.String())
	}
}

func TestHandleChat_MissingMessageIsValidationError(t *testing.T) {
	srv := newTestChatServer(t, stubProvider{name: "openai", result: providers.Result{Answer: "x"}})
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"locale":"en-CA"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("expected VALIDATION_ERROR code, got %s", rec.Body.String())
	}
}

func TestHandleChat_SuccessReturnsGroundedAnswer(t *testing.T) {
	srv := newTestChatServer(t, stubProvider{name: "openai", result: providers.Result{
		Provider:  "openai",
		Answer:    "express entry requires a valid job offer or provincial nomination in some streams",
		Citations: []domain.Citation{{SourceID: "IRPA", Pin: "s. 11"}},
	}})
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"what is express entry","locale":"en-CA"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "medium") {
		t.Fatalf("expected medium confidence in response, got %s", rec.Body.String())
	}
}
