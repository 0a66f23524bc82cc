package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"immcad-api/internal/metrics"
)

func TestHandleHealthz_ReturnsOK(t *testing.T) {
	srv := &Server{Search: nil}
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("expected status ok, got %s", rec.Body.String())
	}
}

func TestHandleOpsMetrics_DevelopmentIsOpenAndReturnsSnapshot(t *testing.T) {
	srv := &Server{Metrics: metrics.New(16), Environment: "development"}
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/ops/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "window_seconds") {
		t.Fatalf("expected metrics snapshot body, got %s", rec.Body.String())
	}
}

func TestHandleOpsMetrics_ProductionRequiresBearerToken(t *testing.T) {
	srv := &Server{Metrics: metrics.New(16), Environment: "production", BearerToken: "s3cret"}
	mux := srv.NewMux()

	req := httptest.NewRequest(http.MethodGet, "/ops/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d: %s", rec.Code, rec.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/ops/metrics", nil)
	req2.Header.Set("Authorization", "Bearer s3cret")
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct bearer token, got %d: %s", rec2.Code, rec2.Body.String())
	}
}
