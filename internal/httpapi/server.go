// Package httpapi implements the HTTP Surface (O): the net/http handlers
// for chat, case-law search, lawyer research, case export, the source
// transparency endpoint, health, and operational metrics, composed behind
// a single http.ServeMux with trace-id, rate-limit, and metrics
// middleware.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"immcad-api/internal/cache"
	"immcad-api/internal/caselaw"
	"immcad-api/internal/chat"
	"immcad-api/internal/ingestion"
	"immcad-api/internal/metrics"
	"immcad-api/internal/ratelimit"
	"immcad-api/internal/sources"
)

// Server holds every dependency the HTTP handlers need.
type Server struct {
	Chat            *chat.Service
	Search          *caselaw.SearchService
	SearchCache     *cache.ResponseCache
	SearchCacheCfg  *cache.SearchCacheConfig
	Registry        *sources.Registry
	Policy          *sources.Policy
	Checkpoints     *ingestion.CheckpointStore
	Limiter         ratelimit.Limiter
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	Audit           *slog.Logger
	BearerToken     string
	Environment     string
	ExportGateOn    bool
	DocRequireHTTPS bool
	CaseSearchOn    bool
	HTTPClient      *http.Client

	approvals *exportApprovalStore
}

// NewMux composes every route behind the request-scoped middleware chain.
func (s *Server) NewMux() http.Handler {
	mux := http.NewServeMux()
	s.approvals = newExportApprovalStore()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/search/cases", s.handleSearchCases)
	mux.HandleFunc("POST /api/research/lawyer-cases", s.handleLawyerResearch)
	mux.HandleFunc("POST /api/export/cases/approval", s.handleExportApproval)
	mux.HandleFunc("POST /api/export/cases", s.handleExportCases)
	mux.HandleFunc("GET /api/sources/transparency", s.handleSourcesTransparency)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /ops/metrics", s.requireOpsBearer(s.handleOpsMetrics))

	return s.withMiddleware(mux)
}

// withMiddleware wraps every request with trace-id propagation, rate
// limiting, and request metrics, in that order.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return traceIDMiddleware(s.rateLimitMiddleware(s.metricsMiddleware(next)))
}

// metricsMiddleware records one RecordAPIResponse sample per request.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.Metrics.RecordAPIResponse(sw.status, time.Since(started))
	})
}

// rateLimitMiddleware admits the request by client_id (the bearer token
// if present, else the remote address) before anything else runs.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		clientID := clientIdentity(r)
		allowed, err := s.Limiter.Allow(r.Context(), clientID)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("rate limiter error, admitting request", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			writeError(w, r, apiErrorRateLimited(traceIDFrom(r)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIdentity(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	return r.RemoteAddr
}

// requireOpsBearer gates an internal-operations handler behind the
// configured bearer token when running in production. Outside production
// it's left open so local/dev operators can inspect metrics freely.
func (s *Server) requireOpsBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sources.NormalizeRuntimeEnvironment(s.Environment) != sources.EnvironmentProduction {
			next(w, r)
			return
		}
		if s.BearerToken == "" || bearerToken(r) != s.BearerToken {
			writeError(w, r, apiErrorUnauthorized(traceIDFrom(r)))
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
