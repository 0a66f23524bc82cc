package httpapi

import "net/http"

type healthzResponseBody struct {
	Status string `json:"status"`
}

// handleHealthz implements GET /healthz: a plain liveness probe with no
// dependency checks, so an orchestrator's readiness gate never flaps on a
// transient upstream hiccup.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthzResponseBody{Status: "ok"})
}

// handleOpsMetrics implements GET /ops/metrics: a point-in-time snapshot
// of request, chat, and export counters plus latency percentiles.
func (s *Server) handleOpsMetrics(w http.ResponseWriter, r *http.Request) {
	if s.Metrics == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.Metrics.Snapshot())
}
