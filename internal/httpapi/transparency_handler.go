package httpapi

import (
	"net/http"
	"time"

	"immcad-api/internal/ingestion"
	"immcad-api/internal/sources"
)

const (
	cadenceDailyWindow     = 36 * time.Hour
	cadenceWeeklyWindow    = 9 * 24 * time.Hour
	cadenceScheduledWindow = 48 * time.Hour
)

func cadenceWindow(cadence sources.UpdateCadence) time.Duration {
	switch cadence {
	case sources.CadenceDaily:
		return cadenceDailyWindow
	case sources.CadenceWeekly:
		return cadenceWeeklyWindow
	default:
		return cadenceScheduledWindow
	}
}

// transparencySourceView is one row of the sources transparency report:
// what the source is, its class and citation eligibility, and how fresh
// its last successful ingestion is.
type transparencySourceView struct {
	SourceID              string `json:"source_id"`
	SourceType            string `json:"source_type"`
	Instrument            string `json:"instrument"`
	SourceClass           string `json:"source_class,omitempty"`
	AnswerCitationAllowed bool   `json:"answer_citation_allowed"`
	Freshness             string `json:"freshness"`
	LastSuccessAt         string `json:"last_success_at,omitempty"`
}

type transparencyResponseBody struct {
	Jurisdiction string                    `json:"jurisdiction"`
	Sources      []transparencySourceView `json:"sources"`
}

// handleSourcesTransparency implements GET /api/sources/transparency: the
// public-facing view of what the assistant is (and isn't) grounded on.
func (s *Server) handleSourcesTransparency(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)

	if s.Registry == nil {
		writeError(w, r, apiErrorSourceUnavailable(traceID, "source registry is not loaded"))
		return
	}

	now := time.Now()
	views := make([]transparencySourceView, 0, len(s.Registry.AllSources()))

	for _, entry := range s.Registry.AllSources() {
		view := transparencySourceView{
			SourceID:   entry.SourceID,
			SourceType: string(entry.SourceType),
			Instrument: entry.Instrument,
		}

		if s.Policy != nil {
			if policyEntry, ok := s.Policy.GetSource(entry.SourceID); ok {
				view.SourceClass = string(policyEntry.SourceClass)
				view.AnswerCitationAllowed = policyEntry.AnswerCitationAllowed
			}
		}

		freshness := ingestion.FreshnessMissing
		if s.Checkpoints != nil {
			cp, ok := s.Checkpoints.Get(entry.SourceID)
			freshness = ingestion.DeriveFreshness(cp, ok, now, cadenceWindow(entry.UpdateCadence))
			if ok && !cp.LastSuccessAt.IsZero() {
				view.LastSuccessAt = cp.LastSuccessAt.UTC().Format(time.RFC3339)
			}
		}
		view.Freshness = string(freshness)

		views = append(views, view)
	}

	jurisdiction := s.Registry.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = "ca"
	}

	writeJSON(w, http.StatusOK, transparencyResponseBody{
		Jurisdiction: jurisdiction,
		Sources:      views,
	})
}
