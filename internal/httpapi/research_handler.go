package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"immcad-api/internal/caselaw"
	"immcad-api/internal/research"
)

type lawyerResearchRequestBody struct {
	MatterSummary string `json:"matter_summary"`
	Court         string `json:"court"`
	Limit         int    `json:"limit"`
}

// LawyerResearchResult labels one candidate result with the research
// query that produced it.
type LawyerResearchResult struct {
	caselaw.CourtDecisionRecord
	MatchedQuery string `json:"matched_query"`
}

type lawyerResearchResponseBody struct {
	Queries []string               `json:"queries"`
	Results []LawyerResearchResult `json:"results"`
}

const defaultResearchLimit = 20

// handleLawyerResearch implements POST /api/research/lawyer-cases: plans
// candidate queries from a free-text matter summary (L), runs each through
// the search service (K), and returns deduplicated, query-labelled results
// capped at the caller's limit.
func (s *Server) handleLawyerResearch(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)

	if !s.CaseSearchOn {
		writeError(w, r, apierrSourceUnavailablePolicy(traceID, "case-law research is currently disabled", "case_search_disabled"))
		return
	}

	var body lawyerResearchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, apiErrorValidation(traceID, "request body must be valid JSON"))
		return
	}

	summary := strings.TrimSpace(body.MatterSummary)
	if !research.IsSpecificCaseQuery(summary) {
		writeError(w, r, apierrValidationPolicy(traceID, "matter summary is too broad to search", "case_search_query_too_broad"))
		return
	}

	limit := body.Limit
	if limit <= 0 {
		limit = defaultResearchLimit
	}

	queries := research.BuildResearchQueries(summary, body.Court)

	seen := make(map[string]bool)
	var results []LawyerResearchResult
	var lastErr error
	anySucceeded := false

	for _, query := range queries {
		records, err := s.Search.Search(r.Context(), query, "ca", body.Court, limit)
		if err != nil {
			lastErr = err
			continue
		}
		anySucceeded = true
		for _, record := range records {
			key := record.SourceID + ":" + record.CaseID
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, LawyerResearchResult{CourtDecisionRecord: record, MatchedQuery: query})
			if len(results) >= limit {
				break
			}
		}
		if len(results) >= limit {
			break
		}
	}

	if !anySucceeded && lastErr != nil {
		writeError(w, r, apiErrorSourceUnavailable(traceID, "case-law sources are currently unavailable"))
		return
	}

	if results == nil {
		results = []LawyerResearchResult{}
	}

	writeJSON(w, http.StatusOK, lawyerResearchResponseBody{Queries: queries, Results: results})
}
