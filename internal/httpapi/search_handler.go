package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"immcad-api/internal/cache"
	"immcad-api/internal/caselaw"
)

type searchCasesRequestBody struct {
	Query        string `json:"query"`
	Jurisdiction string `json:"jurisdiction"`
	Court        string `json:"court"`
	Limit        int    `json:"limit"`
}

type searchCasesResponseBody struct {
	Results []caselaw.CourtDecisionRecord `json:"results"`
}

const defaultSearchLimit = 20

// handleSearchCases implements POST /api/search/cases: official-first,
// licensed-fallback case-law search, with short-TTL result caching for
// official-source hits.
func (s *Server) handleSearchCases(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)

	var body searchCasesRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, apiErrorValidation(traceID, "request body must be valid JSON"))
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, r, apiErrorValidation(traceID, "query is required"))
		return
	}
	if body.Jurisdiction == "" {
		body.Jurisdiction = "ca"
	}
	limit := body.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	cacheKey := ""
	if s.SearchCache != nil && s.SearchCacheCfg != nil {
		cacheKey = cache.BuildCacheKey(body.Query, body.Jurisdiction, body.Court)
		if entry, ok := s.SearchCache.Get(cacheKey); ok {
			var cached searchCasesResponseBody
			if err := json.Unmarshal(entry.Payload, &cached); err == nil {
				writeJSON(w, http.StatusOK, cached)
				return
			}
		}
	}

	records, err := s.Search.Search(r.Context(), body.Query, body.Jurisdiction, body.Court, limit)
	if err != nil {
		writeError(w, r, apiErrorSourceUnavailable(traceID, "case-law sources are currently unavailable"))
		return
	}

	respBody := searchCasesResponseBody{Results: records}
	if records == nil {
		respBody.Results = []caselaw.CourtDecisionRecord{}
	}

	if cacheKey != "" && s.SearchCacheCfg.IsCacheable(cacheSource(records)) {
		if payload, err := json.Marshal(respBody); err == nil {
			s.SearchCache.Set(cacheKey, &cache.CacheEntry{
				Payload:  payload,
				CachedAt: time.Now(),
				TTL:      s.SearchCacheCfg.GetTTL(body.Court),
			})
		}
	}

	writeJSON(w, http.StatusOK, respBody)
}

// cacheSource maps a result set to the cache-config "source" key: the
// licensed fallback is tagged canlii so SearchCacheConfig never caches it.
func cacheSource(records []caselaw.CourtDecisionRecord) string {
	if len(records) > 0 && records[0].SourceID == "CANLII_CASE_BROWSE" {
		return "canlii"
	}
	return "official"
}
