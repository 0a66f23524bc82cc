package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"immcad-api/internal/metrics"
	"immcad-api/internal/sources"
)

// exportTrustedHosts lists, per source_id, the document hosts a case
// export may be served from (and redirected to). FC_DECISIONS aliases
// both the Federal Courts decisions site and its Lexum mirror.
var exportTrustedHosts = map[string][]string{
	"SCC_DECISIONS": {"decisions.scc-csc.ca"},
	"FC_DECISIONS":  {"decisions.fct-cf.gc.ca", "norma.lexum.com"},
	"FCA_DECISIONS": {"decisions.fca-caf.gc.ca", "norma.lexum.com"},
}

func isTrustedExportHost(sourceID, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, host := range exportTrustedHosts[sourceID] {
		if strings.EqualFold(parsed.Host, host) {
			return true
		}
	}
	return false
}

const exportApprovalTTL = 10 * time.Minute
const maxExportRedirects = 5
const maxExportBodyBytes = 25 << 20 // 25 MiB

type exportApproval struct {
	SourceID    string
	CaseID      string
	DocumentURL string
	ExpiresAt   time.Time
}

// exportApprovalStore holds short-lived export approvals issued by
// POST /api/export/cases/approval and consumed by POST /api/export/cases.
type exportApprovalStore struct {
	mu      sync.Mutex
	byToken map[string]exportApproval
}

func newExportApprovalStore() *exportApprovalStore {
	return &exportApprovalStore{byToken: map[string]exportApproval{}}
}

func (s *exportApprovalStore) issue(a exportApproval) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[token] = a
	return token
}

func (s *exportApprovalStore) consume(token string) (exportApproval, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byToken[token]
	if !ok {
		return exportApproval{}, false
	}
	delete(s.byToken, token)
	if time.Now().After(a.ExpiresAt) {
		return exportApproval{}, false
	}
	return a, true
}

type exportApprovalRequestBody struct {
	SourceID     string `json:"source_id"`
	CaseID       string `json:"case_id"`
	DocumentURL  string `json:"document_url"`
	UserApproved bool   `json:"user_approved"`
}

type exportApprovalResponseBody struct {
	ApprovalToken string `json:"approval_token"`
}

// handleExportApproval implements POST /api/export/cases/approval: the
// first step of the two-step export flow. It checks the source's export
// policy and the document host allowlist up front, before a token is ever
// issued, so a caller can't mint a token for a document it could never
// actually export.
func (s *Server) handleExportApproval(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)

	var body exportApprovalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, apiErrorValidation(traceID, "request body must be valid JSON"))
		return
	}
	if !body.UserApproved {
		writeError(w, r, apierrValidationPolicy(traceID, "export requires explicit user approval", "export_requires_user_approval"))
		return
	}
	if body.SourceID == "" || body.CaseID == "" || body.DocumentURL == "" {
		writeError(w, r, apiErrorValidation(traceID, "source_id, case_id, and document_url are required"))
		return
	}

	if allowed, reason := sources.IsExportAllowed(body.SourceID, s.Policy); !allowed {
		s.recordExport(metrics.ExportOutcomeBlocked, reason)
		writeError(w, r, apierrPolicyBlocked(traceID, "export is not permitted for this source", reason))
		return
	}

	if !isTrustedExportHost(body.SourceID, body.DocumentURL) {
		s.recordExport(metrics.ExportOutcomeBlocked, "export_document_url_not_allowed_for_source")
		writeError(w, r, apierrValidationPolicy(traceID, "document url is not on the trusted host list for this source", "export_document_url_not_allowed_for_source"))
		return
	}

	token := s.approvals.issue(exportApproval{
		SourceID:    body.SourceID,
		CaseID:      body.CaseID,
		DocumentURL: body.DocumentURL,
		ExpiresAt:   time.Now().Add(exportApprovalTTL),
	})

	writeJSON(w, http.StatusOK, exportApprovalResponseBody{ApprovalToken: token})
}

type exportCasesRequestBody struct {
	SourceID      string `json:"source_id"`
	CaseID        string `json:"case_id"`
	DocumentURL   string `json:"document_url"`
	Format        string `json:"format"`
	UserApproved  bool   `json:"user_approved"`
	ApprovalToken string `json:"approval_token"`
}

// handleExportCases implements POST /api/export/cases: the second step of
// the export flow. It re-validates the approval token, re-checks the
// redirect chain host-by-host before following any hop, and proxies the
// upstream document bytes only once every hop has cleared the allowlist.
func (s *Server) handleExportCases(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)

	var body exportCasesRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, apiErrorValidation(traceID, "request body must be valid JSON"))
		return
	}
	if !body.UserApproved {
		writeError(w, r, apierrValidationPolicy(traceID, "export requires explicit user approval", "export_requires_user_approval"))
		return
	}

	approval, ok := s.approvals.consume(body.ApprovalToken)
	if !ok || approval.SourceID != body.SourceID || approval.CaseID != body.CaseID || approval.DocumentURL != body.DocumentURL {
		s.recordExport(metrics.ExportOutcomeBlocked, "export_approval_token_invalid")
		writeError(w, r, apierrValidationPolicy(traceID, "approval token is missing, expired, or does not match this request", "export_approval_token_invalid"))
		return
	}

	if allowed, reason := sources.IsExportAllowed(body.SourceID, s.Policy); !allowed {
		s.recordExport(metrics.ExportOutcomeBlocked, reason)
		writeError(w, r, apierrPolicyBlocked(traceID, "export is not permitted for this source", reason))
		return
	}

	payload, contentType, err := s.fetchExportDocument(r, body.SourceID, body.DocumentURL)
	if err != nil {
		if pe, ok := err.(*exportPolicyError); ok {
			s.recordExport(metrics.ExportOutcomeBlocked, pe.reason)
			writeError(w, r, apierrValidationPolicy(traceID, pe.Error(), pe.reason))
			return
		}
		if err == errExportTooLarge {
			s.recordExport(metrics.ExportOutcomeTooLarge, "")
			writeError(w, r, apiErrorValidation(traceID, "exported document exceeds the size limit"))
			return
		}
		s.recordExport(metrics.ExportOutcomeFetchFailed, "")
		writeError(w, r, apiErrorSourceUnavailable(traceID, "could not retrieve the document from its source"))
		return
	}

	s.recordExport(metrics.ExportOutcomeAllowed, "")

	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) recordExport(outcome metrics.ExportOutcome, reason string) {
	if s.Metrics != nil {
		s.Metrics.RecordExportOutcome(outcome, reason)
	}
}

type exportPolicyError struct {
	reason string
}

func (e *exportPolicyError) Error() string {
	return "redirected to a document url that is not on the trusted host list for this source"
}

var errExportTooLarge = fmt.Errorf("export document too large")

// fetchExportDocument walks the redirect chain starting at documentURL,
// rejecting any hop whose host is not trusted for sourceID before it is
// ever followed, and returns the final response body and content type.
func (s *Server) fetchExportDocument(r *http.Request, sourceID, documentURL string) ([]byte, string, error) {
	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	currentURL := documentURL
	for hop := 0; hop <= maxExportRedirects; hop++ {
		if !isTrustedExportHost(sourceID, currentURL) {
			return nil, "", &exportPolicyError{reason: "export_redirect_url_not_allowed_for_source"}
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, currentURL, nil)
		if err != nil {
			return nil, "", err
		}

		resp, err := noRedirectClient(client).Do(req)
		if err != nil {
			return nil, "", err
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return nil, "", fmt.Errorf("redirect response missing location header")
			}
			resolved, err := resolveRedirect(currentURL, location)
			if err != nil {
				return nil, "", err
			}
			if !isTrustedExportHost(sourceID, resolved) {
				return nil, "", &exportPolicyError{reason: "export_redirect_url_not_allowed_for_source"}
			}
			currentURL = resolved
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, "", fmt.Errorf("upstream returned status %d", resp.StatusCode)
		}

		limited := io.LimitReader(resp.Body, maxExportBodyBytes+1)
		data, err := io.ReadAll(limited)
		if err != nil {
			return nil, "", err
		}
		if len(data) > maxExportBodyBytes {
			return nil, "", errExportTooLarge
		}
		return data, resp.Header.Get("Content-Type"), nil
	}

	return nil, "", fmt.Errorf("too many redirects fetching export document")
}

func resolveRedirect(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(locURL).String(), nil
}

// noRedirectClient wraps client so its Transport is reused but automatic
// redirect-following is disabled, letting fetchExportDocument inspect and
// authorize every hop itself.
func noRedirectClient(client *http.Client) *http.Client {
	return &http.Client{
		Transport: client.Transport,
		Timeout:   client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

