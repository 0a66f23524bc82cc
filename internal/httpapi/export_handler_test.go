package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"immcad-api/internal/sources"
)

func newTestExportServer(t *testing.T) *Server {
	t.Helper()
	data := []byte(`version: "1"
jurisdiction: ca
sources:
  - source_id: FC_DECISIONS
    source_class: official
    internal_ingest_allowed: true
    production_ingest_allowed: true
    answer_citation_allowed: true
    export_fulltext_allowed: true
    license_notes: test
    review_owner: content-ops
    review_date: "2026-01-15"
`)
	path := t.TempDir() + "/policy.yaml"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture policy: %v", err)
	}
	loaded, err := sources.LoadPolicy(path)
	if err != nil {
		t.Fatalf("loading fixture policy: %v", err)
	}
	return &Server{
		Policy:     loaded,
		HTTPClient: http.DefaultClient,
	}
}

// approveDocument drives the approval endpoint and returns the issued token.
func approveDocument(t *testing.T, mux http.Handler, documentURL string) string {
	t.Helper()
	body := fmt.Sprintf(`{"source_id":"FC_DECISIONS","case_id":"FC-2026-123456","document_url":%q,"user_approved":true}`, documentURL)
	req := httptest.NewRequest(http.MethodPost, "/api/export/cases/approval", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approval step failed: %d: %s", rec.Code, rec.Body.String())
	}
	var resp exportApprovalResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding approval response: %v", err)
	}
	return resp.ApprovalToken
}

func TestExportCases_BlocksUntrustedRedirectHostBeforeDownload(t *testing.T) {
	evil := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.7\nshould never be reached\n"))
	}))
	defer evil.Close()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, evil.URL+"/export.pdf", http.StatusFound)
	}))
	defer upstream.Close()

	upstreamHost := mustHost(t, upstream.URL)
	exportTrustedHosts["FC_DECISIONS"] = []string{upstreamHost}
	defer delete(exportTrustedHosts, "FC_DECISIONS")

	srv := newTestExportServer(t)
	mux := srv.NewMux()

	documentURL := upstream.URL + "/fc-cf/decisions/en/item/123456/index.do"
	token := approveDocument(t, mux, documentURL)

	body := fmt.Sprintf(`{"source_id":"FC_DECISIONS","case_id":"FC-2026-123456","document_url":%q,"format":"pdf","user_approved":true,"approval_token":%q}`, documentURL, token)
	req := httptest.NewRequest(http.MethodPost, "/api/export/cases", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "export_redirect_url_not_allowed_for_source") {
		t.Fatalf("expected export_redirect_url_not_allowed_for_source policy_reason, got %s", rec.Body.String())
	}
}

func TestExportCases_AllowsTrustedAliasHost(t *testing.T) {
	alias := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.7\nfake-pdf\n"))
	}))
	defer alias.Close()

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, alias.URL+"/document.do", http.StatusFound)
	}))
	defer primary.Close()

	exportTrustedHosts["FC_DECISIONS"] = []string{mustHost(t, primary.URL), mustHost(t, alias.URL)}
	defer delete(exportTrustedHosts, "FC_DECISIONS")

	srv := newTestExportServer(t)
	mux := srv.NewMux()

	documentURL := primary.URL + "/fc-cf/decisions/en/item/123456/index.do"
	token := approveDocument(t, mux, documentURL)

	body := fmt.Sprintf(`{"source_id":"FC_DECISIONS","case_id":"FC-2026-123456","document_url":%q,"format":"pdf","user_approved":true,"approval_token":%q}`, documentURL, token)
	req := httptest.NewRequest(http.MethodPost, "/api/export/cases", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-1.7") {
		t.Fatalf("expected proxied pdf bytes, got %s", rec.Body.String())
	}
}

func TestExportApproval_RejectsUntrustedDocumentHostUpfront(t *testing.T) {
	exportTrustedHosts["FC_DECISIONS"] = []string{"decisions.fct-cf.gc.ca", "norma.lexum.com"}
	defer delete(exportTrustedHosts, "FC_DECISIONS")

	srv := newTestExportServer(t)
	mux := srv.NewMux()

	body := `{"source_id":"FC_DECISIONS","case_id":"FC-2026-1","document_url":"https://evil.example/doc.pdf","user_approved":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/export/cases/approval", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func mustHost(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parsing url %q: %v", rawURL, err)
	}
	return u.Host
}
