package caselaw

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrSourceUnavailable is raised when the official client could not
// produce any records for a query: either no source was configured, or
// every fanned-out source errored.
var ErrSourceUnavailable = errors.New("official case-law source unavailable")

// sourceIDsByCourt maps a requested court hint to the 1-3 official source
// ids that should be queried for it. An unrecognized or empty hint queries
// all three.
func sourceIDsByCourt(court string) []string {
	switch strings.ToLower(strings.TrimSpace(court)) {
	case "scc":
		return []string{"SCC_DECISIONS"}
	case "fc", "fct", "fc-cf":
		return []string{"FC_DECISIONS"}
	case "fca", "caf", "fca-caf":
		return []string{"FCA_DECISIONS"}
	default:
		return []string{"SCC_DECISIONS", "FC_DECISIONS", "FCA_DECISIONS"}
	}
}

// OfficialClient fetches and parses the three official Canadian case-law
// feeds (SCC JSON, FC/FCA Decisia RSS, with an HTML fallback for FCA).
type OfficialClient struct {
	FeedURLs   map[string]string // source_id -> feed URL
	HTTPClient *http.Client
	Timeout    time.Duration
}

type sourceFetchResult struct {
	sourceID string
	records  []CourtDecisionRecord
	err      error
}

// Search fans out to the source ids resolved from court, concurrently,
// and merges the records of the sources that succeeded, in the order
// sourceIDsByCourt lists them (independent of which fetch finishes first).
// If every source errored (or none were configured), it returns
// ErrSourceUnavailable.
func (c *OfficialClient) Search(ctx context.Context, court string) ([]CourtDecisionRecord, error) {
	sourceIDs := sourceIDsByCourt(court)

	resultsCh := make(chan sourceFetchResult, len(sourceIDs))
	var wg sync.WaitGroup

	for _, sourceID := range sourceIDs {
		wg.Add(1)
		go func(sourceID string) {
			defer wg.Done()
			records, err := c.fetchSource(ctx, sourceID)
			resultsCh <- sourceFetchResult{sourceID: sourceID, records: records, err: err}
		}(sourceID)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	bySource := make(map[string][]CourtDecisionRecord, len(sourceIDs))
	anySucceeded := false
	for result := range resultsCh {
		if result.err != nil {
			continue
		}
		anySucceeded = true
		bySource[result.sourceID] = result.records
	}

	var merged []CourtDecisionRecord
	for _, sourceID := range sourceIDs {
		merged = append(merged, bySource[sourceID]...)
	}

	if !anySucceeded {
		return nil, ErrSourceUnavailable
	}

	return merged, nil
}

func (c *OfficialClient) fetchSource(ctx context.Context, sourceID string) ([]CourtDecisionRecord, error) {
	url, ok := c.FeedURLs[sourceID]
	if !ok || url == "" {
		return nil, errors.New("no feed url configured for " + sourceID)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch sourceID {
	case "SCC_DECISIONS":
		return ParseSCCFeed(body)
	case "FCA_DECISIONS":
		records, err := ParseDecisiaFeed(sourceID, body)
		if err != nil {
			return ParseFCAHTMLFallback(body)
		}
		return records, nil
	default:
		return ParseDecisiaFeed(sourceID, body)
	}
}
