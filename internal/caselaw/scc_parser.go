package caselaw

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var sccCitationPattern = regexp.MustCompile(`\d{4}\s+SCC\s+\d+`)

// sccFeedDocument is the SCC JSON feed shape:
// {"rss":{"channel":{"item":[{"id"|"link", "title", "pubDate"}]}}}.
type sccFeedDocument struct {
	RSS struct {
		Channel struct {
			Item []sccFeedItem `json:"item"`
		} `json:"channel"`
	} `json:"rss"`
}

type sccFeedItem struct {
	ID      json.RawMessage `json:"id"`
	Link    string          `json:"link"`
	Title   string          `json:"title"`
	PubDate string          `json:"pubDate"`
}

func (i sccFeedItem) caseID() string {
	var s string
	if err := json.Unmarshal(i.ID, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(i.ID, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(i.ID), `"`)
}

// ParseSCCFeed parses the Supreme Court of Canada's JSON decisions feed.
func ParseSCCFeed(data []byte) ([]CourtDecisionRecord, error) {
	var doc sccFeedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("payload_parse_error: %w", err)
	}

	records := make([]CourtDecisionRecord, 0, len(doc.RSS.Channel.Item))
	for idx, item := range doc.RSS.Channel.Item {
		caseID := item.caseID()
		url := item.Link
		if url == "" && caseID != "" {
			url = "https://decisions.scc-csc.ca/scc-csc/scc-csc/en/item/" + caseID + "/index.do"
		}

		record := CourtDecisionRecord{
			SourceID:       "SCC_DECISIONS",
			CaseID:         caseID,
			Citation:       sccCitationPattern.FindString(item.Title),
			Title:          item.Title,
			URL:            url,
			insertionIndex: idx,
		}
		if parsed, err := time.Parse(time.RFC1123Z, item.PubDate); err == nil {
			record.DecisionDate = parsed
		} else if parsed, err := time.Parse(time.RFC1123, item.PubDate); err == nil {
			record.DecisionDate = parsed
		}

		records = append(records, record)
	}

	return records, nil
}
