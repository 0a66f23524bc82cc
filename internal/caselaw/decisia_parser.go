package caselaw

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/mmcdole/gofeed"
)

var decisiaCitationPattern = regexp.MustCompile(`\d{4}\s+(?:FC|FCA|CAF)\s+\d+`)

// ParseDecisiaFeed parses an RSS feed from the Decisia case-law platform
// (used by both the Federal Court and the Federal Court of Appeal),
// extracting the neutral citation from each item's title.
func ParseDecisiaFeed(sourceID string, data []byte) ([]CourtDecisionRecord, error) {
	parser := gofeed.NewParser()
	feed, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("payload_parse_error: %w", err)
	}

	records := make([]CourtDecisionRecord, 0, len(feed.Items))
	for idx, item := range feed.Items {
		record := CourtDecisionRecord{
			SourceID:       sourceID,
			Citation:       decisiaCitationPattern.FindString(item.Title),
			Title:          item.Title,
			URL:            item.Link,
			insertionIndex: idx,
		}
		if item.PublishedParsed != nil {
			record.DecisionDate = *item.PublishedParsed
		}
		record.CaseID = record.Citation
		if record.CaseID == "" {
			record.CaseID = item.Link
		}

		records = append(records, record)
	}

	return records, nil
}
