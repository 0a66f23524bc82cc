package caselaw

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ParseFCAHTMLFallback is the lenient HTML list parser used when the FCA
// Decisia RSS feed fails to parse: it walks every <a> anchor and treats its
// text and href as a case title and URL, pulling the neutral citation out
// of the anchor text and any trailing date-shaped text as the decision
// date. Anchors whose text carries no neutral citation are skipped.
func ParseFCAHTMLFallback(data []byte) ([]CourtDecisionRecord, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))

	var records []CourtDecisionRecord
	idx := 0

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken {
			continue
		}

		name, hasAttr := tokenizer.TagName()
		if string(name) != "a" {
			continue
		}

		var href string
		if hasAttr {
			for {
				key, val, more := tokenizer.TagAttr()
				if string(key) == "href" {
					href = string(val)
				}
				if !more {
					break
				}
			}
		}

		text := strings.TrimSpace(collectAnchorText(tokenizer))
		if text == "" {
			continue
		}

		citation := decisiaCitationPattern.FindString(text)
		if citation == "" {
			continue
		}

		record := CourtDecisionRecord{
			SourceID:       "FCA_DECISIONS",
			CaseID:         citation,
			Citation:       citation,
			Title:          text,
			URL:            href,
			DecisionDate:   extractTrailingDate(text),
			insertionIndex: idx,
		}
		idx++

		records = append(records, record)
	}

	return records, nil
}

// collectAnchorText reads tokens until the matching </a>, concatenating
// text content.
func collectAnchorText(z *html.Tokenizer) string {
	var b strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return b.String()
		}
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			if string(name) == "a" {
				return b.String()
			}
			continue
		}
		if tt == html.TextToken {
			b.Write(z.Text())
		}
	}
}

var trailingDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

func extractTrailingDate(text string) time.Time {
	match := trailingDatePattern.FindString(text)
	if match == "" {
		return time.Time{}
	}
	parsed, err := time.Parse("2006-01-02", match)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
