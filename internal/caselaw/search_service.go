package caselaw

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// SearchService composes the official client (tried first) with the CanLII
// licensed fallback (tried when the official client is unavailable), then
// ranks and limits the merged results.
type SearchService struct {
	Official *OfficialClient
	Fallback *CanLIIClient
}

var queryTokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Search runs the official-first/licensed-fallback policy and returns up to
// limit ranked records. If the official client is not configured, the
// fallback client is used; ErrSourceUnavailable is returned only when
// neither client is configured.
func (s *SearchService) Search(ctx context.Context, query, jurisdiction, court string, limit int) ([]CourtDecisionRecord, error) {
	var records []CourtDecisionRecord

	if s.Official != nil {
		officialRecords, err := s.Official.Search(ctx, court)
		if err == nil {
			records = officialRecords
		} else if s.Fallback == nil {
			return nil, err
		}
	} else if s.Fallback == nil {
		return nil, ErrSourceUnavailable
	}

	if records == nil && s.Fallback != nil {
		records = s.Fallback.Search(ctx, query, jurisdiction, court, limit)
	}

	for i := range records {
		records[i].insertionIndex = i
	}

	return Rank(records, query, limit), nil
}

// Rank implements the ranking algorithm from spec.md §4.11: tokenize the
// query, score each record by token hits plus a bonus for the whole
// (compacted) query appearing verbatim in the record's haystack, drop
// zero-score records, and sort by (score desc, decision_date desc,
// insertion_index asc). With no query tokens, ranking degrades to
// (decision_date desc, case_id asc).
func Rank(records []CourtDecisionRecord, query string, limit int) []CourtDecisionRecord {
	lowerQuery := strings.ToLower(query)
	tokens := queryTokenPattern.FindAllString(lowerQuery, -1)
	compactQuery := strings.Join(tokens, " ")

	if len(tokens) == 0 {
		sorted := append([]CourtDecisionRecord(nil), records...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if !sorted[i].DecisionDate.Equal(sorted[j].DecisionDate) {
				return sorted[i].DecisionDate.After(sorted[j].DecisionDate)
			}
			return sorted[i].CaseID < sorted[j].CaseID
		})
		return capResults(sorted, limit)
	}

	type scored struct {
		record CourtDecisionRecord
		score  int
	}

	var candidates []scored
	for _, r := range records {
		haystack := strings.ToLower(r.Title + " " + r.Citation + " " + r.CaseID)
		score := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				score++
			}
		}
		if compactQuery != "" && strings.Contains(haystack, compactQuery) {
			score += 5
		}
		if score == 0 {
			continue
		}
		candidates = append(candidates, scored{record: r, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if !candidates[i].record.DecisionDate.Equal(candidates[j].record.DecisionDate) {
			return candidates[i].record.DecisionDate.After(candidates[j].record.DecisionDate)
		}
		return candidates[i].record.insertionIndex < candidates[j].record.insertionIndex
	})

	ranked := make([]CourtDecisionRecord, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.record
	}

	return capResults(ranked, limit)
}

func capResults(records []CourtDecisionRecord, limit int) []CourtDecisionRecord {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
