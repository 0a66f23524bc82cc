package caselaw

import (
	"testing"
	"time"
)

func TestRank_NoTokensSortsByDateDescThenCaseIDAsc(t *testing.T) {
	now := time.Now()
	records := []CourtDecisionRecord{
		{CaseID: "B", DecisionDate: now},
		{CaseID: "A", DecisionDate: now},
		{CaseID: "C", DecisionDate: now.Add(-time.Hour)},
	}

	ranked := Rank(records, "   ", 10)

	if ranked[0].CaseID != "A" || ranked[1].CaseID != "B" || ranked[2].CaseID != "C" {
		t.Fatalf("unexpected order: %+v", ranked)
	}
}

func TestRank_DropsZeroScoreRecords(t *testing.T) {
	records := []CourtDecisionRecord{
		{CaseID: "1", Title: "inadmissibility hearing outcome", DecisionDate: time.Now()},
		{CaseID: "2", Title: "completely unrelated matter", DecisionDate: time.Now()},
	}

	ranked := Rank(records, "inadmissibility", 10)

	if len(ranked) != 1 || ranked[0].CaseID != "1" {
		t.Fatalf("expected only the matching record, got %+v", ranked)
	}
}

func TestRank_CompactQueryBonusBreaksTies(t *testing.T) {
	now := time.Now()
	records := []CourtDecisionRecord{
		{CaseID: "exact", Title: "judicial review", DecisionDate: now, insertionIndex: 0},
		{CaseID: "concatenated", Title: "judicialreview", DecisionDate: now, insertionIndex: 1},
	}

	ranked := Rank(records, "judicial review", 10)

	if ranked[0].CaseID != "exact" {
		t.Fatalf("expected the space-separated exact compact-query match to rank first, got %+v", ranked)
	}
}

func TestRank_RespectsLimit(t *testing.T) {
	records := []CourtDecisionRecord{
		{CaseID: "1", Title: "removal order appeal", DecisionDate: time.Now()},
		{CaseID: "2", Title: "removal order stay", DecisionDate: time.Now()},
		{CaseID: "3", Title: "removal order review", DecisionDate: time.Now()},
	}

	ranked := Rank(records, "removal order", 2)
	if len(ranked) != 2 {
		t.Fatalf("expected results capped at limit=2, got %d", len(ranked))
	}
}

func TestValidate_ClassifiesInvalidRecords(t *testing.T) {
	records := []CourtDecisionRecord{
		{CaseID: "ok", Citation: "2024 SCC 1", Title: "a case", DecisionDate: time.Now()},
		{CaseID: "missing-citation", Title: "a case", DecisionDate: time.Now()},
		{CaseID: "missing-date", Citation: "2024 SCC 2", Title: "a case"},
		{CaseID: "missing-title", Citation: "2024 SCC 3", DecisionDate: time.Now()},
	}

	report := Validate(records)

	if report.RecordsTotal != 4 {
		t.Fatalf("expected records_total=4, got %d", report.RecordsTotal)
	}
	if report.RecordsValid != 1 {
		t.Fatalf("expected records_valid=1, got %d", report.RecordsValid)
	}
	if report.RecordsInvalid != 3 {
		t.Fatalf("expected records_invalid=3, got %d", report.RecordsInvalid)
	}
}
