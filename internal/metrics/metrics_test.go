package metrics

import (
	"testing"
	"time"
)

func TestRecordAPIResponse_CountsRequestsAndErrors(t *testing.T) {
	m := New(0)

	m.RecordAPIResponse(200, 10*time.Millisecond)
	m.RecordAPIResponse(404, 5*time.Millisecond)
	m.RecordAPIResponse(503, 5*time.Millisecond)

	snap := m.Snapshot()
	if snap.Requests.Total != 3 {
		t.Fatalf("expected 3 requests, got %d", snap.Requests.Total)
	}
	if snap.Errors.Total != 2 {
		t.Fatalf("expected 2 errors, got %d", snap.Errors.Total)
	}
	if snap.Errors.Rate < 0.66 || snap.Errors.Rate > 0.67 {
		t.Fatalf("expected error rate ~0.667, got %f", snap.Errors.Rate)
	}
}

func TestRecordAPIResponse_CapsLatencySamples(t *testing.T) {
	m := New(3)

	for i := 0; i < 10; i++ {
		m.RecordAPIResponse(200, time.Duration(i+1)*time.Millisecond)
	}

	snap := m.Snapshot()
	if snap.LatencyMs.SampleCount != 3 {
		t.Fatalf("expected latency samples capped at 3, got %d", snap.LatencyMs.SampleCount)
	}
}

func TestRecordChatOutcome_CountsFallbacksAndRefusals(t *testing.T) {
	m := New(0)

	m.RecordChatOutcome(false, false)
	m.RecordChatOutcome(true, false)
	m.RecordChatOutcome(false, true)

	snap := m.Snapshot()
	if snap.Requests.Total != 0 {
		t.Fatalf("chat outcomes should not affect api request count, got %d", snap.Requests.Total)
	}
	if snap.Fallback.Total != 1 {
		t.Fatalf("expected 1 fallback, got %d", snap.Fallback.Total)
	}
	if snap.Refusal.Total != 1 {
		t.Fatalf("expected 1 refusal, got %d", snap.Refusal.Total)
	}
	if snap.Fallback.Rate < 0.33 || snap.Fallback.Rate > 0.34 {
		t.Fatalf("expected fallback rate ~0.333, got %f", snap.Fallback.Rate)
	}
}

func TestRecordExportOutcome_TracksPolicyReasons(t *testing.T) {
	m := New(0)

	m.RecordExportOutcome(ExportOutcomeAllowed, "")
	m.RecordExportOutcome(ExportOutcomeBlocked, "source_export_blocked")
	m.RecordExportOutcome(ExportOutcomeBlocked, "source_export_blocked")
	m.RecordExportOutcome(ExportOutcomeTooLarge, "export_payload_too_large")

	snap := m.Snapshot()
	if snap.Export.Attempts != 4 {
		t.Fatalf("expected 4 export attempts, got %d", snap.Export.Attempts)
	}
	if snap.Export.Allowed != 1 || snap.Export.Blocked != 2 || snap.Export.TooLarge != 1 {
		t.Fatalf("unexpected export breakdown: %+v", snap.Export)
	}
	if snap.Export.PolicyReasons["source_export_blocked"] != 2 {
		t.Fatalf("expected 2 source_export_blocked reasons, got %d", snap.Export.PolicyReasons["source_export_blocked"])
	}
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}

	if got := percentile(values, 50); got != 30 {
		t.Fatalf("expected p50=30, got %f", got)
	}
	if got := percentile(values, 0); got != 10 {
		t.Fatalf("expected p0=10, got %f", got)
	}
	if got := percentile(values, 100); got != 50 {
		t.Fatalf("expected p100=50, got %f", got)
	}
}

func TestPercentile_EmptyAndSingleValue(t *testing.T) {
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("expected 0 for empty input, got %f", got)
	}
	if got := percentile([]float64{42}, 95); got != 42 {
		t.Fatalf("expected single value returned as-is, got %f", got)
	}
}

func TestSnapshot_RequestRatePerMinute(t *testing.T) {
	m := New(0)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.startedAt = fixed
	m.nowFn = func() time.Time { return fixed.Add(30 * time.Second) }

	for i := 0; i < 15; i++ {
		m.RecordAPIResponse(200, time.Millisecond)
	}

	snap := m.Snapshot()
	if snap.Requests.RatePerMinute < 29 || snap.Requests.RatePerMinute > 31 {
		t.Fatalf("expected ~30 requests/minute, got %f", snap.Requests.RatePerMinute)
	}
}
