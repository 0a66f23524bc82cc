// Package metrics implements the Metrics & Audit component (N): request
// counters, a bounded latency sample buffer, and percentile computation,
// all exposed via a snapshot for the GET /ops/metrics endpoint.
package metrics

import (
	"math"
	"sync"
	"time"
)

const defaultMaxLatencySamples = 2048

// Metrics accumulates api/chat/export counters and a bounded window of
// recent request latencies.
type Metrics struct {
	mu sync.Mutex

	startedAt time.Time
	nowFn     func() time.Time

	apiRequests   int64
	apiErrors     int64
	chatRequests  int64
	chatFallbacks int64
	chatRefusals  int64

	exportAttempts      int64
	exportAllowed       int64
	exportBlocked       int64
	exportFetchFailures int64
	exportTooLarge      int64
	exportPolicyReasons map[string]int64

	maxLatencySamples int
	latenciesMs       []float64
}

// New builds a Metrics recorder with the given latency sample cap (0 uses
// the default of 2048).
func New(maxLatencySamples int) *Metrics {
	if maxLatencySamples <= 0 {
		maxLatencySamples = defaultMaxLatencySamples
	}
	return &Metrics{
		startedAt:           time.Now(),
		nowFn:               time.Now,
		maxLatencySamples:   maxLatencySamples,
		exportPolicyReasons: map[string]int64{},
	}
}

// RecordAPIResponse records one completed HTTP request.
func (m *Metrics) RecordAPIResponse(statusCode int, duration time.Duration) {
	latencyMs := duration.Seconds() * 1000.0
	if latencyMs < 0 {
		latencyMs = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.apiRequests++
	if statusCode >= 400 {
		m.apiErrors++
	}

	m.latenciesMs = append(m.latenciesMs, latencyMs)
	if len(m.latenciesMs) > m.maxLatencySamples {
		m.latenciesMs = m.latenciesMs[len(m.latenciesMs)-m.maxLatencySamples:]
	}
}

// RecordChatOutcome records one completed chat request.
func (m *Metrics) RecordChatOutcome(fallbackUsed, refusalUsed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chatRequests++
	if fallbackUsed {
		m.chatFallbacks++
	}
	if refusalUsed {
		m.chatRefusals++
	}
}

// ExportOutcome classifies one case-law export attempt.
type ExportOutcome string

const (
	ExportOutcomeAllowed     ExportOutcome = "allowed"
	ExportOutcomeBlocked     ExportOutcome = "blocked"
	ExportOutcomeFetchFailed ExportOutcome = "fetch_failed"
	ExportOutcomeTooLarge    ExportOutcome = "too_large"
)

// RecordExportOutcome records one export attempt and, if supplied, the
// policy_reason that produced it.
func (m *Metrics) RecordExportOutcome(outcome ExportOutcome, policyReason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exportAttempts++
	switch outcome {
	case ExportOutcomeAllowed:
		m.exportAllowed++
	case ExportOutcomeBlocked:
		m.exportBlocked++
	case ExportOutcomeFetchFailed:
		m.exportFetchFailures++
	case ExportOutcomeTooLarge:
		m.exportTooLarge++
	}
	if policyReason != "" {
		m.exportPolicyReasons[policyReason]++
	}
}

// Snapshot is the point-in-time view returned by GET /ops/metrics.
type Snapshot struct {
	WindowSeconds float64              `json:"window_seconds"`
	Requests      RequestsSnapshot     `json:"requests"`
	Errors        RateSnapshot         `json:"errors"`
	Fallback      RateSnapshot         `json:"fallback"`
	Refusal       RateSnapshot         `json:"refusal"`
	Export        ExportSnapshot       `json:"export"`
	LatencyMs     LatencySnapshot      `json:"latency_ms"`
}

type RequestsSnapshot struct {
	Total         int64   `json:"total"`
	RatePerMinute float64 `json:"rate_per_minute"`
}

type RateSnapshot struct {
	Total int64   `json:"total"`
	Rate  float64 `json:"rate"`
}

type ExportSnapshot struct {
	Attempts      int64            `json:"attempts"`
	Allowed       int64            `json:"allowed"`
	Blocked       int64            `json:"blocked"`
	FetchFailures int64            `json:"fetch_failures"`
	TooLarge      int64            `json:"too_large"`
	PolicyReasons map[string]int64 `json:"policy_reasons"`
}

type LatencySnapshot struct {
	SampleCount int     `json:"sample_count"`
	P50         float64 `json:"p50"`
	P95         float64 `json:"p95"`
	P99         float64 `json:"p99"`
}

// Snapshot returns a consistent, point-in-time copy of every counter and
// the derived rates and latency percentiles.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	elapsed := m.nowFn().Sub(m.startedAt).Seconds()
	if elapsed <= 0 {
		elapsed = 1e-9
	}
	apiRequests := m.apiRequests
	apiErrors := m.apiErrors
	chatRequests := m.chatRequests
	chatFallbacks := m.chatFallbacks
	chatRefusals := m.chatRefusals
	exportAttempts := m.exportAttempts
	exportAllowed := m.exportAllowed
	exportBlocked := m.exportBlocked
	exportFetchFailures := m.exportFetchFailures
	exportTooLarge := m.exportTooLarge
	policyReasons := make(map[string]int64, len(m.exportPolicyReasons))
	for k, v := range m.exportPolicyReasons {
		policyReasons[k] = v
	}
	latencies := append([]float64(nil), m.latenciesMs...)
	m.mu.Unlock()

	requestRatePerMinute := (float64(apiRequests) / elapsed) * 60.0

	var errorRate, fallbackRate, refusalRate float64
	if apiRequests > 0 {
		errorRate = float64(apiErrors) / float64(apiRequests)
	}
	if chatRequests > 0 {
		fallbackRate = float64(chatFallbacks) / float64(chatRequests)
		refusalRate = float64(chatRefusals) / float64(chatRequests)
	}

	return Snapshot{
		WindowSeconds: elapsed,
		Requests:      RequestsSnapshot{Total: apiRequests, RatePerMinute: requestRatePerMinute},
		Errors:        RateSnapshot{Total: apiErrors, Rate: errorRate},
		Fallback:      RateSnapshot{Total: chatFallbacks, Rate: fallbackRate},
		Refusal:       RateSnapshot{Total: chatRefusals, Rate: refusalRate},
		Export: ExportSnapshot{
			Attempts:      exportAttempts,
			Allowed:       exportAllowed,
			Blocked:       exportBlocked,
			FetchFailures: exportFetchFailures,
			TooLarge:      exportTooLarge,
			PolicyReasons: policyReasons,
		},
		LatencyMs: LatencySnapshot{
			SampleCount: len(latencies),
			P50:         percentile(latencies, 50.0),
			P95:         percentile(latencies, 95.0),
			P99:         percentile(latencies, 99.0),
		},
	}
}

// percentile computes the percentile-th percentile over values by linear
// interpolation between the two nearest ranks of a sorted copy.
func percentile(values []float64, pct float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}

	ordered := append([]float64(nil), values...)
	sortFloats(ordered)

	rank := float64(len(ordered)-1) * (pct / 100.0)
	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))
	lowerValue := ordered[lowerIndex]
	upperValue := ordered[upperIndex]
	if lowerIndex == upperIndex {
		return lowerValue
	}
	blend := rank - float64(lowerIndex)
	return lowerValue + (upperValue-lowerValue)*blend
}

func sortFloats(values []float64) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j-1] > values[j]; j-- {
			values[j-1], values[j] = values[j], values[j-1]
		}
	}
}
