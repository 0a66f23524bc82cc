// Package ingestion implements the Fetch Policy (B), Checkpoint Store (C),
// and Ingestion Engine (D).
package ingestion

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FetchRule is a per-source (or default) fetch policy: timeout, retry
// count, and backoff base.
type FetchRule struct {
	TimeoutSeconds      float64 `yaml:"timeout_seconds"`
	MaxRetries          int     `yaml:"max_retries"`
	RetryBackoffSeconds float64 `yaml:"retry_backoff_seconds"`
}

// Timeout returns the rule's timeout as a time.Duration.
func (r FetchRule) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds * float64(time.Second))
}

// Backoff returns the wait duration before attempt n (1-indexed,
// n=1 is the first retry after the initial attempt), per spec.md §4.4:
// retry_backoff_seconds · 2^attempt.
func (r FetchRule) Backoff(attempt int) time.Duration {
	seconds := r.RetryBackoffSeconds
	for i := 0; i < attempt; i++ {
		seconds *= 2
	}
	return time.Duration(seconds * float64(time.Second))
}

// FetchPolicy resolves the effective FetchRule per source.
type FetchPolicy struct {
	Default  FetchRule
	BySource map[string]FetchRule
}

// DefaultRule returns the baseline rule when no policy file is configured:
// timeout clamped to at least 1s, exactly one attempt (max_retries=0 means
// "no additional attempts", i.e. exactly one attempt total, per the
// resolution of spec.md's Open Question), and a 0.5s backoff base.
func DefaultRule(defaultTimeoutSeconds float64) FetchRule {
	timeout := defaultTimeoutSeconds
	if timeout < 1.0 {
		timeout = 1.0
	}
	return FetchRule{
		TimeoutSeconds:      timeout,
		MaxRetries:          0,
		RetryBackoffSeconds: 0.5,
	}
}

// ForSource returns the effective rule for source_id: the per-source
// override if configured, otherwise the default.
func (p *FetchPolicy) ForSource(sourceID string) FetchRule {
	if rule, ok := p.BySource[sourceID]; ok {
		return rule
	}
	return p.Default
}

type rawFetchPolicy struct {
	Default map[string]any            `yaml:"default"`
	Sources map[string]map[string]any `yaml:"sources"`
}

// LoadFetchPolicy reads a YAML fetch policy file. A missing path is not an
// error: it yields a policy with only the baseline default rule. Each
// field is coerced independently; an invalid or out-of-range field falls
// back to that field's value in the rule below it (the baseline for the
// default block, the parsed default for a per-source override), not the
// whole rule.
func LoadFetchPolicy(path string, defaultTimeoutSeconds float64) (*FetchPolicy, error) {
	baseline := DefaultRule(defaultTimeoutSeconds)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FetchPolicy{Default: baseline, BySource: map[string]FetchRule{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading fetch policy: %w", err)
	}

	var raw rawFetchPolicy
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing fetch policy: %w", err)
	}

	parsedDefault := parseRule(raw.Default, baseline)
	bySource := make(map[string]FetchRule, len(raw.Sources))
	for sourceID, override := range raw.Sources {
		if sourceID == "" {
			continue
		}
		bySource[sourceID] = parseRule(override, parsedDefault)
	}

	return &FetchPolicy{Default: parsedDefault, BySource: bySource}, nil
}

func parseRule(raw map[string]any, fallback FetchRule) FetchRule {
	return FetchRule{
		TimeoutSeconds:      coercePositiveFloat(raw["timeout_seconds"], fallback.TimeoutSeconds),
		MaxRetries:          coerceNonNegativeInt(raw["max_retries"], fallback.MaxRetries),
		RetryBackoffSeconds: coerceNonNegativeFloat(raw["retry_backoff_seconds"], fallback.RetryBackoffSeconds),
	}
}

func coercePositiveFloat(value any, fallback float64) float64 {
	f, ok := asFloat(value)
	if !ok || f <= 0 {
		return fallback
	}
	return f
}

func coerceNonNegativeFloat(value any, fallback float64) float64 {
	f, ok := asFloat(value)
	if !ok || f < 0 {
		return fallback
	}
	return f
}

func coerceNonNegativeInt(value any, fallback int) int {
	f, ok := asFloat(value)
	if !ok || f < 0 {
		return fallback
	}
	return int(f)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
