package sources

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceClass classifies how authoritative a source is.
type SourceClass string

const (
	SourceClassOfficial   SourceClass = "official"
	SourceClassUnofficial SourceClass = "unofficial"
	SourceClassCommercial SourceClass = "commercial"
)

// PolicyEntry is the per-source policy record.
type PolicyEntry struct {
	SourceID                string      `yaml:"source_id" json:"source_id"`
	SourceClass             SourceClass `yaml:"source_class" json:"source_class"`
	InternalIngestAllowed   bool        `yaml:"internal_ingest_allowed" json:"internal_ingest_allowed"`
	ProductionIngestAllowed bool        `yaml:"production_ingest_allowed" json:"production_ingest_allowed"`
	AnswerCitationAllowed   bool        `yaml:"answer_citation_allowed" json:"answer_citation_allowed"`
	ExportFulltextAllowed   bool        `yaml:"export_fulltext_allowed" json:"export_fulltext_allowed"`
	LicenseNotes            string      `yaml:"license_notes" json:"license_notes"`
	ReviewOwner             string      `yaml:"review_owner" json:"review_owner"`
	ReviewDate              string      `yaml:"review_date" json:"review_date"`
}

// Policy is the full per-source policy catalog.
type Policy struct {
	Version      string        `yaml:"version" json:"version"`
	Jurisdiction string        `yaml:"jurisdiction" json:"jurisdiction"`
	Sources      []PolicyEntry `yaml:"sources" json:"sources"`

	bySourceID map[string]PolicyEntry
}

var reviewDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// LoadPolicy reads and validates a source policy document. The file is
// always decoded as YAML, which also accepts JSON; the extension is not
// consulted.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing source policy: %w", err)
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (p *Policy) validate() error {
	if strings.ToLower(p.Jurisdiction) != "ca" {
		return fmt.Errorf("source policy jurisdiction must be \"ca\", got %q", p.Jurisdiction)
	}

	seen := make(map[string]bool, len(p.Sources))
	index := make(map[string]PolicyEntry, len(p.Sources))
	for _, entry := range p.Sources {
		if seen[entry.SourceID] {
			return fmt.Errorf("duplicate source_id in source policy: %s", entry.SourceID)
		}
		seen[entry.SourceID] = true

		if !reviewDatePattern.MatchString(entry.ReviewDate) {
			return fmt.Errorf("source %s: review_date must be YYYY-MM-DD", entry.SourceID)
		}

		index[entry.SourceID] = entry
	}

	p.bySourceID = index
	return nil
}

// GetSource returns the policy entry for source_id, or false if absent.
func (p *Policy) GetSource(sourceID string) (PolicyEntry, bool) {
	entry, ok := p.bySourceID[sourceID]
	return entry, ok
}

// RuntimeEnvironment classifies the deployment environment for policy gating.
type RuntimeEnvironment string

const (
	EnvironmentProduction RuntimeEnvironment = "production"
	EnvironmentInternal   RuntimeEnvironment = "internal"
)

var hardenedEnvironmentPattern = regexp.MustCompile(`^(production|prod|ci)(?:[-_].+)?$`)

// NormalizeRuntimeEnvironment classifies an environment string as
// production or internal.
func NormalizeRuntimeEnvironment(environment string) RuntimeEnvironment {
	normalized := strings.ToLower(strings.TrimSpace(environment))
	if normalized == "" {
		normalized = "development"
	}
	if hardenedEnvironmentPattern.MatchString(normalized) {
		return EnvironmentProduction
	}
	return EnvironmentInternal
}

// IsIngestAllowed reports whether source_id may be ingested in the given
// environment, and the policy_reason explaining the decision.
func IsIngestAllowed(sourceID string, policy *Policy, environment string) (bool, string) {
	runtimeEnv := NormalizeRuntimeEnvironment(environment)
	entry, ok := policy.GetSource(sourceID)

	if !ok {
		if runtimeEnv == EnvironmentProduction {
			return false, "source_not_in_policy_for_production"
		}
		return true, "source_not_in_policy_allowed_internal"
	}

	if runtimeEnv == EnvironmentProduction {
		if entry.ProductionIngestAllowed {
			return true, "production_ingest_allowed"
		}
		return false, "production_ingest_blocked_by_policy"
	}

	if entry.InternalIngestAllowed {
		return true, "internal_ingest_allowed"
	}
	return false, "internal_ingest_blocked_by_policy"
}

// IsExportAllowed reports whether source_id's full text may be exported,
// independent of runtime environment.
func IsExportAllowed(sourceID string, policy *Policy) (bool, string) {
	entry, ok := policy.GetSource(sourceID)
	if !ok {
		return false, "source_not_in_policy_for_export"
	}
	if entry.ExportFulltextAllowed {
		return true, "source_export_allowed"
	}
	return false, "source_export_blocked_by_policy"
}
