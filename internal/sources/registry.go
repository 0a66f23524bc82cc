// Package sources implements the Source Registry and Source Policy (A): a
// validated, deduplicated catalog of source identifiers, URLs, cadence,
// class, and per-environment allow/deny flags.
package sources

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// SourceType is the kind of legal instrument a source provides.
type SourceType string

const (
	SourceTypeStatute    SourceType = "statute"
	SourceTypeRegulation SourceType = "regulation"
	SourceTypePolicy     SourceType = "policy"
	SourceTypeCaseLaw    SourceType = "case_law"
)

// UpdateCadence is how often a source should be re-fetched.
type UpdateCadence string

const (
	CadenceDaily                UpdateCadence = "daily"
	CadenceWeekly               UpdateCadence = "weekly"
	CadenceScheduledIncremental UpdateCadence = "scheduled_incremental"
)

// RegistryEntry is one source in the registry.
type RegistryEntry struct {
	SourceID      string        `json:"source_id"`
	SourceType    SourceType    `json:"source_type"`
	Instrument    string        `json:"instrument"`
	URL           string        `json:"url"`
	UpdateCadence UpdateCadence `json:"update_cadence"`
}

// Registry is a validated, deduplicated catalog of sources.
type Registry struct {
	Version     string          `json:"version"`
	Jurisdiction string         `json:"jurisdiction"`
	Sources     []RegistryEntry `json:"sources"`

	bySourceID map[string]RegistryEntry
}

var validSourceTypes = map[SourceType]bool{
	SourceTypeStatute:    true,
	SourceTypeRegulation: true,
	SourceTypePolicy:     true,
	SourceTypeCaseLaw:    true,
}

var validCadences = map[UpdateCadence]bool{
	CadenceDaily:                true,
	CadenceWeekly:               true,
	CadenceScheduledIncremental: true,
}

var sourceIDPattern = regexp.MustCompile(`^.{3,128}$`)

// LoadRegistry reads and validates a source registry from a JSON file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing source registry: %w", err)
	}

	if err := reg.validate(); err != nil {
		return nil, err
	}

	return &reg, nil
}

func (r *Registry) validate() error {
	if strings.ToLower(r.Jurisdiction) != "ca" {
		return fmt.Errorf("source registry jurisdiction must be \"ca\", got %q", r.Jurisdiction)
	}

	seen := make(map[string]bool, len(r.Sources))
	index := make(map[string]RegistryEntry, len(r.Sources))
	for _, entry := range r.Sources {
		if !sourceIDPattern.MatchString(entry.SourceID) {
			return fmt.Errorf("invalid source_id %q: must be 3-128 characters", entry.SourceID)
		}
		if seen[entry.SourceID] {
			return fmt.Errorf("duplicate source_id in registry: %s", entry.SourceID)
		}
		seen[entry.SourceID] = true

		if !validSourceTypes[entry.SourceType] {
			return fmt.Errorf("source %s: invalid source_type %q", entry.SourceID, entry.SourceType)
		}
		if !validCadences[entry.UpdateCadence] {
			return fmt.Errorf("source %s: invalid update_cadence %q", entry.SourceID, entry.UpdateCadence)
		}
		if !strings.HasPrefix(entry.URL, "https://") {
			return fmt.Errorf("source %s: url must be https", entry.SourceID)
		}

		index[entry.SourceID] = entry
	}

	r.bySourceID = index
	return nil
}

// GetSource returns the registry entry for source_id, or false if absent.
func (r *Registry) GetSource(sourceID string) (RegistryEntry, bool) {
	entry, ok := r.bySourceID[sourceID]
	return entry, ok
}

// AllSources returns every entry in the registry.
func (r *Registry) AllSources() []RegistryEntry {
	return r.Sources
}
