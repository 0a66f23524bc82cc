// Package grounding implements the Grounding Adapter (E): citation
// candidates attached to a chat answer before it reaches the policy gate's
// citation-enforcement step.
package grounding

import (
	"strings"

	"immcad-api/internal/domain"
)

const defaultMaxCitations = 3

// Adapter produces ordered citation candidates for a chat message.
type Adapter interface {
	CitationCandidates(message string, locale domain.Locale, mode string) []domain.Citation
}

// baselineCitation is the fixed IRPA anchor citation every grounding adapter
// falls back to. StaticAdapter and KeywordAdapter return it first;
// RetrieverAdapter appends it after the retrieved citations.
func baselineCitation() domain.Citation {
	return domain.Citation{
		SourceID: "IRPA",
		Title:    "Immigration and Refugee Protection Act",
		URL:      "https://laws-lois.justice.gc.ca/eng/acts/i-2.5/",
		Pin:      "s. 11",
	}
}

// StaticAdapter always returns the baseline citation, nothing else.
type StaticAdapter struct{}

func (StaticAdapter) CitationCandidates(message string, locale domain.Locale, mode string) []domain.Citation {
	return []domain.Citation{baselineCitation()}
}

// KeywordBundle maps a set of trigger keywords to citations that should be
// surfaced when a message contains any of them.
type KeywordBundle struct {
	Keywords  []string
	Citations []domain.Citation
}

// KeywordAdapter scans a message for configured keyword bundles and returns
// their citations, always including the baseline.
type KeywordAdapter struct {
	Bundles      []KeywordBundle
	MaxCitations int
}

// NewKeywordAdapter builds a KeywordAdapter over the given bundles.
func NewKeywordAdapter(bundles []KeywordBundle, maxCitations int) *KeywordAdapter {
	if maxCitations <= 0 {
		maxCitations = defaultMaxCitations
	}
	return &KeywordAdapter{Bundles: bundles, MaxCitations: maxCitations}
}

func (a *KeywordAdapter) CitationCandidates(message string, locale domain.Locale, mode string) []domain.Citation {
	lower := strings.ToLower(message)

	out := []domain.Citation{baselineCitation()}
	seen := map[string]bool{out[0].SourceID + "|" + out[0].Pin: true}

	for _, bundle := range a.Bundles {
		if len(out) >= a.MaxCitations {
			break
		}
		if !bundleMatches(lower, bundle.Keywords) {
			continue
		}
		for _, c := range bundle.Citations {
			if len(out) >= a.MaxCitations {
				break
			}
			key := c.SourceID + "|" + c.Pin
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}

	return out
}

func bundleMatches(lowerMessage string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowerMessage, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// OfficialGroundingCatalog is the default keyword bundle set: common
// immigration topics mapped to the authoritative citations that answer them.
func OfficialGroundingCatalog() []KeywordBundle {
	return []KeywordBundle{
		{
			Keywords: []string{"pr card", "permanent resident card", "pr renewal"},
			Citations: []domain.Citation{
				{
					SourceID: "IRCC_PDI",
					Title:    "IRCC Program Delivery Instructions — PR card renewal",
					URL:      "https://www.canada.ca/en/immigration-refugees-citizenship/services/new-immigrants/pr-card.html",
					Pin:      "PR card renewal guide",
				},
			},
		},
		{
			Keywords: []string{"express entry", "ee draw", "comprehensive ranking"},
			Citations: []domain.Citation{
				{
					SourceID: "EE_MI_CURRENT",
					Title:    "Express Entry rounds of invitations",
					URL:      "https://www.canada.ca/en/immigration-refugees-citizenship/corporate/mandate/policies-operational-instructions-agreements/ministerial-instructions/express-entry-rounds.html",
					Pin:      "current round of invitations",
				},
			},
		},
		{
			Keywords: []string{"citizenship", "become a citizen", "naturaliz"},
			Citations: []domain.Citation{
				{
					SourceID: "CIT_ACT",
					Title:    "Citizenship Act",
					URL:      "https://laws-lois.justice.gc.ca/eng/acts/c-29/",
					Pin:      "s. 5",
				},
			},
		},
		{
			Keywords: []string{"refugee", "asylum", "protected person"},
			Citations: []domain.Citation{
				{
					SourceID: "IRB_RPD_RULES",
					Title:    "Refugee Protection Division Rules",
					URL:      "https://irb-cisr.gc.ca/en/legal-policy/procedures/Pages/RpdRul.aspx",
					Pin:      "rule 3",
				},
			},
		},
	}
}

// fallbackURL and fallbackPin fill missing optional fields on citations
// supplied by a RetrieverAdapter's external backend.
const (
	fallbackURL = "https://www.canada.ca/en/services/immigration-citizenship.html"
	fallbackPin = "n/a"
)

// RetrievedCitation is the shape an external retrieval backend returns:
// optional fields are filled with fallback values when absent.
type RetrievedCitation struct {
	Snippet  string
	SourceID string
	Title    string
	URL      string
	Pin      string
}

// Retriever is the external interface a RetrieverAdapter delegates to.
type Retriever interface {
	Retrieve(message string, locale domain.Locale, mode string) ([]RetrievedCitation, error)
}

// RetrieverAdapter delegates to an external Retriever, filling in fallback
// values for any optional field the backend left empty, and appending the
// baseline citation if it did not already appear and the result is still
// below MaxCitations.
type RetrieverAdapter struct {
	Backend      Retriever
	MaxCitations int
}

// NewRetrieverAdapter builds a RetrieverAdapter over the given backend.
func NewRetrieverAdapter(backend Retriever, maxCitations int) *RetrieverAdapter {
	if maxCitations <= 0 {
		maxCitations = defaultMaxCitations
	}
	return &RetrieverAdapter{Backend: backend, MaxCitations: maxCitations}
}

func (a *RetrieverAdapter) CitationCandidates(message string, locale domain.Locale, mode string) []domain.Citation {
	results, err := a.Backend.Retrieve(message, locale, mode)
	if err != nil || len(results) == 0 {
		return []domain.Citation{baselineCitation()}
	}

	out := make([]domain.Citation, 0, a.MaxCitations)
	haveBaseline := false
	for _, r := range results {
		if len(out) >= a.MaxCitations {
			break
		}
		c := domain.Citation{
			SourceID: r.SourceID,
			Title:    r.Title,
			URL:      r.URL,
			Pin:      r.Pin,
			Snippet:  r.Snippet,
		}
		if c.URL == "" {
			c.URL = fallbackURL
		}
		if c.Pin == "" {
			c.Pin = fallbackPin
		}
		if c.SourceID == baselineCitation().SourceID {
			haveBaseline = true
		}
		out = append(out, c)
	}

	if !haveBaseline && len(out) < a.MaxCitations {
		out = append(out, baselineCitation())
	}

	return out
}
