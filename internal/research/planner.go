// Package research implements the Lawyer Research Planner (L) and the
// query-validation predicate guarding the lawyer research API.
package research

import (
	"regexp"
	"strings"
)

var factKeywordStopwords = map[string]bool{
	"about": true, "against": true, "appeal": true, "before": true, "between": true,
	"court": true, "decision": true, "finding": true, "findings": true, "federal": true,
	"immigration": true, "legal": true, "matter": true, "regarding": true, "review": true,
	"support": true, "under": true, "with": true,
}

type issueTagPattern struct {
	tag     string
	pattern *regexp.Regexp
}

var issueTagPatterns = []issueTagPattern{
	{"procedural_fairness", regexp.MustCompile(`procedural fairness|natural justice`)},
	{"inadmissibility", regexp.MustCompile(`inadmiss`)},
	{"admissibility", regexp.MustCompile(`admissib`)},
	{"credibility", regexp.MustCompile(`credib`)},
	{"refugee_protection", regexp.MustCompile(`refugee|asylum`)},
	{"humanitarian_compassionate", regexp.MustCompile(`humanitarian|compassionate|h&c`)},
	{"judicial_review", regexp.MustCompile(`judicial review`)},
	{"removal_order", regexp.MustCompile(`removal order|deport|exclusion order`)},
	{"residency_obligation", regexp.MustCompile(`residency obligation|pr card|permanent resident`)},
}

var (
	fcaCourtPattern = regexp.MustCompile(`\bfca\b|federal court of appeal`)
	sccCourtPattern = regexp.MustCompile(`\bscc\b|supreme court`)
	fcCourtPattern  = regexp.MustCompile(`\bfc\b|\bfct\b|federal court`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	wordTokenRegexp = regexp.MustCompile(`[a-z0-9]+`)
)

// MatterProfile is the structured fact pattern extracted from a free-text
// matter summary.
type MatterProfile struct {
	IssueTags          []string
	TargetCourt        string
	ProceduralPosture  string
	FactKeywords       []string
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	ordered := make([]string, 0, len(items))
	for _, item := range items {
		normalized := strings.TrimSpace(item)
		key := strings.ToLower(normalized)
		if normalized == "" || seen[key] {
			continue
		}
		seen[key] = true
		ordered = append(ordered, normalized)
	}
	return ordered
}

func extractTargetCourt(normalized string) string {
	switch {
	case fcaCourtPattern.MatchString(normalized):
		return "fca"
	case sccCourtPattern.MatchString(normalized):
		return "scc"
	case fcCourtPattern.MatchString(normalized):
		return "fc"
	default:
		return ""
	}
}

// ExtractMatterProfile extracts issue tags, target court, procedural
// posture, and fact keywords from a free-text matter summary.
func ExtractMatterProfile(matterSummary string) MatterProfile {
	normalized := strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.ToLower(matterSummary), " "))

	var issueTags []string
	for _, it := range issueTagPatterns {
		if it.pattern.MatchString(normalized) {
			issueTags = append(issueTags, it.tag)
		}
	}

	posture := ""
	switch {
	case strings.Contains(normalized, "judicial review"):
		posture = "judicial_review"
	case strings.Contains(normalized, "appeal"):
		posture = "appeal"
	}

	tokens := wordTokenRegexp.FindAllString(normalized, -1)
	var factCandidates []string
	for _, token := range tokens {
		if len(token) >= 5 && !factKeywordStopwords[token] {
			factCandidates = append(factCandidates, token)
		}
	}
	factKeywords := dedupe(factCandidates)
	if len(factKeywords) > 12 {
		factKeywords = factKeywords[:12]
	}

	return MatterProfile{
		IssueTags:         issueTags,
		TargetCourt:       extractTargetCourt(normalized),
		ProceduralPosture: posture,
		FactKeywords:      factKeywords,
	}
}

const maxCandidateQueries = 5

// BuildResearchQueries expands a matter summary into up to 5 candidate
// search queries: the original summary, plus variants appending its top
// issue tags, a court-precedent hint, its procedural posture, and its
// leading fact keywords.
func BuildResearchQueries(matterSummary, court string) []string {
	normalized := strings.TrimSpace(whitespaceRun.ReplaceAllString(matterSummary, " "))
	profile := ExtractMatterProfile(normalized)

	targetCourt := strings.ToLower(strings.TrimSpace(court))
	if targetCourt == "" {
		targetCourt = profile.TargetCourt
	}

	queries := []string{normalized}

	if len(profile.IssueTags) > 0 {
		limit := 2
		if limit > len(profile.IssueTags) {
			limit = len(profile.IssueTags)
		}
		issueFragment := strings.ReplaceAll(strings.Join(profile.IssueTags[:limit], " "), "_", " ")
		queries = append(queries, normalized+" "+issueFragment)
	}

	if targetCourt != "" {
		queries = append(queries, normalized+" "+targetCourt+" precedent")
	}

	if profile.ProceduralPosture != "" {
		postureFragment := strings.ReplaceAll(profile.ProceduralPosture, "_", " ")
		queries = append(queries, normalized+" "+postureFragment+" immigration")
	}

	if len(profile.FactKeywords) > 0 {
		limit := 6
		if limit > len(profile.FactKeywords) {
			limit = len(profile.FactKeywords)
		}
		queries = append(queries, strings.Join(profile.FactKeywords[:limit], " ")+" immigration precedent")
	}

	deduped := dedupe(queries)
	if len(deduped) > maxCandidateQueries {
		deduped = deduped[:maxCandidateQueries]
	}
	return deduped
}
