package research

import (
	"regexp"
	"strings"
	"unicode"
)

var caseSearchQueryStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "be": true, "by": true,
	"for": true, "from": true, "how": true, "in": true, "is": true, "it": true,
	"of": true, "on": true, "or": true, "the": true, "to": true, "was": true,
	"what": true, "when": true, "where": true, "who": true, "why": true, "with": true,
}

var caseSearchShortTokenAllowlist = map[string]bool{
	"fc": true, "fca": true, "scc": true, "irpa": true, "irpr": true,
	"pr": true, "ee": true, "pnp": true,
}

var caseDocketPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[a-z]{1,5}-\d{1,8}-\d{2,4}$`),
	regexp.MustCompile(`^[a-z]{1,5}\s*-\s*\d{1,8}\s*-\s*\d{2,4}$`),
}

var queryWhitespaceRegexp = regexp.MustCompile(`\s+`)

// IsSpecificCaseQuery classifies a case-search query as "specific" (as
// opposed to a broad, unbounded browse request). A bare docket number
// (e.g. "A-1234-23") bypasses stopword/token filtering entirely and is
// always specific. Otherwise it must contain at least one non-stopword
// alphanumeric token of length >=3, or one of the allowlisted short
// court/program abbreviations, with at least one letter in it.
func IsSpecificCaseQuery(query string) bool {
	normalized := queryWhitespaceRegexp.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")
	for _, pattern := range caseDocketPatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}

	tokens := wordTokenRegexp.FindAllString(strings.ToLower(query), -1)
	if len(tokens) == 0 {
		return false
	}

	var meaningful []string
	for _, token := range tokens {
		if caseSearchQueryStopwords[token] {
			continue
		}
		if len(token) >= 3 || caseSearchShortTokenAllowlist[token] {
			meaningful = append(meaningful, token)
		}
	}
	if len(meaningful) == 0 {
		return false
	}

	for _, token := range meaningful {
		for _, r := range token {
			if unicode.IsLetter(r) {
				return true
			}
		}
	}
	return false
}
