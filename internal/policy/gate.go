package policy

import (
	"regexp"
	"strings"
)

// blockedPatterns is the fixed, ordered list of anchored regexes that
// classify a message as a representation, substitutive-filing, personalized
// strategy, or outcome-guarantee solicitation. Compiled once at package
// init; adding a pattern requires a matching test scenario and a negative
// example alongside it.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brepresent (?:me|my case)\b`),
	regexp.MustCompile(`\bbe my (?:representative|lawyer|counsel)\b`),
	regexp.MustCompile(`\bspeak for me\b`),
	regexp.MustCompile(`\b(?:appear|argue)(?: [a-z]+){0,6} for me\b`),
	regexp.MustCompile(`\b(?:handle|take over)(?: [a-z]+){0,6} my (?:case|appeal|hearing)\b`),
	regexp.MustCompile(`\bfile my(?: [a-z]+)* application\b`),
	regexp.MustCompile(`\b(?:submit|prepare)(?: [a-z]+){0,6} my (?:forms|documents|paperwork) for me\b`),
	regexp.MustCompile(`\b(?:fill out|complete|draft)(?: [a-z]+){0,6} my (?:forms|application|paperwork)\b`),
	regexp.MustCompile(`\b(?:file|submit|prepare)(?: [a-z]+){0,6} on my behalf\b`),
	regexp.MustCompile(`\bact as my (?:lawyer|counsel)\b`),
	regexp.MustCompile(`\b(?:personalized|personalised|tailored|custom)(?: [a-z]+){0,6} (?:strategy|plan|advice)\b`),
	regexp.MustCompile(`\b(?:strategy|plan)(?: [a-z]+){0,6} for my (?:case|situation|application)\b`),
	regexp.MustCompile(`\bguarantee(?: that i will get)?(?: [a-z]+){0,6} (?:visa|pr|permanent residence|citizenship|approval|success)\b`),
	regexp.MustCompile(`\b(?:promise|assure)(?: [a-z]+){0,6} (?:visa|pr|permanent residence|citizenship|approval|success)\b`),
	regexp.MustCompile(`\b(?:guarantee|promise|assure)(?: [a-z]+){0,8} (?:i(?:'ll| will) (?:be )?(?:approved|accepted)|approval)\b`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ShouldRefuse reports whether message solicits legal representation,
// substitutive filing, personalized strategy, or an outcome guarantee.
func ShouldRefuse(message string) bool {
	normalized := strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.ToLower(message), " "))
	for _, pattern := range blockedPatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}
