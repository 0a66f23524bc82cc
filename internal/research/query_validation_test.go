package research

import "testing"

func TestIsSpecificCaseQuery(t *testing.T) {
	cases := map[string]bool{
		"":                                   false,
		"what is the":                        false,
		"how to":                             false,
		"fca judicial review inadmissibility": true,
		"irpr":                                true,
		"pr card cases":                       true,
		"123 456":                            false,
		"A-1234-23":                          true,
		"T-123-24":                           true,
	}
	for query, want := range cases {
		if got := IsSpecificCaseQuery(query); got != want {
			t.Errorf("IsSpecificCaseQuery(%q) = %v, want %v", query, got, want)
		}
	}
}
