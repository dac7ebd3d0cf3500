package question

import "github.com/agnivade/levenshtein"

// fuzzyLookup returns the first canonical code (in sorted order, for
// determinism) within Levenshtein distance 1 of the token. Exact matches are
// resolved before this is called, so a token equal to a canonical code is
// never rewritten to a different one.
func (a *Analyzer) fuzzyLookup(upper string) (string, bool) {
	for _, code := range a.sorted {
		if levenshtein.ComputeDistance(upper, code) <= 1 {
			return code, true
		}
	}
	return "", false
}
