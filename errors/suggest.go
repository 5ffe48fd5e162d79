package errors

import (
	"slices"
	"strings"
)

// MaxSuggestions is the maximum number of suggestions to return.
const MaxSuggestions = 3

// Suggestion is a candidate correction and its edit distance from the
// misspelled name.
type Suggestion struct {
	Value    string
	Distance int
}

// threshold returns the largest edit distance accepted for a name of the
// given length. Short names tolerate fewer edits.
func threshold(n int) int {
	switch {
	case n <= 3:
		return 1
	case n <= 5:
		return 2
	default:
		return 3
	}
}

// SuggestSimilar returns the candidates closest to target, nearest first.
// Comparison ignores case and exact matches are never suggested.
func SuggestSimilar(target string, candidates []string) []Suggestion {
	if target == "" {
		return nil
	}
	target = strings.ToLower(target)
	limit := threshold(len(target))
	var out []Suggestion
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if c == "" || lc == target {
			continue
		}
		if d := levenshtein(target, lc); d <= limit {
			out = append(out, Suggestion{Value: c, Distance: d})
		}
	}
	slices.SortFunc(out, func(a, b Suggestion) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		return strings.Compare(a.Value, b.Value)
	})
	out = slices.CompactFunc(out, func(a, b Suggestion) bool { return a.Value == b.Value })
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// FormatSuggestions renders suggestions as a question, or returns the empty
// string when there are none.
func FormatSuggestions(suggestions []Suggestion) string {
	switch len(suggestions) {
	case 0:
		return ""
	case 1:
		return "did you mean '" + suggestions[0].Value + "'?"
	}
	quoted := make([]string, len(suggestions))
	for i, s := range suggestions {
		quoted[i] = "'" + s.Value + "'"
	}
	return "did you mean one of: " + strings.Join(quoted, ", ") + "?"
}

// levenshtein computes the edit distance between two strings using two rows
// of the dynamic programming matrix.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}
