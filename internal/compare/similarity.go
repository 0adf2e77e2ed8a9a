// Package compare reports line-by-line differences between two extracted
// documents together with a similarity score per line.
package compare

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns a score in [0,1] for two lines: one minus the rune edit
// distance divided by the longer length. Identical strings score 1, the
// measure is symmetric, and two empty strings are identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// SplitLines splits text into trimmed, non-empty lines. Blank lines are
// dropped so layout whitespace does not dominate the score.
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
