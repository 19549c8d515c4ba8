package database

import (
	"strings"

	"golang.org/x/text/cases"
)

var headlineFolder = cases.Fold()

// NormalizeHeadline case-folds and collapses whitespace so headline
// comparison is stable across truncation and markup artifacts.
func NormalizeHeadline(s string) string {
	folded := headlineFolder.String(s)
	return strings.Join(strings.Fields(folded), " ")
}

// HeadlinesSimilar reports containment in either direction on already
// normalized text. Vision-extracted headlines are often truncated or
// slightly reworded, which containment absorbs and edit distance would
// not.
func HeadlinesSimilar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
