package service

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns the normalized Levenshtein similarity of a and b in [0..1].
// Both inputs are normalized first; two empty strings are identical.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" && nb == "" {
		return 1
	}
	m := utf8.RuneCountInString(na)
	if mb := utf8.RuneCountInString(nb); mb > m {
		m = mb
	}
	d := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(d)/float64(m)
}
