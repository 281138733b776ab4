// Package matchtext holds the pure string machinery the fixture-resolution
// engine is built on: canonical name normalization, side splitting, variant
// expansion, and the order-independent fixture signature. Every comparison
// between an OCR-extracted name and a provider-reported name goes through
// Normalize so diacritics, case and punctuation never affect matching.
package matchtext

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize produces the canonical comparison form of a name: combining marks
// stripped via NFD decomposition, lowercased, periods removed, whitespace
// collapsed.
func Normalize(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, ".", "")
	return strings.Join(strings.Fields(folded), " ")
}

// ContainsNormalized reports whether haystack contains needle once both are in
// canonical form. An empty needle never matches.
func ContainsNormalized(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// Signature derives an order-independent key from a fixture's two participant
// names. Two independently retrieved copies of the same fixture produce the
// same signature even when home/away are swapped between sources.
func Signature(home, away string) string {
	h := Normalize(home)
	a := Normalize(away)
	if h > a {
		h, a = a, h
	}
	return h + "|" + a
}
