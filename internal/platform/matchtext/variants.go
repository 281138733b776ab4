package matchtext

import (
	"regexp"
	"strings"
)

var (
	// Dash-style separators between sides are rewritten to "vs" before
	// splitting so "Sinner - Cerundolo" parses the same as "Sinner vs Cerundolo".
	dashSeparators = []string{" — ", " – ", " - "}

	vsSeparator = regexp.MustCompile(`(?i)\s+vs\.?\s+`)
)

// SplitSides splits a raw match description into its participant sides.
// Returns nil when fewer than two sides are present; doubles pairings
// ("Ann/Kim") stay one slash-joined side.
func SplitSides(text string) []string {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	for _, sep := range dashSeparators {
		s = strings.ReplaceAll(s, sep, " vs ")
	}

	parts := vsSeparator.Split(s, -1)
	sides := make([]string, 0, len(parts))
	for _, part := range parts {
		if side := strings.TrimSpace(part); side != "" {
			sides = append(sides, side)
		}
	}
	if len(sides) < 2 {
		return nil
	}
	return sides
}

// Variants expands one side into its normalized search variants. For a
// multi-token side it yields the tokens minus single-character initials plus
// the bare last token (usually the surname); OCR varies both name order and
// initial placement, so all variants are kept. Never empty for non-empty input.
func Variants(side string) []string {
	normalized := Normalize(side)
	if normalized == "" {
		return nil
	}

	tokens := strings.Fields(normalized)
	if len(tokens) == 1 {
		return []string{tokens[0]}
	}

	withoutInitials := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len([]rune(token)) == 1 {
			continue
		}
		withoutInitials = append(withoutInitials, token)
	}

	variants := make([]string, 0, 2)
	if len(withoutInitials) > 0 {
		variants = append(variants, strings.Join(withoutInitials, " "))
	}
	variants = appendUnique(variants, tokens[len(tokens)-1])
	if len(variants) == 0 {
		variants = append(variants, normalized)
	}
	return variants
}

// accentAlternates restores diacritics for names known to be indexed with
// accents by upstream sources. Curated, not general transliteration; extend it
// when a concrete miss shows up.
var accentAlternates = map[string]string{
	"cerundolo": "cerúndolo",
	"baez":      "báez",
	"garin":     "garín",
	"ramirez":   "ramírez",
	"fernandez": "fernández",
	"munoz":     "muñoz",
}

// WithDiacriticAlternates appends accent-restored spellings of any variant
// whose tokens appear in the curated table. Input variants are preserved.
func WithDiacriticAlternates(variants []string) []string {
	out := append([]string(nil), variants...)
	for _, variant := range variants {
		tokens := strings.Fields(variant)
		replaced := false
		for i, token := range tokens {
			if alt, ok := accentAlternates[token]; ok {
				tokens[i] = alt
				replaced = true
			}
		}
		if replaced {
			out = appendUnique(out, strings.Join(tokens, " "))
		}
	}
	return out
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
