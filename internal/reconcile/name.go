// Package reconcile turns noisy LLM-generated dossiers into clean lead
// rows: it validates contact names, filters decision makers, re-derives
// the Chinese-rep classification from the filtered set, and strips
// citation markers from free text.
package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxNameLength is the longest plausible person name we accept.
const maxNameLength = 40

// nameDenylist holds substrings that mark a string as an organization,
// location, or service rather than a person. Matching is plain substring
// containment, so a real surname that embeds a listed token ("Easton"
// hits "east") is rejected too.
var nameDenylist = []string{
	"place", "house", "home", "lodge", "manor", "centre", "center",
	"residence", "hope", "care", "services", "program", "health",
	"living", "community", "support", "society", "international",
	"fellowship", "association", "foundation", "organization", "org",
	"scarborough", "toronto", "ottawa", "hamilton", "london", "ontario",
	"north", "south", "east", "west", "central",
	"next level", "the mind", "action canada", "rotary",
	"shelter", "youth", "housing", "after-care", "mental", "addiction",
	"seniors", "elderly", "assisted", "nursing", "rehab", "recovery",
	"clinic", "hospital", "medical", "wellness", "outreach",
	"ministry", "government", "provincial", "federal", "municipal",
	"inc", "ltd", "corp", "llc", "limited",
}

// IsValidPersonName reports whether s is plausibly a person's full name.
// This is the single source of truth for "looks like a human name" across
// the reconciliation layer and is pure and deterministic.
func IsValidPersonName(s string) bool {
	name := strings.TrimSpace(s)
	if name == "" {
		return false
	}

	// First + last, with up to three middle tokens.
	words := strings.Fields(name)
	if len(words) < 2 || len(words) > 5 {
		return false
	}

	if len(name) > maxNameLength {
		return false
	}

	lower := strings.ToLower(name)
	for _, pattern := range nameDenylist {
		if strings.Contains(lower, pattern) {
			return false
		}
	}

	// Every multi-rune token must start uppercase; single letters
	// (initials) pass.
	for _, word := range words {
		r := []rune(word)
		if len(r) <= 1 {
			continue
		}
		if !unicode.IsUpper(r[0]) {
			return false
		}
	}

	return true
}

// foldTransformer strips combining marks so "José" and "Jose" compare equal.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldName lower-cases a name and removes diacritics for comparison.
func FoldName(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
