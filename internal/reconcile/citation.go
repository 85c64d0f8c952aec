package reconcile

import (
	"regexp"
	"strings"
)

// citationPattern matches embedded evidence citations: a bracketed
// 40-char lowercase hex digest with any leading whitespace.
var citationPattern = regexp.MustCompile(`\s*\[[a-f0-9]{40}\]`)

// StripCitations removes citation markers from free text and trims the
// result. Idempotent: stripping twice equals stripping once.
func StripCitations(text string) string {
	if text == "" {
		return text
	}
	return strings.TrimSpace(citationPattern.ReplaceAllString(text, ""))
}

// CleanTalkingPoints strips citations from each talking point. Structured
// entries have their "point" field cleaned in a copy; plain strings are
// cleaned directly; anything else passes through unchanged.
func CleanTalkingPoints(points []any) []any {
	if points == nil {
		return nil
	}
	cleaned := make([]any, 0, len(points))
	for _, p := range points {
		switch v := p.(type) {
		case map[string]any:
			cp := make(map[string]any, len(v))
			for k, val := range v {
				cp[k] = val
			}
			if point, ok := cp["point"].(string); ok {
				cp["point"] = StripCitations(point)
			}
			cleaned = append(cleaned, cp)
		case string:
			cleaned = append(cleaned, StripCitations(v))
		default:
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
