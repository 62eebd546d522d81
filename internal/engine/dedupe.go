package engine

import "strings"

// Dedupe collapses semantically duplicate findings: two findings are
// duplicates when they share a rule name or when their messages are
// identical after whitespace normalization. The first occurrence wins
// and order is otherwise preserved. Dedupe is idempotent.
func Dedupe(findings []Finding) []Finding {
	deduped := make([]Finding, 0, len(findings))
	seenRules := make(map[string]bool, len(findings))
	seenMessages := make(map[string]bool, len(findings))

	for _, f := range findings {
		normalized := normalizeWhitespace(f.Message)
		if seenRules[f.Rule] || seenMessages[normalized] {
			continue
		}
		seenRules[f.Rule] = true
		seenMessages[normalized] = true
		deduped = append(deduped, f)
	}

	return deduped
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
