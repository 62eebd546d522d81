package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/closeguard/closeguard/internal/rules"
)

// Each evaluator is a pure function over (text, descriptor, context)
// producing at most one finding. A failed match or a capture that will
// not coerce means the rule does not fire; evaluators never error.

// evalNumericThreshold captures a number from the text and compares it
// against the rule threshold.
func evalNumericThreshold(text string, desc rules.Descriptor) (Finding, bool) {
	m, ok := search(desc.Pattern, text)
	if !ok {
		return Finding{}, false
	}
	raw, ok := m.firstCapture()
	if !ok {
		return Finding{}, false
	}
	value, cleaned, ok := numericCapture(raw)
	if !ok {
		return Finding{}, false
	}
	if !desc.Operator.Compare(value, desc.Threshold) {
		return Finding{}, false
	}

	message := strings.ReplaceAll(desc.Message, "${value}", "$"+cleaned)
	message = strings.ReplaceAll(message, "{value}", formatFloat(value))

	return Finding{
		Rule:     desc.Name,
		Message:  message,
		Snippet:  snippet(text, m.start, m.end),
		Severity: desc.Severity,
	}, true
}

// evalCalculatedPercentage extracts numerator and denominator
// independently and compares their ratio, as a percentage, against the
// threshold. A zero or unmatched denominator suppresses the rule.
func evalCalculatedPercentage(text string, desc rules.Descriptor) (Finding, bool) {
	numMatch, ok := search(desc.Numerator, text)
	if !ok {
		return Finding{}, false
	}
	numRaw, ok := numMatch.firstCapture()
	if !ok {
		return Finding{}, false
	}
	numerator, numStr, ok := numericCapture(numRaw)
	if !ok {
		return Finding{}, false
	}

	denMatch, ok := search(desc.Denominator, text)
	if !ok {
		return Finding{}, false
	}
	denRaw, ok := denMatch.firstCapture()
	if !ok {
		return Finding{}, false
	}
	denominator, denStr, ok := numericCapture(denRaw)
	if !ok || denominator == 0 {
		return Finding{}, false
	}

	percentage := numerator / denominator * 100
	if !desc.Operator.Compare(percentage, desc.Threshold) {
		return Finding{}, false
	}

	message := strings.ReplaceAll(desc.Message, "{percentage}", strconv.FormatFloat(percentage, 'f', 1, 64))
	message = strings.ReplaceAll(message, "{numerator}", "$"+numStr)
	message = strings.ReplaceAll(message, "{denominator}", "$"+denStr)

	evidence := fmt.Sprintf("Numerator: %s | Denominator: %s",
		snippet(text, numMatch.start, numMatch.end),
		snippet(text, denMatch.start, denMatch.end))

	return Finding{
		Rule:     desc.Name,
		Message:  message,
		Snippet:  evidence,
		Severity: desc.Severity,
	}, true
}

// evalRegexPresence fires when the pattern matches anywhere in the text.
// Positional placeholders ${1}..${n} reference capture groups.
func evalRegexPresence(text string, desc rules.Descriptor) (Finding, bool) {
	m, ok := search(desc.Pattern, text)
	if !ok {
		return Finding{}, false
	}

	message := desc.Message
	for i, group := range m.groups {
		message = strings.ReplaceAll(message, fmt.Sprintf("${%d}", i+1), group)
	}

	return Finding{
		Rule:     desc.Name,
		Message:  message,
		Snippet:  snippet(text, m.start, m.end),
		Severity: desc.Severity,
	}, true
}

// evalRegexAbsence fires when the pattern matches nowhere in the text.
// There is no match span, so the snippet is a fixed placeholder.
func evalRegexAbsence(text string, desc rules.Descriptor) (Finding, bool) {
	if desc.Pattern.MatchString(text) {
		return Finding{}, false
	}

	return Finding{
		Rule:     desc.Name,
		Message:  desc.Message,
		Snippet:  "Pattern not found in document",
		Severity: desc.Severity,
	}, true
}

// evalCompoundRule fires only when every sub-condition independently
// matches and holds.
func evalCompoundRule(text string, desc rules.Descriptor) (Finding, bool) {
	type extracted struct {
		name  string
		value float64
	}
	values := make([]extracted, 0, len(desc.Conditions))

	for _, cond := range desc.Conditions {
		m, ok := search(cond.Pattern, text)
		if !ok {
			return Finding{}, false
		}
		raw, ok := m.firstCapture()
		if !ok {
			return Finding{}, false
		}
		value, _, ok := numericCapture(raw)
		if !ok {
			return Finding{}, false
		}
		if !cond.Operator.Compare(value, cond.Threshold) {
			return Finding{}, false
		}
		values = append(values, extracted{name: cond.ValueName, value: value})
	}

	message := desc.Message
	parts := make([]string, 0, len(values))
	for _, v := range values {
		message = strings.ReplaceAll(message, "{"+v.name+"}", formatFloat(v.value))
		parts = append(parts, fmt.Sprintf("%s=%s", v.name, formatFloat(v.value)))
	}

	return Finding{
		Rule:     desc.Name,
		Message:  message,
		Snippet:  "Multiple conditions met: " + strings.Join(parts, ", "),
		Severity: desc.Severity,
	}, true
}

// evalCrossReference extracts a primary entity name and checks whether
// any secondary field names correlate with it, exactly or fuzzily.
func evalCrossReference(text string, desc rules.Descriptor) (Finding, bool) {
	primaryMatch, ok := search(desc.Primary, text)
	if !ok {
		return Finding{}, false
	}
	primaryRaw, ok := primaryMatch.firstCapture()
	if !ok {
		return Finding{}, false
	}

	primary := strings.ToUpper(strings.TrimSpace(primaryRaw))
	primaryTokens := entityTokens(primary)

	var services []string
	for _, secondary := range desc.Secondaries {
		secMatch, ok := search(secondary.Pattern, text)
		if !ok {
			continue
		}
		secRaw, ok := secMatch.firstCapture()
		if !ok {
			continue
		}
		secValue := strings.ToUpper(strings.TrimSpace(secRaw))

		var correlated bool
		if desc.FuzzyMatch {
			correlated = tokensCorrelate(primaryTokens, secValue)
		} else {
			correlated = normalizeEntity(primary) == normalizeEntity(secValue)
		}

		if correlated {
			services = append(services, secondary.Service)
		}
	}

	if len(services) == 0 {
		return Finding{}, false
	}

	servicesText := strings.Join(services, ", ")
	message := strings.ReplaceAll(desc.Message, "{primary}", primary)
	message = strings.ReplaceAll(message, "{services}", servicesText)

	return Finding{
		Rule:     desc.Name,
		Message:  message,
		Snippet:  fmt.Sprintf("Primary: %s | Matched services: %s", primary, servicesText),
		Severity: desc.Severity,
	}, true
}

// evalContextComparison compares a document value against the caller's
// expectation of the same kind within a tolerance. Without a context, or
// without the matching expectation, the rule is skipped.
func evalContextComparison(text string, desc rules.Descriptor, ctx *UserContext) (Finding, bool) {
	expected, ok := ctx.ExpectedValue(desc.ComparisonType)
	if !ok || expected == 0 {
		return Finding{}, false
	}

	m, ok := search(desc.Pattern, text)
	if !ok {
		return Finding{}, false
	}
	raw, ok := m.firstCapture()
	if !ok {
		return Finding{}, false
	}
	actual, _, ok := numericCapture(raw)
	if !ok {
		return Finding{}, false
	}

	difference := actual - expected
	if difference < 0 {
		difference = -difference
	}
	percentDiff := difference / expected * 100
	if percentDiff <= desc.Tolerance {
		return Finding{}, false
	}

	message := strings.ReplaceAll(desc.Message, "{expected}", formatMoney(expected))
	message = strings.ReplaceAll(message, "{actual}", formatMoney(actual))
	message = strings.ReplaceAll(message, "{difference}", strconv.FormatFloat(percentDiff, 'f', 1, 64)+"%")

	return Finding{
		Rule:     desc.Name,
		Message:  message,
		Snippet:  snippet(text, m.start, m.end),
		Severity: desc.Severity,
	}, true
}

// normalizeEntity strips punctuation and collapses whitespace so entity
// names compare on their words alone.
func normalizeEntity(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// entityTokens splits a normalized entity name into keyword tokens.
// Tokens shorter than two characters carry no signal and are dropped.
func entityTokens(name string) []string {
	var tokens []string
	for _, field := range strings.Fields(normalizeEntity(name)) {
		if len(field) >= 2 {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// tokensCorrelate reports whether any primary keyword appears in the
// secondary name. Prefix comparison tolerates suffix variants, so
// "HOMES" correlates with "HOME".
func tokensCorrelate(primaryTokens []string, secondary string) bool {
	secNorm := normalizeEntity(secondary)
	secTokens := strings.Fields(secNorm)

	for _, token := range primaryTokens {
		if strings.Contains(secNorm, token) {
			return true
		}
		if len(token) < 4 {
			continue
		}
		for _, secToken := range secTokens {
			if len(secToken) >= 4 && (strings.HasPrefix(token, secToken) || strings.HasPrefix(secToken, token)) {
				return true
			}
		}
	}
	return false
}

// formatFloat renders a float the shortest way that round-trips.
func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// formatMoney renders a dollar amount with thousands separators, e.g.
// 400000 -> $400,000.00.
func formatMoney(value float64) string {
	negative := value < 0
	if negative {
		value = -value
	}

	s := strconv.FormatFloat(value, 'f', 2, 64)
	parts := strings.SplitN(s, ".", 2)
	whole := parts[0]

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := "$" + b.String() + "." + parts[1]
	if negative {
		out = "-" + out
	}
	return out
}
