package engine

import "github.com/closeguard/closeguard/internal/rules"

// severityWeights are the score deductions per finding by bucket.
var severityWeights = map[rules.Severity]int{
	rules.SeverityHigh:   20,
	rules.SeverityMedium: 10,
	rules.SeverityLow:    5,
}

// Score reduces a deduplicated finding set to analytics: per-severity
// counts and a composite forensic score. 100 means no findings; every
// additional finding can only lower the score, floored at 0.
func Score(findings []Finding) Analytics {
	analytics := Analytics{TotalFlags: len(findings)}

	deductions := 0
	for _, f := range findings {
		severity := f.Severity
		if severity == "" {
			severity = rules.ClassifyMessage(f.Message)
		}

		switch severity {
		case rules.SeverityHigh:
			analytics.HighSeverity++
		case rules.SeverityMedium:
			analytics.MediumSeverity++
		default:
			analytics.LowSeverity++
			severity = rules.SeverityLow
		}
		deductions += severityWeights[severity]
	}

	score := 100 - deductions
	if score < 0 {
		score = 0
	}
	analytics.ForensicScore = score

	return analytics
}
