package engine

import "github.com/closeguard/closeguard/internal/rules"

// Finding is one rule-trigger event. It is created by an evaluator during
// a single analysis pass and never mutated afterwards.
type Finding struct {
	Rule     string         `json:"rule"`
	Message  string         `json:"message"`
	Snippet  string         `json:"snippet"`
	Severity rules.Severity `json:"severity"`
}

// Analytics summarizes a finding set into a single bounded score plus
// per-severity counts.
type Analytics struct {
	ForensicScore  int `json:"forensic_score"`
	TotalFlags     int `json:"total_flags"`
	HighSeverity   int `json:"high_severity"`
	MediumSeverity int `json:"medium_severity"`
	LowSeverity    int `json:"low_severity"`
}

// Result is the engine's sole output: deduplicated findings in catalog
// order plus derived analytics. The caller owns it once returned.
type Result struct {
	Flags     []Finding `json:"flags"`
	Analytics Analytics `json:"analytics"`
}
