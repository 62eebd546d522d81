package rules

import "regexp"

// Kind identifies the evaluation semantics of a rule. The set is closed:
// unknown kinds are rejected at catalog load, not discovered at evaluation.
type Kind string

const (
	KindNumericThreshold     Kind = "numeric_threshold"
	KindCalculatedPercentage Kind = "calculated_percentage"
	KindRegexPresence        Kind = "regex_presence"
	KindRegexAbsence         Kind = "regex_absence"
	KindCompoundRule         Kind = "compound_rule"
	KindCrossReferencePattern Kind = "cross_reference_pattern"
	KindContextComparison    Kind = "context_comparison"
)

// Severity classifies how heavily a triggered rule weighs on the score.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Operator is a numeric comparison used by threshold-style rules.
type Operator string

const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
)

// Compare applies the operator to value against threshold.
func (op Operator) Compare(value, threshold float64) bool {
	switch op {
	case OpGreater:
		return value > threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLess:
		return value < threshold
	case OpLessEqual:
		return value <= threshold
	case OpEqual:
		return value == threshold
	default:
		return false
	}
}

// Valid reports whether the operator is one of the supported comparisons.
func (op Operator) Valid() bool {
	switch op {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual:
		return true
	}
	return false
}

// Condition is one leg of a compound rule: an independent pattern,
// threshold and operator whose captured value is named for the message.
type Condition struct {
	Pattern   *regexp.Regexp
	Threshold float64
	Operator  Operator
	ValueName string
}

// Secondary is one correlated field of a cross-reference rule.
type Secondary struct {
	Pattern *regexp.Regexp
	Service string
}

// Descriptor is an immutable, validated rule loaded from the catalog.
// Only the fields relevant to its Kind are populated.
type Descriptor struct {
	Name     string
	Kind     Kind
	Message  string
	Severity Severity

	Pattern   *regexp.Regexp
	Threshold float64
	Operator  Operator

	// calculated_percentage
	Numerator   *regexp.Regexp
	Denominator *regexp.Regexp

	// compound_rule
	Conditions []Condition

	// cross_reference_pattern
	Primary     *regexp.Regexp
	Secondaries []Secondary
	FuzzyMatch  bool

	// context_comparison
	ComparisonType string
	Tolerance      float64
}

// ConditionSpec is the YAML form of a compound rule condition.
type ConditionSpec struct {
	Pattern   string  `yaml:"pattern"`
	Threshold float64 `yaml:"threshold"`
	Operator  string  `yaml:"operator"`
	ValueName string  `yaml:"value_name"`
}

// SecondarySpec is the YAML form of a cross-reference secondary pattern.
type SecondarySpec struct {
	Pattern string `yaml:"pattern"`
	Service string `yaml:"service"`
}

// Spec is the raw YAML form of a rule before validation and compilation.
type Spec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Message  string `yaml:"message"`
	Severity string `yaml:"severity"`
	Enabled  *bool  `yaml:"enabled"`

	Pattern   string  `yaml:"pattern"`
	Threshold float64 `yaml:"threshold"`
	Operator  string  `yaml:"operator"`

	NumeratorPattern   string `yaml:"numerator_pattern"`
	DenominatorPattern string `yaml:"denominator_pattern"`

	Conditions []ConditionSpec `yaml:"conditions"`

	PrimaryPattern    string          `yaml:"primary_pattern"`
	SecondaryPatterns []SecondarySpec `yaml:"secondary_patterns"`
	FuzzyMatch        *bool           `yaml:"fuzzy_match"`

	ComparisonType      string  `yaml:"comparison_type"`
	TolerancePercentage float64 `yaml:"tolerance_percentage"`
}
