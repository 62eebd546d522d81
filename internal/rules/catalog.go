package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/closeguard/closeguard/internal/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable, validated set of rule descriptors in load order.
// It is safe for concurrent use by any number of evaluations.
type Catalog struct {
	rules []Descriptor
}

// Rules returns the descriptors in catalog order.
func (c *Catalog) Rules() []Descriptor {
	return c.rules
}

// Len returns the number of valid rules in the catalog.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// catalogFile is the top-level YAML document structure.
type catalogFile struct {
	Rules []Spec `yaml:"rules"`
}

// Load reads and validates a rule catalog from a YAML file. Individual
// malformed rules are logged and skipped; only an unreadable or
// unparseable file is an error.
func Load(path string, log *logger.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule catalog %s: %w", path, err)
	}
	return Parse(data, log)
}

// Parse validates rule specs from YAML bytes and returns the catalog of
// rules that survived validation.
func Parse(data []byte, log *logger.Logger) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule catalog: %w", err)
	}
	return FromSpecs(file.Rules, log), nil
}

// FromSpecs compiles and validates rule specs. Invalid specs are logged
// and excluded; callers only ever see the filtered, valid list.
func FromSpecs(specs []Spec, log *logger.Logger) *Catalog {
	catalog := &Catalog{rules: make([]Descriptor, 0, len(specs))}
	seen := make(map[string]bool)

	for _, spec := range specs {
		if spec.Enabled != nil && !*spec.Enabled {
			continue
		}

		desc, err := compileSpec(spec)
		if err != nil {
			log.Warn("Skipping invalid rule",
				zap.String("rule", spec.Name),
				zap.String("type", spec.Type),
				zap.Error(err),
			)
			continue
		}

		if seen[desc.Name] {
			log.Warn("Skipping duplicate rule name", zap.String("rule", desc.Name))
			continue
		}
		seen[desc.Name] = true

		catalog.rules = append(catalog.rules, desc)
	}

	log.Info("Rule catalog loaded",
		zap.Int("total_rules", len(specs)),
		zap.Int("valid_rules", len(catalog.rules)),
	)

	return catalog
}

// compileSpec validates one raw spec and compiles it into a descriptor.
func compileSpec(spec Spec) (Descriptor, error) {
	if spec.Name == "" {
		return Descriptor{}, fmt.Errorf("rule has no name")
	}
	if spec.Message == "" {
		return Descriptor{}, fmt.Errorf("rule has no message template")
	}

	kind, err := parseKind(spec.Type)
	if err != nil {
		return Descriptor{}, err
	}

	desc := Descriptor{
		Name:     spec.Name,
		Kind:     kind,
		Message:  spec.Message,
		Severity: resolveSeverity(spec.Severity, spec.Message),
	}

	op := Operator(spec.Operator)
	if spec.Operator == "" {
		op = OpGreater
	}

	switch kind {
	case KindNumericThreshold:
		if !op.Valid() {
			return Descriptor{}, fmt.Errorf("invalid operator %q", spec.Operator)
		}
		desc.Pattern, err = compilePattern(spec.Pattern)
		if err != nil {
			return Descriptor{}, err
		}
		desc.Threshold = spec.Threshold
		desc.Operator = op

	case KindCalculatedPercentage:
		if !op.Valid() {
			return Descriptor{}, fmt.Errorf("invalid operator %q", spec.Operator)
		}
		desc.Numerator, err = compilePattern(spec.NumeratorPattern)
		if err != nil {
			return Descriptor{}, fmt.Errorf("numerator: %w", err)
		}
		desc.Denominator, err = compilePattern(spec.DenominatorPattern)
		if err != nil {
			return Descriptor{}, fmt.Errorf("denominator: %w", err)
		}
		desc.Threshold = spec.Threshold
		desc.Operator = op

	case KindRegexPresence, KindRegexAbsence:
		desc.Pattern, err = compilePattern(spec.Pattern)
		if err != nil {
			return Descriptor{}, err
		}

	case KindCompoundRule:
		if len(spec.Conditions) == 0 {
			return Descriptor{}, fmt.Errorf("compound rule has no conditions")
		}
		for i, cond := range spec.Conditions {
			condOp := Operator(cond.Operator)
			if cond.Operator == "" {
				condOp = OpGreater
			}
			if !condOp.Valid() {
				return Descriptor{}, fmt.Errorf("condition %d: invalid operator %q", i+1, cond.Operator)
			}
			pattern, err := compilePattern(cond.Pattern)
			if err != nil {
				return Descriptor{}, fmt.Errorf("condition %d: %w", i+1, err)
			}
			valueName := cond.ValueName
			if valueName == "" {
				valueName = fmt.Sprintf("value%d", i+1)
			}
			desc.Conditions = append(desc.Conditions, Condition{
				Pattern:   pattern,
				Threshold: cond.Threshold,
				Operator:  condOp,
				ValueName: valueName,
			})
		}

	case KindCrossReferencePattern:
		if len(spec.SecondaryPatterns) == 0 {
			return Descriptor{}, fmt.Errorf("cross-reference rule has no secondary patterns")
		}
		desc.Primary, err = compilePattern(spec.PrimaryPattern)
		if err != nil {
			return Descriptor{}, fmt.Errorf("primary: %w", err)
		}
		for i, sec := range spec.SecondaryPatterns {
			pattern, err := compilePattern(sec.Pattern)
			if err != nil {
				return Descriptor{}, fmt.Errorf("secondary %d: %w", i+1, err)
			}
			service := sec.Service
			if service == "" {
				service = "service"
			}
			desc.Secondaries = append(desc.Secondaries, Secondary{Pattern: pattern, Service: service})
		}
		desc.FuzzyMatch = spec.FuzzyMatch == nil || *spec.FuzzyMatch

	case KindContextComparison:
		if !knownComparisonType(spec.ComparisonType) {
			return Descriptor{}, fmt.Errorf("unknown comparison type %q", spec.ComparisonType)
		}
		desc.Pattern, err = compilePattern(spec.Pattern)
		if err != nil {
			return Descriptor{}, err
		}
		desc.ComparisonType = spec.ComparisonType
		desc.Tolerance = spec.TolerancePercentage
		if desc.Tolerance == 0 {
			desc.Tolerance = 5.0
		}
	}

	return desc, nil
}

// parseKind maps a catalog type string to a Kind. The legacy alias
// "regex_amount" keeps older catalogs loading as numeric threshold rules.
func parseKind(typeName string) (Kind, error) {
	switch typeName {
	case "numeric_threshold", "regex_amount":
		return KindNumericThreshold, nil
	case "calculated_percentage":
		return KindCalculatedPercentage, nil
	case "regex_presence":
		return KindRegexPresence, nil
	case "regex_absence":
		return KindRegexAbsence, nil
	case "compound_rule":
		return KindCompoundRule, nil
	case "cross_reference_pattern":
		return KindCrossReferencePattern, nil
	case "context_comparison":
		return KindContextComparison, nil
	default:
		return "", fmt.Errorf("unknown rule type: %s", typeName)
	}
}

// compilePattern compiles a rule pattern. Patterns match across newlines
// since document text arrives as one flattened string.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern is empty")
	}
	re, err := regexp.Compile("(?s)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

var (
	highMarkers   = []string{"🚨", "critical", "error", "fraud"}
	mediumMarkers = []string{"⚠️", "warning", "dangerous", "excessive"}
)

// resolveSeverity fixes a rule's severity at load time. An explicit
// severity field wins; otherwise it is derived from marker words in the
// message template, high before medium, defaulting to low.
func resolveSeverity(explicit, message string) Severity {
	switch Severity(strings.ToLower(explicit)) {
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	case SeverityLow:
		return SeverityLow
	}
	return ClassifyMessage(message)
}

// ClassifyMessage derives a severity bucket from marker words in a
// rendered or template message.
func ClassifyMessage(message string) Severity {
	lower := strings.ToLower(message)
	for _, marker := range highMarkers {
		if strings.Contains(lower, marker) {
			return SeverityHigh
		}
	}
	for _, marker := range mediumMarkers {
		if strings.Contains(lower, marker) {
			return SeverityMedium
		}
	}
	return SeverityLow
}

func knownComparisonType(name string) bool {
	switch name {
	case "purchase_price", "loan_amount", "closing_costs", "interest_rate":
		return true
	}
	return false
}
