package rules

import (
	"testing"

	"github.com/closeguard/closeguard/internal/logger"
)

func TestFromSpecs(t *testing.T) {
	log := logger.NewNop()

	t.Run("InvalidRegexIsSkipped", func(t *testing.T) {
		catalog := FromSpecs([]Spec{
			{
				Name:    "broken",
				Type:    "regex_presence",
				Pattern: `([0-9`,
				Message: "never loads",
			},
			{
				Name:    "healthy",
				Type:    "regex_presence",
				Pattern: `Balloon Payment`,
				Message: "loads fine",
			},
		}, log)

		if catalog.Len() != 1 {
			t.Fatalf("Expected 1 valid rule, got %d", catalog.Len())
		}
		if catalog.Rules()[0].Name != "healthy" {
			t.Errorf("Wrong rule survived: %s", catalog.Rules()[0].Name)
		}
	})

	t.Run("UnknownTypeIsSkipped", func(t *testing.T) {
		catalog := FromSpecs([]Spec{
			{Name: "mystery", Type: "sentiment_analysis", Pattern: `x`, Message: "m"},
		}, log)
		if catalog.Len() != 0 {
			t.Fatalf("Expected unknown rule type to be rejected, got %d rules", catalog.Len())
		}
	})

	t.Run("LegacyRegexAmountAlias", func(t *testing.T) {
		catalog := FromSpecs([]Spec{
			{Name: "old_style", Type: "regex_amount", Pattern: `\$([0-9,]+)`, Threshold: 100, Message: "m"},
		}, log)
		if catalog.Len() != 1 {
			t.Fatalf("Expected regex_amount alias to load, got %d rules", catalog.Len())
		}
		if catalog.Rules()[0].Kind != KindNumericThreshold {
			t.Errorf("Alias compiled to kind %s", catalog.Rules()[0].Kind)
		}
	})

	t.Run("DuplicateNamesKeepFirst", func(t *testing.T) {
		catalog := FromSpecs([]Spec{
			{Name: "dup", Type: "regex_presence", Pattern: `first`, Message: "first"},
			{Name: "dup", Type: "regex_presence", Pattern: `second`, Message: "second"},
		}, log)
		if catalog.Len() != 1 {
			t.Fatalf("Expected duplicate name to be dropped, got %d rules", catalog.Len())
		}
		if catalog.Rules()[0].Message != "first" {
			t.Errorf("Second definition won: %s", catalog.Rules()[0].Message)
		}
	})

	t.Run("DisabledRuleIsSkipped", func(t *testing.T) {
		disabled := false
		catalog := FromSpecs([]Spec{
			{Name: "off", Type: "regex_presence", Pattern: `x`, Message: "m", Enabled: &disabled},
		}, log)
		if catalog.Len() != 0 {
			t.Fatalf("Disabled rule loaded anyway")
		}
	})

	t.Run("CompoundRequiresConditions", func(t *testing.T) {
		catalog := FromSpecs([]Spec{
			{Name: "empty_compound", Type: "compound_rule", Message: "m"},
		}, log)
		if catalog.Len() != 0 {
			t.Fatalf("Compound rule without conditions loaded")
		}
	})

	t.Run("CrossReferenceFuzzyDefaultsOn", func(t *testing.T) {
		catalog := FromSpecs([]Spec{
			{
				Name:           "xref",
				Type:           "cross_reference_pattern",
				PrimaryPattern: `Seller: (\w+)`,
				SecondaryPatterns: []SecondarySpec{
					{Pattern: `Lender: (\w+)`, Service: "lending"},
				},
				Message: "m",
			},
		}, log)
		if catalog.Len() != 1 {
			t.Fatalf("Cross-reference rule failed to load")
		}
		if !catalog.Rules()[0].FuzzyMatch {
			t.Error("FuzzyMatch should default to true")
		}
	})

	t.Run("ContextComparisonDefaults", func(t *testing.T) {
		catalog := FromSpecs([]Spec{
			{
				Name:           "cmp",
				Type:           "context_comparison",
				ComparisonType: "loan_amount",
				Pattern:        `\$([0-9,]+)`,
				Message:        "m",
			},
			{
				Name:           "bad_cmp",
				Type:           "context_comparison",
				ComparisonType: "shoe_size",
				Pattern:        `\$([0-9,]+)`,
				Message:        "m",
			},
		}, log)
		if catalog.Len() != 1 {
			t.Fatalf("Expected 1 rule (unknown comparison type rejected), got %d", catalog.Len())
		}
		if got := catalog.Rules()[0].Tolerance; got != 5.0 {
			t.Errorf("Default tolerance = %v, want 5.0", got)
		}
	})

	t.Run("InvalidOperatorIsRejected", func(t *testing.T) {
		catalog := FromSpecs([]Spec{
			{Name: "weird_op", Type: "numeric_threshold", Pattern: `([0-9]+)`, Operator: "~=", Message: "m"},
		}, log)
		if catalog.Len() != 0 {
			t.Fatalf("Rule with invalid operator loaded")
		}
	})
}

func TestParse(t *testing.T) {
	log := logger.NewNop()

	t.Run("ValidYAML", func(t *testing.T) {
		data := []byte(`
rules:
  - name: high_rate
    type: numeric_threshold
    pattern: 'Interest Rate.*?([0-9.]+)\s*%'
    threshold: 8.0
    operator: ">"
    message: "rate {value}% is high"
`)
		catalog, err := Parse(data, log)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if catalog.Len() != 1 {
			t.Fatalf("Expected 1 rule, got %d", catalog.Len())
		}
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		if _, err := Parse([]byte("rules: [unclosed"), log); err == nil {
			t.Fatal("Expected error for malformed YAML")
		}
	})
}

func TestSeverityResolution(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		message  string
		want     Severity
	}{
		{"ExplicitWinsOverMarkers", "low", "🚨 critical fraud", SeverityLow},
		{"SirenIsHigh", "", "🚨 something bad", SeverityHigh},
		{"CriticalIsHigh", "", "Critical: missing field", SeverityHigh},
		{"HighBeatsMediumWhenBothPresent", "", "🚨 Warning: both markers", SeverityHigh},
		{"WarningIsMedium", "", "⚠️ Warning: costs look off", SeverityMedium},
		{"ExcessiveIsMedium", "", "Excessive fees detected", SeverityMedium},
		{"PlainIsLow", "", "Seller credit found", SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveSeverity(tt.explicit, tt.message); got != tt.want {
				t.Errorf("resolveSeverity(%q, %q) = %s, want %s", tt.explicit, tt.message, got, tt.want)
			}
		})
	}
}

func TestOperatorCompare(t *testing.T) {
	tests := []struct {
		op        Operator
		value     float64
		threshold float64
		want      bool
	}{
		{OpGreater, 5, 4, true},
		{OpGreater, 4, 4, false},
		{OpGreaterEqual, 4, 4, true},
		{OpLess, 3, 4, true},
		{OpLessEqual, 4, 4, true},
		{OpEqual, 4, 4, true},
		{OpEqual, 4.1, 4, false},
		{Operator("~="), 5, 4, false},
	}

	for _, tt := range tests {
		if got := tt.op.Compare(tt.value, tt.threshold); got != tt.want {
			t.Errorf("%s.Compare(%v, %v) = %v, want %v", tt.op, tt.value, tt.threshold, got, tt.want)
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := Default(logger.NewNop())

	if catalog.Len() != len(DefaultSpecs()) {
		t.Fatalf("Built-in catalog dropped rules: %d of %d loaded", catalog.Len(), len(DefaultSpecs()))
	}

	byName := make(map[string]Descriptor)
	for _, desc := range catalog.Rules() {
		byName[desc.Name] = desc
	}

	if desc, ok := byName["loan_type_contradiction"]; !ok || desc.Severity != SeverityHigh {
		t.Errorf("loan_type_contradiction severity = %s, want high", desc.Severity)
	}
	if desc, ok := byName["high_closing_costs"]; !ok || desc.Severity != SeverityMedium {
		t.Errorf("high_closing_costs severity = %s, want medium", desc.Severity)
	}
	if desc, ok := byName["large_cash_to_close"]; !ok || desc.Severity != SeverityLow {
		t.Errorf("large_cash_to_close severity = %s, want low", desc.Severity)
	}
	if desc := byName["missing_loan_amount"]; desc.Kind != KindRegexAbsence {
		t.Errorf("missing_loan_amount kind = %s, want regex_absence", desc.Kind)
	}
}
