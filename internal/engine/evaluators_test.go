package engine

import (
	"strings"
	"testing"

	"github.com/closeguard/closeguard/internal/logger"
	"github.com/closeguard/closeguard/internal/rules"
)

// mustRule compiles a single spec through the catalog path so tests
// exercise the same descriptors production uses.
func mustRule(t *testing.T, spec rules.Spec) rules.Descriptor {
	t.Helper()
	catalog := rules.FromSpecs([]rules.Spec{spec}, logger.NewNop())
	if catalog.Len() != 1 {
		t.Fatalf("Spec %q did not compile", spec.Name)
	}
	return catalog.Rules()[0]
}

func TestEvalNumericThreshold(t *testing.T) {
	desc := mustRule(t, rules.Spec{
		Name:      "high_interest_rate",
		Type:      "numeric_threshold",
		Pattern:   `(?i)Interest Rate.*?([0-9]+\.?[0-9]*)\s*%`,
		Threshold: 8.0,
		Operator:  ">",
		Message:   "⚠️ Dangerous interest rate: {value}% is well above market",
	})

	t.Run("FiresAboveThreshold", func(t *testing.T) {
		finding, ok := evalNumericThreshold("Interest Rate: 9.5 %", desc)
		if !ok {
			t.Fatal("Rule did not fire for 9.5% against threshold 8.0")
		}
		if !strings.Contains(finding.Message, "9.5%") {
			t.Errorf("Message missing substituted value: %s", finding.Message)
		}
		if finding.Snippet == "" {
			t.Error("Finding has no evidence snippet")
		}
	})

	t.Run("SilentAtThreshold", func(t *testing.T) {
		if _, ok := evalNumericThreshold("Interest Rate: 8.0 %", desc); ok {
			t.Error("Strict > fired at exactly the threshold")
		}
	})

	t.Run("SilentWithoutMatch", func(t *testing.T) {
		if _, ok := evalNumericThreshold("APR not stated anywhere", desc); ok {
			t.Error("Rule fired with no match")
		}
	})

	t.Run("CommaSeparatedValue", func(t *testing.T) {
		fees := mustRule(t, rules.Spec{
			Name:      "junk_fees",
			Type:      "numeric_threshold",
			Pattern:   `(?i)Processing Fee.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			Threshold: 900,
			Operator:  ">",
			Message:   "fee of ${value} found",
		})
		finding, ok := evalNumericThreshold("Processing Fee: $1,250.00", fees)
		if !ok {
			t.Fatal("Rule did not fire for $1,250.00 against threshold 900")
		}
		if !strings.Contains(finding.Message, "$1250.00") {
			t.Errorf("Comma-stripped value not substituted: %s", finding.Message)
		}
	})
}

func TestEvalCalculatedPercentage(t *testing.T) {
	desc := mustRule(t, rules.Spec{
		Name:               "high_closing_costs",
		Type:               "calculated_percentage",
		NumeratorPattern:   `(?i)(?:Total Closing Costs|Closing Costs).*?\$([0-9,]+(?:\.[0-9]{2})?)`,
		DenominatorPattern: `(?i)Loan Amount.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
		Threshold:          4.0,
		Operator:           ">",
		Message:            "⚠️ closing costs of {numerator} are {percentage}% of the loan",
	})

	text := "Loan Amount: $400,000.00\nTotal Closing Costs: $20,000.00"

	t.Run("ComputesPercentage", func(t *testing.T) {
		finding, ok := evalCalculatedPercentage(text, desc)
		if !ok {
			t.Fatal("Rule did not fire for 5% closing costs")
		}
		if !strings.Contains(finding.Message, "5.0%") {
			t.Errorf("Percentage not rendered with one decimal: %s", finding.Message)
		}
		if !strings.Contains(finding.Message, "$20000.00") {
			t.Errorf("Numerator not substituted: %s", finding.Message)
		}
		if !strings.Contains(finding.Snippet, "Numerator:") || !strings.Contains(finding.Snippet, "Denominator:") {
			t.Errorf("Evidence does not show both spans: %s", finding.Snippet)
		}
	})

	t.Run("SilentBelowThreshold", func(t *testing.T) {
		low := "Loan Amount: $400,000.00\nTotal Closing Costs: $8,000.00"
		if _, ok := evalCalculatedPercentage(low, desc); ok {
			t.Error("Rule fired for 2% closing costs against threshold 4%")
		}
	})

	t.Run("ZeroDenominatorSuppresses", func(t *testing.T) {
		zero := "Loan Amount: $0\nTotal Closing Costs: $20,000.00"
		if _, ok := evalCalculatedPercentage(zero, desc); ok {
			t.Error("Rule fired with a zero denominator")
		}
	})

	t.Run("MissingDenominatorSuppresses", func(t *testing.T) {
		if _, ok := evalCalculatedPercentage("Total Closing Costs: $20,000.00", desc); ok {
			t.Error("Rule fired without a denominator match")
		}
	})
}

func TestEvalRegexPresence(t *testing.T) {
	t.Run("PositionalPlaceholders", func(t *testing.T) {
		desc := mustRule(t, rules.Spec{
			Name:    "large_seller_credit",
			Type:    "regex_presence",
			Pattern: `(?i)Seller Credit.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			Message: "Seller credit of ${1} found",
		})
		finding, ok := evalRegexPresence("Seller Credit: $15,000.00", desc)
		if !ok {
			t.Fatal("Rule did not fire")
		}
		if !strings.Contains(finding.Message, "$15,000.00") {
			t.Errorf("Positional capture not substituted: %s", finding.Message)
		}
	})

	t.Run("MatchesAcrossLines", func(t *testing.T) {
		desc := mustRule(t, rules.Spec{
			Name:    "loan_type_contradiction",
			Type:    "regex_presence",
			Pattern: `(?i)Loan Type.*?Conventional.*?FHA`,
			Message: "🚨 contradictory loan types",
		})
		text := "Loan Type:\nConventional\nOther terms...\nFHA case number: 123"
		if _, ok := evalRegexPresence(text, desc); !ok {
			t.Error("Pattern did not match across newlines")
		}
	})
}

func TestEvalRegexAbsence(t *testing.T) {
	desc := mustRule(t, rules.Spec{
		Name:    "missing_loan_amount",
		Type:    "regex_absence",
		Pattern: `(?i)Loan Amount`,
		Message: "🚨 Critical: document does not state a loan amount",
	})

	t.Run("FiresWhenAbsent", func(t *testing.T) {
		finding, ok := evalRegexAbsence("Purchase Price: $500,000", desc)
		if !ok {
			t.Fatal("Absence rule did not fire on a document without the pattern")
		}
		if finding.Snippet != "Pattern not found in document" {
			t.Errorf("Unexpected absence snippet: %s", finding.Snippet)
		}
	})

	t.Run("SilentWhenPresent", func(t *testing.T) {
		if _, ok := evalRegexAbsence("Loan Amount: $400,000", desc); ok {
			t.Error("Absence rule fired even though the pattern is present")
		}
	})
}

func TestEvalCompoundRule(t *testing.T) {
	desc := mustRule(t, rules.Spec{
		Name: "high_rate_with_high_fees",
		Type: "compound_rule",
		Conditions: []rules.ConditionSpec{
			{Pattern: `(?i)Interest Rate.*?([0-9]+\.?[0-9]*)\s*%`, Threshold: 7.0, Operator: ">", ValueName: "rate"},
			{Pattern: `(?i)Origination Fee.*?\$([0-9,]+(?:\.[0-9]{2})?)`, Threshold: 4000, Operator: ">", ValueName: "fees"},
		},
		Message: "🚨 high rate ({rate}%) and high fees (${fees})",
	})

	t.Run("AllConditionsHold", func(t *testing.T) {
		text := "Interest Rate: 7.5 %\nOrigination Fee: $5,000.00"
		finding, ok := evalCompoundRule(text, desc)
		if !ok {
			t.Fatal("Compound rule did not fire with both conditions satisfied")
		}
		if !strings.Contains(finding.Message, "7.5") || !strings.Contains(finding.Message, "5000") {
			t.Errorf("Named values not substituted: %s", finding.Message)
		}
		if !strings.Contains(finding.Snippet, "rate=") || !strings.Contains(finding.Snippet, "fees=") {
			t.Errorf("Evidence missing condition values: %s", finding.Snippet)
		}
	})

	t.Run("OneConditionFailsSuppresses", func(t *testing.T) {
		text := "Interest Rate: 7.5 %\nOrigination Fee: $3,000.00"
		if _, ok := evalCompoundRule(text, desc); ok {
			t.Error("Compound rule fired with only one condition satisfied")
		}
	})

	t.Run("OneConditionUnmatchedSuppresses", func(t *testing.T) {
		if _, ok := evalCompoundRule("Interest Rate: 7.5 %", desc); ok {
			t.Error("Compound rule fired with one condition missing entirely")
		}
	})
}

func TestEvalCrossReference(t *testing.T) {
	desc := mustRule(t, rules.Spec{
		Name:           "builder_captive_services",
		Type:           "cross_reference_pattern",
		PrimaryPattern: `(?i)Seller\s*[:|]?\s*([A-Z][A-Za-z&. ]{2,60})`,
		SecondaryPatterns: []rules.SecondarySpec{
			{Pattern: `(?i)Lender\s*[:|]?\s*([A-Z][A-Za-z&. ]{2,60})`, Service: "lending"},
			{Pattern: `(?i)Title Company\s*[:|]?\s*([A-Z][A-Za-z&. ]{2,60})`, Service: "title"},
		},
		Message: "🚨 seller {primary} connected to: {services}",
	})

	t.Run("FuzzySuffixVariantCorrelates", func(t *testing.T) {
		text := "Seller: Lennar Homes\nLender: Lennar Home Loans LLC\nTitle Company: Independent Title Co"
		finding, ok := evalCrossReference(text, desc)
		if !ok {
			t.Fatal("Cross-reference did not correlate HOMES with HOME LOANS")
		}
		if !strings.Contains(finding.Message, "lending") {
			t.Errorf("Correlated service missing from message: %s", finding.Message)
		}
		if strings.Contains(finding.Message, "title") {
			t.Errorf("Uncorrelated service leaked into message: %s", finding.Message)
		}
	})

	t.Run("UnrelatedEntitiesSilent", func(t *testing.T) {
		text := "Seller: Lennar Homes\nLender: First National Bank"
		if _, ok := evalCrossReference(text, desc); ok {
			t.Error("Cross-reference fired for unrelated seller and lender")
		}
	})
}

func TestEvalContextComparison(t *testing.T) {
	desc := mustRule(t, rules.Spec{
		Name:                "purchase_price_mismatch",
		Type:                "context_comparison",
		ComparisonType:      "purchase_price",
		Pattern:             `(?i)Purchase Price.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
		TolerancePercentage: 1.0,
		Message:             "🚨 document shows {actual} but you expected {expected} ({difference} difference)",
	})

	expected := 450000.0
	ctx := &UserContext{ExpectedPurchasePrice: &expected}

	t.Run("MismatchBeyondTolerance", func(t *testing.T) {
		finding, ok := evalContextComparison("Purchase Price: $500,000.00", desc, ctx)
		if !ok {
			t.Fatal("Comparison did not fire for an 11% discrepancy against 1% tolerance")
		}
		if !strings.Contains(finding.Message, "$500,000.00") {
			t.Errorf("Actual amount not formatted as money: %s", finding.Message)
		}
		if !strings.Contains(finding.Message, "$450,000.00") {
			t.Errorf("Expected amount not formatted as money: %s", finding.Message)
		}
		if !strings.Contains(finding.Message, "11.1%") {
			t.Errorf("Percent difference not rendered: %s", finding.Message)
		}
	})

	t.Run("WithinToleranceSilent", func(t *testing.T) {
		if _, ok := evalContextComparison("Purchase Price: $451,000.00", desc, ctx); ok {
			t.Error("Comparison fired inside the tolerance band")
		}
	})

	t.Run("NoContextSkips", func(t *testing.T) {
		if _, ok := evalContextComparison("Purchase Price: $500,000.00", desc, nil); ok {
			t.Error("Comparison fired without a user context")
		}
	})

	t.Run("ZeroExpectationSkips", func(t *testing.T) {
		zero := 0.0
		if _, ok := evalContextComparison("Purchase Price: $500,000.00", desc, &UserContext{ExpectedPurchasePrice: &zero}); ok {
			t.Error("Comparison fired against a zero expectation")
		}
	})
}

func TestEntityMatching(t *testing.T) {
	t.Run("NormalizeEntity", func(t *testing.T) {
		if got := normalizeEntity("D.R. Horton, Inc."); got != "D R HORTON INC" {
			t.Errorf("normalizeEntity = %q", got)
		}
	})

	t.Run("TokensCorrelate", func(t *testing.T) {
		tests := []struct {
			primary   string
			secondary string
			want      bool
		}{
			{"KB HOMES", "KB HOME LOANS", true},
			{"LENNAR HOMES", "LENNAR TITLE", true},
			{"PULTE GROUP", "PULTEGROUP MORTGAGE", true},
			{"MERITAGE HOMES", "FIRST NATIONAL BANK", false},
		}
		for _, tt := range tests {
			got := tokensCorrelate(entityTokens(tt.primary), tt.secondary)
			if got != tt.want {
				t.Errorf("tokensCorrelate(%q, %q) = %v, want %v", tt.primary, tt.secondary, got, tt.want)
			}
		}
	})
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{400000, "$400,000.00"},
		{1234567.89, "$1,234,567.89"},
		{999, "$999.00"},
		{-2500, "-$2,500.00"},
	}
	for _, tt := range tests {
		if got := formatMoney(tt.value); got != tt.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
