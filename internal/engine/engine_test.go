package engine

import (
	"strings"
	"testing"

	"github.com/closeguard/closeguard/internal/logger"
	"github.com/closeguard/closeguard/internal/rules"
)

const disclosureText = `Closing Disclosure
Loan Amount: $400,000.00
Interest Rate: 9.5 %
Total Closing Costs: $20,000.00
Cash to Close: $45,000.00`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(rules.Default(logger.NewNop()), logger.NewNop())
}

func TestAnalyze(t *testing.T) {
	eng := newTestEngine(t)

	t.Run("EmptyTextIsClean", func(t *testing.T) {
		result := eng.Analyze("   \n\t  ", nil)
		if result.Analytics.ForensicScore != 100 {
			t.Errorf("Empty document score = %d, want 100", result.Analytics.ForensicScore)
		}
		if result.Flags == nil {
			t.Error("Flags should be an empty slice, not nil")
		}
		if len(result.Flags) != 0 {
			t.Errorf("Empty document produced %d findings", len(result.Flags))
		}
	})

	t.Run("SuspiciousDisclosure", func(t *testing.T) {
		result := eng.Analyze(disclosureText, nil)

		fired := make(map[string]Finding)
		for _, f := range result.Flags {
			fired[f.Rule] = f
		}

		for _, want := range []string{"high_closing_costs", "high_interest_rate", "zero_closing_costs_deception"} {
			if _, ok := fired[want]; !ok {
				t.Errorf("Expected rule %s to fire", want)
			}
		}
		if _, ok := fired["missing_loan_amount"]; ok {
			t.Error("Absence rule fired even though the loan amount is stated")
		}
		if result.Analytics.ForensicScore >= 100 {
			t.Errorf("Score did not drop: %d", result.Analytics.ForensicScore)
		}
	})

	t.Run("FindingsFollowCatalogOrder", func(t *testing.T) {
		result := eng.Analyze(disclosureText, nil)

		position := make(map[string]int)
		for i, desc := range eng.Catalog().Rules() {
			position[desc.Name] = i
		}

		last := -1
		for _, f := range result.Flags {
			pos, ok := position[f.Rule]
			if !ok {
				t.Fatalf("Finding from unknown rule %s", f.Rule)
			}
			if pos < last {
				t.Fatalf("Finding %s out of catalog order", f.Rule)
			}
			last = pos
		}
	})

	t.Run("ResultsAreDeduplicated", func(t *testing.T) {
		result := eng.Analyze(disclosureText, nil)
		seen := make(map[string]bool)
		for _, f := range result.Flags {
			if seen[f.Rule] {
				t.Errorf("Rule %s appears twice", f.Rule)
			}
			seen[f.Rule] = true
		}
	})
}

func TestAnalyzeContextEnhancements(t *testing.T) {
	eng := newTestEngine(t)

	t.Run("BrokenZeroCostPromiseUpgrades", func(t *testing.T) {
		ctx := &UserContext{PromisedZeroClosingCosts: true}
		result := eng.Analyze(disclosureText, ctx)

		var found *Finding
		for i := range result.Flags {
			if result.Flags[i].Rule == "zero_closing_costs_deception" {
				found = &result.Flags[i]
			}
		}
		if found == nil {
			t.Fatal("Enhanced rule did not fire")
		}
		if found.Severity != rules.SeverityHigh {
			t.Errorf("Enhanced severity = %s, want high", found.Severity)
		}
		if !strings.Contains(found.Message, "BROKEN PROMISE") {
			t.Errorf("Enhancement message not used: %s", found.Message)
		}
	})

	t.Run("CaptiveLenderConfirmed", func(t *testing.T) {
		text := "Seller: Lennar Homes\nLender: Lennar Mortgage LLC\nLoan Amount: $300,000.00"
		ctx := &UserContext{UsedBuildersPreferredLender: true, BuilderName: "Lennar"}
		result := eng.Analyze(text, ctx)

		var found *Finding
		for i := range result.Flags {
			if result.Flags[i].Rule == "builder_captive_services" {
				found = &result.Flags[i]
			}
		}
		if found == nil {
			t.Fatal("Captive lender enhancement did not fire")
		}
		if !strings.Contains(found.Message, "CAPTIVE LENDER CONFIRMED") {
			t.Errorf("Enhancement message not used: %s", found.Message)
		}
	})

	t.Run("RepresentationFraud", func(t *testing.T) {
		text := "Loan Amount: $300,000.00\nReal Estate Broker (B): N/A"
		ctx := &UserContext{HadBuyerAgent: true, BuyerAgentName: "Jane Smith"}
		result := eng.Analyze(text, ctx)

		var found *Finding
		for i := range result.Flags {
			if result.Flags[i].Rule == "missing_buyer_representation" {
				found = &result.Flags[i]
			}
		}
		if found == nil {
			t.Fatal("Representation enhancement did not fire")
		}
		if !strings.Contains(found.Message, "Jane Smith") {
			t.Errorf("Agent name not included: %s", found.Message)
		}
		if found.Severity != rules.SeverityHigh {
			t.Errorf("Enhanced severity = %s, want high", found.Severity)
		}
	})
}

func TestSetCatalog(t *testing.T) {
	eng := newTestEngine(t)

	if got := eng.Analyze(disclosureText, nil); got.Analytics.TotalFlags == 0 {
		t.Fatal("Sanity check failed: default catalog found nothing")
	}

	eng.SetCatalog(rules.FromSpecs(nil, logger.NewNop()))

	result := eng.Analyze(disclosureText, nil)
	if result.Analytics.TotalFlags != 0 {
		t.Errorf("Empty catalog still produced %d findings", result.Analytics.TotalFlags)
	}
	if result.Analytics.ForensicScore != 100 {
		t.Errorf("Empty catalog score = %d, want 100", result.Analytics.ForensicScore)
	}
}
