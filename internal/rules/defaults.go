package rules

import "github.com/closeguard/closeguard/internal/logger"

// Default returns the built-in closing-disclosure rule catalog, used when
// no catalog file is configured.
func Default(log *logger.Logger) *Catalog {
	return FromSpecs(DefaultSpecs(), log)
}

// DefaultSpecs returns the built-in rule definitions in catalog order.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Name:               "high_closing_costs",
			Type:               "calculated_percentage",
			NumeratorPattern:   `(?i)(?:Total Closing Costs|Closing Costs).*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			DenominatorPattern: `(?i)Loan Amount.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			Threshold:          4.0,
			Operator:           ">",
			Message:            "⚠️ Warning: closing costs of {numerator} are {percentage}% of the loan amount - above the typical 2-4% range",
		},
		{
			Name:               "excessive_origination_fee",
			Type:               "calculated_percentage",
			NumeratorPattern:   `(?i)Origination (?:Fee|Charges).*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			DenominatorPattern: `(?i)Loan Amount.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			Threshold:          2.0,
			Operator:           ">",
			Message:            "⚠️ Origination charges of {numerator} are {percentage}% of the loan - anything above 2% is excessive",
		},
		{
			Name:      "zero_closing_costs_deception",
			Type:      "numeric_threshold",
			Pattern:   `(?i)(?:Total Closing Costs|Closing Costs).*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			Threshold: 10000,
			Operator:  ">",
			Message:   "⚠️ Warning: you are paying ${value} in closing costs - compare against what you were quoted",
		},
		{
			Name:    "loan_type_contradiction",
			Type:    "regex_presence",
			Pattern: `(?i)Loan Type.*?Conventional.*?FHA`,
			Message: "🚨 Error: document indicates contradictory loan types (both Conventional and FHA)",
		},
		{
			Name:    "missing_buyer_representation",
			Type:    "regex_presence",
			Pattern: `(?i)Real Estate Broker \(B\).*?N/A`,
			Message: "⚠️ Warning: no buyer's agent listed - you may have had no independent representation",
		},
		{
			Name:           "builder_captive_services",
			Type:           "cross_reference_pattern",
			PrimaryPattern: `(?i)Seller\s*[:|]?\s*([A-Z][A-Za-z&. ]{2,60})`,
			SecondaryPatterns: []SecondarySpec{
				{Pattern: `(?i)Lender\s*[:|]?\s*([A-Z][A-Za-z&. ]{2,60})`, Service: "lending"},
				{Pattern: `(?i)Title (?:Company|Insurance)\s*[:|]?\s*([A-Z][A-Za-z&. ]{2,60})`, Service: "title"},
				{Pattern: `(?i)(?:Homeowner'?s? )?Insurance (?:Company|Provider)\s*[:|]?\s*([A-Z][A-Za-z&. ]{2,60})`, Service: "insurance"},
			},
			Message: "🚨 Potential self-dealing: seller {primary} appears connected to your providers for: {services}",
		},
		{
			Name:                "purchase_price_mismatch",
			Type:                "context_comparison",
			ComparisonType:      "purchase_price",
			Pattern:             `(?i)(?:Sale Price|Purchase Price|Contract Sales Price).*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			TolerancePercentage: 1.0,
			Message:             "🚨 Purchase price error: document shows {actual} but you expected {expected} ({difference} difference)",
		},
		{
			Name:                "loan_amount_mismatch",
			Type:                "context_comparison",
			ComparisonType:      "loan_amount",
			Pattern:             `(?i)Loan Amount.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			TolerancePercentage: 1.0,
			Message:             "🚨 Loan amount error: document shows {actual} but you expected {expected} ({difference} difference)",
		},
		{
			Name:      "high_interest_rate",
			Type:      "numeric_threshold",
			Pattern:   `(?i)Interest Rate.*?([0-9]+\.?[0-9]*)\s*%`,
			Threshold: 8.0,
			Operator:  ">",
			Message:   "⚠️ Dangerous interest rate: {value}% is well above market",
		},
		{
			Name:    "balloon_payment",
			Type:    "regex_presence",
			Pattern: `(?i)Balloon Payment.*?(?:YES|☒)`,
			Message: "⚠️ Warning: this loan includes a balloon payment",
		},
		{
			Name:    "prepayment_penalty",
			Type:    "regex_presence",
			Pattern: `(?i)Prepayment Penalty.*?(?:YES|☒)`,
			Message: "⚠️ Warning: this loan carries a prepayment penalty",
		},
		{
			Name:    "missing_loan_amount",
			Type:    "regex_absence",
			Pattern: `(?i)Loan Amount`,
			Message: "🚨 Critical: document does not state a loan amount",
		},
		{
			Name: "high_rate_with_high_fees",
			Type: "compound_rule",
			Conditions: []ConditionSpec{
				{Pattern: `(?i)Interest Rate.*?([0-9]+\.?[0-9]*)\s*%`, Threshold: 7.0, Operator: ">", ValueName: "rate"},
				{Pattern: `(?i)Origination (?:Fee|Charges).*?\$([0-9,]+(?:\.[0-9]{2})?)`, Threshold: 4000, Operator: ">", ValueName: "fees"},
			},
			Message: "🚨 Paying both a high interest rate ({rate}%) and high origination fees (${fees}) - these normally trade off against each other",
		},
		{
			Name:      "large_cash_to_close",
			Type:      "numeric_threshold",
			Pattern:   `(?i)Cash to Close.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			Threshold: 100000,
			Operator:  ">",
			Message:   "Cash to close of ${value} is unusually large - verify wiring instructions independently before sending funds",
		},
		{
			Name:      "junk_fee_stacking",
			Type:      "numeric_threshold",
			Pattern:   `(?i)(?:Processing|Application|Underwriting) Fee.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			Threshold: 900,
			Operator:  ">",
			Message:   "⚠️ Excessive administrative fee of ${value} - fees like this are often negotiable",
		},
		{
			Name:    "large_seller_credit",
			Type:    "regex_presence",
			Pattern: `(?i)Seller Credit.*?\$([0-9,]+(?:\.[0-9]{2})?)`,
			Message: "Seller credit of ${1} found - confirm it matches what your contract promised",
		},
	}
}
