package engine

import "encoding/json"

// UserContext carries the caller's expectations about the transaction:
// what they were quoted, what they were promised, and who represented
// them. It is optional and immutable for the duration of one analysis.
type UserContext struct {
	ExpectedLoanType     string   `json:"expectedLoanType,omitempty"`
	ExpectedInterestRate *float64 `json:"expectedInterestRate,omitempty"`
	ExpectedClosingCosts *float64 `json:"expectedClosingCosts,omitempty"`
	ExpectedPurchasePrice *float64 `json:"expectedPurchasePrice,omitempty"`
	ExpectedLoanAmount   *float64 `json:"expectedLoanAmount,omitempty"`

	PromisedZeroClosingCosts bool     `json:"promisedZeroClosingCosts,omitempty"`
	PromisedLenderCredit     *float64 `json:"promisedLenderCredit,omitempty"`
	PromisedSellerCredit     *float64 `json:"promisedSellerCredit,omitempty"`
	PromisedRebate           *float64 `json:"promisedRebate,omitempty"`

	UsedBuildersPreferredLender bool   `json:"usedBuildersPreferredLender,omitempty"`
	BuilderName                 string `json:"builderName,omitempty"`

	BuilderPromisedToCoverTitleFees  bool `json:"builderPromisedToCoverTitleFees,omitempty"`
	BuilderPromisedToCoverEscrowFees bool `json:"builderPromisedToCoverEscrowFees,omitempty"`
	BuilderPromisedToCoverInspection bool `json:"builderPromisedToCoverInspection,omitempty"`

	HadBuyerAgent  bool   `json:"hadBuyerAgent,omitempty"`
	BuyerAgentName string `json:"buyerAgentName,omitempty"`
}

// ParseUserContext decodes a JSON context blob as submitted with an
// upload. Unknown fields are ignored.
func ParseUserContext(data []byte) (*UserContext, error) {
	var ctx UserContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, err
	}
	return &ctx, nil
}

// ExpectedValue returns the expectation matching a comparison type, if
// the caller supplied one.
func (c *UserContext) ExpectedValue(comparisonType string) (float64, bool) {
	if c == nil {
		return 0, false
	}

	var field *float64
	switch comparisonType {
	case "purchase_price":
		field = c.ExpectedPurchasePrice
	case "loan_amount":
		field = c.ExpectedLoanAmount
	case "closing_costs":
		field = c.ExpectedClosingCosts
	case "interest_rate":
		field = c.ExpectedInterestRate
	}

	if field == nil {
		return 0, false
	}
	return *field, true
}
