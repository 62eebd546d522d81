package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/closeguard/closeguard/internal/rules"
)

// Context enhancements upgrade specific rules to high-severity findings
// when the caller's stated expectations make the document's contents a
// broken promise rather than a mere anomaly. An enhanced finding
// replaces the rule's regular finding.

var (
	closingCostsPattern = regexp.MustCompile(`(?is)(?:Total Closing Costs|Closing Costs).*?\$([0-9,]+(?:\.[0-9]{2})?)`)
	lenderNamePattern   = regexp.MustCompile(`(?is)Lender\s*[:|]?\s*([A-Z][A-Za-z&. ]{2,60})`)
	noBuyerBrokerPattern = regexp.MustCompile(`(?is)Real Estate Broker \(B\).*?N/A`)
)

// promisedZeroCostsFloor is the closing-cost amount above which a
// zero-cost promise counts as broken.
const promisedZeroCostsFloor = 500

// contextEnhancement returns the upgraded finding for a rule whose
// outcome changes under the supplied context, if any applies.
func contextEnhancement(desc rules.Descriptor, text string, ctx *UserContext) (Finding, bool) {
	if ctx == nil {
		return Finding{}, false
	}

	switch desc.Name {
	case "zero_closing_costs_deception":
		if ctx.PromisedZeroClosingCosts {
			return brokenZeroCostsPromise(text)
		}
	case "builder_captive_services":
		if ctx.UsedBuildersPreferredLender && ctx.BuilderName != "" {
			return captiveLenderConfirmed(text, ctx.BuilderName)
		}
	case "missing_buyer_representation":
		if ctx.HadBuyerAgent {
			return representationMissing(text, ctx.BuyerAgentName)
		}
	}

	return Finding{}, false
}

// brokenZeroCostsPromise flags any non-trivial closing costs when the
// buyer was promised none at all.
func brokenZeroCostsPromise(text string) (Finding, bool) {
	m, ok := search(closingCostsPattern, text)
	if !ok {
		return Finding{}, false
	}
	raw, ok := m.firstCapture()
	if !ok {
		return Finding{}, false
	}
	value, cleaned, ok := numericCapture(raw)
	if !ok || value <= promisedZeroCostsFloor {
		return Finding{}, false
	}

	return Finding{
		Rule:     "zero_closing_costs_deception",
		Message:  fmt.Sprintf("🚨 BROKEN PROMISE: You were specifically promised ZERO closing costs but are paying $%s", cleaned),
		Snippet:  snippet(text, m.start, m.end),
		Severity: rules.SeverityHigh,
	}, true
}

// captiveLenderConfirmed checks whether the builder's name shows up in
// the lender field, confirming a captive-lender arrangement.
func captiveLenderConfirmed(text, builderName string) (Finding, bool) {
	m, ok := search(lenderNamePattern, text)
	if !ok {
		return Finding{}, false
	}
	raw, ok := m.firstCapture()
	if !ok {
		return Finding{}, false
	}
	lender := strings.ToUpper(strings.TrimSpace(raw))
	builder := strings.ToUpper(strings.TrimSpace(builderName))

	if !tokensCorrelate(entityTokens(builder), lender) {
		return Finding{}, false
	}

	return Finding{
		Rule:     "builder_captive_services",
		Message:  fmt.Sprintf("🚨 CAPTIVE LENDER CONFIRMED: You used %s's preferred lender (%s) - you likely paid inflated rates", builder, lender),
		Snippet:  fmt.Sprintf("Builder: %s | Lender: %s", builder, lender),
		Severity: rules.SeverityHigh,
	}, true
}

// representationMissing flags a document that lists no buyer's broker
// when the buyer believed an agent was representing them.
func representationMissing(text, agentName string) (Finding, bool) {
	if !noBuyerBrokerPattern.MatchString(text) {
		return Finding{}, false
	}

	agent := agentName
	if agent == "" {
		agent = "your agent"
	}

	return Finding{
		Rule:     "missing_buyer_representation",
		Message:  fmt.Sprintf("🚨 REPRESENTATION FRAUD: You thought %s was your buyer's agent but the document shows N/A - you had no independent representation", agent),
		Snippet:  "Real Estate Broker (B): N/A",
		Severity: rules.SeverityHigh,
	}, true
}
