package engine

import (
	"strings"
	"sync/atomic"

	"github.com/closeguard/closeguard/internal/logger"
	"github.com/closeguard/closeguard/internal/rules"
	"go.uber.org/zap"
)

// Engine evaluates a rule catalog against document text. It holds no
// per-call state; the catalog is an immutable value swapped atomically
// on reload, so concurrent analyses need no coordination.
type Engine struct {
	catalog atomic.Pointer[rules.Catalog]
	logger  *logger.Logger
}

// New creates an engine over a loaded catalog.
func New(catalog *rules.Catalog, log *logger.Logger) *Engine {
	e := &Engine{logger: log}
	e.catalog.Store(catalog)

	log.Info("Rule engine initialized", zap.Int("rules", catalog.Len()))
	return e
}

// Catalog returns the catalog currently in use.
func (e *Engine) Catalog() *rules.Catalog {
	return e.catalog.Load()
}

// SetCatalog atomically replaces the catalog. In-flight analyses keep
// the catalog they started with.
func (e *Engine) SetCatalog(catalog *rules.Catalog) {
	e.catalog.Store(catalog)
	e.logger.Info("Rule catalog replaced", zap.Int("rules", catalog.Len()))
}

// Analyze runs every rule against the document text and returns the
// deduplicated findings in catalog order plus analytics. Empty text
// yields zero findings and a score of 100; no evaluator failure ever
// surfaces to the caller.
func (e *Engine) Analyze(text string, ctx *UserContext) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Flags: []Finding{}, Analytics: Score(nil)}
	}

	catalog := e.catalog.Load()
	findings := make([]Finding, 0)

	for _, desc := range catalog.Rules() {
		finding, ok := e.evaluate(desc, text, ctx)
		if ok {
			findings = append(findings, finding)
		}
	}

	findings = Dedupe(findings)

	return Result{Flags: findings, Analytics: Score(findings)}
}

// evaluate dispatches one rule to its evaluator. Context enhancements
// take precedence over the rule's regular outcome. A panicking rule is
// logged and treated as not firing rather than aborting the analysis.
func (e *Engine) evaluate(desc rules.Descriptor, text string, ctx *UserContext) (finding Finding, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Rule evaluation panicked",
				zap.String("rule", desc.Name),
				zap.Any("panic", r),
			)
			finding, ok = Finding{}, false
		}
	}()

	if enhanced, found := contextEnhancement(desc, text, ctx); found {
		return enhanced, true
	}

	switch desc.Kind {
	case rules.KindNumericThreshold:
		return evalNumericThreshold(text, desc)
	case rules.KindCalculatedPercentage:
		return evalCalculatedPercentage(text, desc)
	case rules.KindRegexPresence:
		return evalRegexPresence(text, desc)
	case rules.KindRegexAbsence:
		return evalRegexAbsence(text, desc)
	case rules.KindCompoundRule:
		return evalCompoundRule(text, desc)
	case rules.KindCrossReferencePattern:
		return evalCrossReference(text, desc)
	case rules.KindContextComparison:
		return evalContextComparison(text, desc, ctx)
	default:
		// Unreachable: the catalog rejects unknown kinds at load time.
		return Finding{}, false
	}
}
