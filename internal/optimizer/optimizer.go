// Package optimizer rewrites query trees through an ordered rule list and
// estimates the complexity reduction.
package optimizer

import (
	"sort"

	"go.uber.org/zap"

	"github.com/truongngoctrac/claims-search/internal/domain/query"
)

// Rule is one stateless rewrite. Condition is a cheap applicability check;
// Transform returns the rewritten tree plus a description per change it
// actually made. Rules must be idempotent: transforming already-transformed
// output is a no-op.
type Rule struct {
	Name      string
	Priority  int
	Condition func(query.Tree) bool
	Transform func(query.Tree) (query.Tree, []string)
}

// Result is the outcome of one optimization pass.
type Result struct {
	Tree               query.Tree
	Applied            []string
	ImprovementPercent float64
}

// Optimizer applies rules in ascending priority order, exactly once per call.
type Optimizer struct {
	rules  []Rule
	logger *zap.Logger
}

// New creates an optimizer with the default rule set.
func New(logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewWithRules(defaultRules(), logger)
}

// NewWithRules creates an optimizer with a custom rule set.
func NewWithRules(rules []Rule, logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Optimizer{rules: sorted, logger: logger}
}

// Optimize rewrites the tree. The input is never mutated. A panicking rule
// is skipped and its input retained; Optimize itself never fails.
func (o *Optimizer) Optimize(tree query.Tree) Result {
	before := Complexity(tree)

	current := tree.Clone()
	applied := make([]string, 0, len(o.rules))

	for _, rule := range o.rules {
		next, notes := o.applyRule(rule, current)
		if next != nil {
			current = next
			applied = append(applied, notes...)
		}
	}

	after := Complexity(current)
	return Result{
		Tree:               current,
		Applied:            applied,
		ImprovementPercent: improvementPercent(before, after),
	}
}

// applyRule runs one rule with panic isolation. Returns nil when the rule
// did not apply or failed.
func (o *Optimizer) applyRule(rule Rule, tree query.Tree) (out query.Tree, notes []string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("optimization rule panicked, skipping",
				zap.String("rule", rule.Name),
				zap.Any("panic", r),
			)
			out, notes = nil, nil
		}
	}()

	if rule.Condition != nil && !rule.Condition(tree) {
		return nil, nil
	}
	next, changes := rule.Transform(tree)
	if len(changes) == 0 {
		return nil, nil
	}
	return next, changes
}

func improvementPercent(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	pct := (before - after) / before * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
