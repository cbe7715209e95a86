// Package validation implements the rule engine that checks a computed
// statement against its EQUATION, RECONCILIATION, and BOUNDARY rules.
package validation

import (
	"fmt"
	"strings"

	"finmodel/internal/calc"
	"finmodel/internal/formula"
	"finmodel/internal/model"
)

// RuleOutcome is one rule's evaluation result.
type RuleOutcome struct {
	RuleID   string
	Name     string
	RuleType model.ValidationRuleType
	Severity model.ValidationSeverity
	Residual float64
	Passed   bool
	Skipped  bool
	Message  string
}

// Result aggregates every rule's outcome for one calculation run.
type Result struct {
	Outcomes []RuleOutcome
	Success  bool
}

// Engine evaluates a template's validation rules against a computed period.
type Engine struct {
	eval *formula.Evaluator
}

// NewEngine returns a validation rule engine.
func NewEngine() *Engine {
	return &Engine{eval: formula.NewEvaluator()}
}

// requiredLineItemCode strips a "[t-1]"-style time suffix so presence checks
// ignore which period a required line item is referenced at.
func requiredLineItemCode(ref string) string {
	if idx := strings.IndexByte(ref, '['); idx >= 0 {
		return ref[:idx]
	}
	return ref
}

// Run evaluates every rule in rules. known reports whether a line item code
// (ignoring time suffix) currently has a value anywhere in scope; providers,
// ctx, and customFn drive formula evaluation exactly as the calculation
// sweep does.
func (e *Engine) Run(
	rules []model.ValidationRule,
	known func(code string) bool,
	providers []calc.ValueProvider,
	ctx calc.Context,
	customFn calc.CustomFunction,
) Result {
	result := Result{Success: true}

	for _, rule := range rules {
		skip := false
		for _, req := range rule.RequiredLineItems {
			if !known(requiredLineItemCode(req)) {
				skip = true
				break
			}
		}
		if skip {
			result.Outcomes = append(result.Outcomes, RuleOutcome{
				RuleID: rule.RuleID, Name: rule.Name, RuleType: rule.RuleType,
				Severity: rule.Severity, Skipped: true,
				Message: "skipped: required line item not present",
			})
			continue
		}

		residual, err := e.eval.Evaluate(rule.Formula, providers, ctx, customFn)
		outcome := RuleOutcome{
			RuleID: rule.RuleID, Name: rule.Name, RuleType: rule.RuleType,
			Severity: rule.Severity, Residual: residual,
		}

		if err != nil {
			outcome.Passed = false
			outcome.Message = fmt.Sprintf("evaluation failed: %v", err)
		} else {
			outcome.Passed = rulePasses(rule.RuleType, residual, rule.Tolerance)
			if !outcome.Passed {
				outcome.Message = fmt.Sprintf("residual %g exceeds tolerance %g", residual, rule.Tolerance)
			}
		}

		if !outcome.Passed && rule.Severity == model.SeverityError {
			result.Success = false
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result
}

func rulePasses(ruleType model.ValidationRuleType, residual, tolerance float64) bool {
	switch ruleType {
	case model.RuleBoundary:
		return residual >= -tolerance
	default: // EQUATION, RECONCILIATION
		return residual <= tolerance && residual >= -tolerance
	}
}
