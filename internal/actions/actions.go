// Package actions implements management action application: turning a
// scenario's capex/opex commitments into line-item formula rewrites on a
// cloned statement template.
package actions

import (
	"encoding/json"
	"fmt"
	"strconv"

	"finmodel/internal/apperrors"
	"finmodel/internal/model"
	"finmodel/internal/template"
)

// ParseTransformations decodes a transformation document in either of the
// two JSON dialects a management action's financial/carbon transformations
// may be stored in:
//
//	array form:  [{"line_item": "X", "type": "multiply", "factor": 1.1}, ...]
//	object form: {"X": {"type": "multiply", "factor": 1.1}, ...}
//
// In object form, the map key supplies the line item code.
func ParseTransformations(raw []byte) ([]model.Transformation, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: transformation json: %v", apperrors.ErrParse, err)
	}

	switch v := probe.(type) {
	case []any:
		var out []model.Transformation
		for _, entry := range v {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			t := transformationFromMap(stringField(m, "line_item"), m)
			if t.LineItemCode != "" && t.TransformationType != "" {
				out = append(out, t)
			}
		}
		return out, nil

	case map[string]any:
		var out []model.Transformation
		for lineItem, details := range v {
			m, ok := details.(map[string]any)
			if !ok {
				continue
			}
			t := transformationFromMap(lineItem, m)
			if t.TransformationType != "" {
				out = append(out, t)
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: transformation json must be an array or object", apperrors.ErrParse)
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func transformationFromMap(lineItem string, m map[string]any) model.Transformation {
	t := model.Transformation{
		LineItemCode:       lineItem,
		TransformationType: stringField(m, "type"),
		Factor:             1.0,
		NewFormula:         stringField(m, "new_formula"),
		Comment:            stringField(m, "comment"),
	}
	if f, ok := m["factor"].(float64); ok {
		t.Factor = f
	}
	if a, ok := m["amount"].(float64); ok {
		t.Amount = a
	}
	return t
}

// Engine applies scenario management actions to a statement template.
type Engine struct{}

// NewEngine returns a management action engine.
func NewEngine() *Engine {
	return &Engine{}
}

// CloneForScenario clones base under a scenario-specific code, so action
// transformations never mutate the shared base template.
func (e *Engine) CloneForScenario(base *template.Template, scenarioCode string) (*template.Template, error) {
	return base.Clone(fmt.Sprintf("%s_%s", base.Code, scenarioCode))
}

// ApplyActions applies every action active in periodID to tpl, in order,
// financial transformations before carbon transformations within each
// action. It returns the number of transformations actually applied
// (transformations targeting a line item absent from tpl are skipped).
//
// An action only applies when it's both within its start/end window
// (IsActiveInPeriod) and triggers for this period under its trigger type
// (ShouldTrigger) -- the window bounds an UNCONDITIONAL action just as much
// as a TIMED or CONDITIONAL one, so neither check alone is sufficient.
func (e *Engine) ApplyActions(tpl *template.Template, actions []model.ManagementAction, periodID int) (int, error) {
	applied := 0

	for _, action := range actions {
		if !action.IsActiveInPeriod(periodID) || !e.ShouldTrigger(action, periodID, nil) {
			continue
		}

		for _, t := range action.FinancialTransformations {
			ok, err := e.applyTransformation(tpl, t)
			if err != nil {
				return applied, fmt.Errorf("action %s: %w", action.ActionCode, err)
			}
			if ok {
				applied++
			}
		}

		for _, t := range action.CarbonTransformations {
			ok, err := e.applyTransformation(tpl, t)
			if err != nil {
				return applied, fmt.Errorf("action %s: %w", action.ActionCode, err)
			}
			if ok {
				applied++
			}
		}
	}

	return applied, nil
}

func (e *Engine) applyTransformation(tpl *template.Template, t model.Transformation) (bool, error) {
	item := tpl.LineItem(t.LineItemCode)
	if item == nil {
		return false, nil
	}

	var newFormula string

	switch t.TransformationType {
	case "formula_override":
		newFormula = t.NewFormula

	case "multiply":
		if item.Formula != nil && *item.Formula != "" {
			newFormula = "(" + *item.Formula + ") * " + strconv.FormatFloat(t.Factor, 'f', -1, 64)
		} else {
			newFormula = t.LineItemCode + " * " + strconv.FormatFloat(t.Factor, 'f', -1, 64)
		}

	case "add":
		if item.Formula != nil && *item.Formula != "" {
			newFormula = "(" + *item.Formula + ") + (" + strconv.FormatFloat(t.Amount, 'f', -1, 64) + ")"
		} else {
			newFormula = t.LineItemCode + " + (" + strconv.FormatFloat(t.Amount, 'f', -1, 64) + ")"
		}

	case "reduce":
		if item.Formula != nil && *item.Formula != "" {
			newFormula = "(" + *item.Formula + ") - (" + strconv.FormatFloat(t.Amount, 'f', -1, 64) + ")"
		} else {
			newFormula = t.LineItemCode + " - (" + strconv.FormatFloat(t.Amount, 'f', -1, 64) + ")"
		}

	default:
		return false, nil
	}

	if err := tpl.UpdateLineItemFormula(t.LineItemCode, newFormula); err != nil {
		return false, fmt.Errorf("%w: applying %q to %q: %v", apperrors.ErrDomain, t.TransformationType, t.LineItemCode, err)
	}
	if err := tpl.ClearBaseValueSource(t.LineItemCode); err != nil {
		return false, err
	}

	return true, nil
}

// ShouldTrigger reports whether action activates in periodID.
// availableValues is reserved for CONDITIONAL triggers evaluating a formula
// against already-computed values; CONDITIONAL intentionally always returns
// false here (see DESIGN.md), so it is currently unused.
func (e *Engine) ShouldTrigger(action model.ManagementAction, periodID int, availableValues map[string]float64) bool {
	switch action.TriggerType {
	case model.TriggerUnconditional:
		return action.StartPeriod <= 0 || periodID >= action.StartPeriod

	case model.TriggerTimed:
		if action.TriggerPeriod > 0 {
			return periodID == action.TriggerPeriod
		}
		return action.StartPeriod > 0 && periodID == action.StartPeriod

	case model.TriggerConditional:
		return false

	default:
		return false
	}
}
