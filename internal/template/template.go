// Package template implements the statement template model: line items,
// JSON load/save, calculation-order derivation, and the clone/mutate
// operations management actions rely on.
package template

import (
	"encoding/json"
	"fmt"

	"finmodel/internal/apperrors"
	"finmodel/internal/formula"
)

// SignConvention records how a line item's stored value should be read:
// spec.md's engine never re-signs on read, but templates still document the
// intended sign for downstream reporting/UI layers.
type SignConvention string

const (
	SignPositive SignConvention = "positive"
	SignNegative SignConvention = "negative"
	SignNeutral  SignConvention = "neutral"
)

// ValidationRuleRef is a template-embedded validation rule reference (the
// denormalized form a template JSON document may carry inline, distinct
// from the ValidationRuleEngine's store-backed rule records).
type ValidationRuleRef struct {
	RuleID   string `json:"rule_id"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// LineItem is one row of a statement template.
type LineItem struct {
	Code             string         `json:"code"`
	DisplayName      string         `json:"display_name"`
	Level            int            `json:"level"`
	DriverApplicable bool           `json:"driver_applicable"`
	Category         string         `json:"category"`
	IsComputed       bool           `json:"is_computed"`
	Formula          *string        `json:"formula,omitempty"`
	BaseValueSource  *string        `json:"base_value_source,omitempty"`
	DriverCode       *string        `json:"driver_code,omitempty"`
	Dependencies     []string       `json:"dependencies,omitempty"`
	SignConvention   SignConvention `json:"sign_convention"`
}

type templateDoc struct {
	TemplateCode      string              `json:"template_code"`
	TemplateName      string              `json:"template_name"`
	StatementType     string              `json:"statement_type"`
	Industry          string              `json:"industry"`
	Version           string              `json:"version"`
	Description       string              `json:"description"`
	LineItems         []LineItem          `json:"line_items"`
	CalculationOrder  []string            `json:"calculation_order,omitempty"`
	ValidationRules   []ValidationRuleRef `json:"validation_rules,omitempty"`
	DenormalizedCols  []string            `json:"denormalized_columns,omitempty"`
	Metadata          *metadataDoc        `json:"metadata,omitempty"`
}

type metadataDoc struct {
	SupportsConsolidation bool   `json:"supports_consolidation"`
	DefaultFrequency      string `json:"default_frequency"`
}

// Template is a statement template: immutable after Load except through the
// mutating methods below, which recompute the calculation order on every
// formula change.
type Template struct {
	Code                  string
	Name                  string
	StatementType         string
	Industry              string
	Version               string
	Description           string
	SupportsConsolidation bool
	DefaultFrequency      string
	DenormalizedColumns   []string
	ValidationRules       []ValidationRuleRef

	lineItems        []LineItem
	lineItemIndex    map[string]int
	calculationOrder []string
}

// LoadFromJSON parses a template document.
func LoadFromJSON(content []byte) (*Template, error) {
	var doc templateDoc
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: template json: %v", apperrors.ErrParse, err)
	}

	t := &Template{
		Code:                doc.TemplateCode,
		Name:                doc.TemplateName,
		StatementType:       doc.StatementType,
		Industry:            doc.Industry,
		Version:             doc.Version,
		Description:         doc.Description,
		DenormalizedColumns: doc.DenormalizedCols,
		ValidationRules:     doc.ValidationRules,
		lineItemIndex:       make(map[string]int, len(doc.LineItems)),
	}
	if t.Version == "" {
		t.Version = "1.0.0"
	}

	for i, item := range doc.LineItems {
		if item.SignConvention == "" {
			item.SignConvention = SignNeutral
		}
		t.lineItems = append(t.lineItems, item)
		t.lineItemIndex[item.Code] = i
	}

	if doc.Metadata != nil {
		t.SupportsConsolidation = doc.Metadata.SupportsConsolidation
		t.DefaultFrequency = doc.Metadata.DefaultFrequency
	} else {
		t.DefaultFrequency = "monthly"
	}

	if len(doc.CalculationOrder) > 0 {
		t.calculationOrder = doc.CalculationOrder
	} else if err := t.computeCalculationOrder(); err != nil {
		return nil, err
	}

	return t, nil
}

// LineItem returns the line item with the given code, or nil if absent.
func (t *Template) LineItem(code string) *LineItem {
	idx, ok := t.lineItemIndex[code]
	if !ok {
		return nil
	}
	return &t.lineItems[idx]
}

// LineItems returns every line item in template definition order.
func (t *Template) LineItems() []LineItem {
	return t.lineItems
}

// CalculationOrder returns the current dependency-ordered calculation sequence.
func (t *Template) CalculationOrder() []string {
	return t.calculationOrder
}

// UpdateLineItemFormula replaces a line item's formula and recomputes the
// calculation order. If the new formula introduces a cycle, the formula
// change is rolled back and the cycle error is returned.
func (t *Template) UpdateLineItemFormula(code, newFormula string) error {
	idx, ok := t.lineItemIndex[code]
	if !ok {
		return fmt.Errorf("%w: unknown line item %q", apperrors.ErrDomain, code)
	}

	previous := t.lineItems[idx].Formula
	previousComputed := t.lineItems[idx].IsComputed

	f := newFormula
	t.lineItems[idx].Formula = &f
	t.lineItems[idx].IsComputed = true

	if err := t.computeCalculationOrder(); err != nil {
		t.lineItems[idx].Formula = previous
		t.lineItems[idx].IsComputed = previousComputed
		return err
	}

	return nil
}

// ClearBaseValueSource removes a line item's base_value_source, so the
// driver provider no longer overrides its (now formula-driven) value.
func (t *Template) ClearBaseValueSource(code string) error {
	idx, ok := t.lineItemIndex[code]
	if !ok {
		return fmt.Errorf("%w: unknown line item %q", apperrors.ErrDomain, code)
	}
	t.lineItems[idx].BaseValueSource = nil
	return nil
}

// computeCalculationOrder rebuilds the dependency graph from every line
// item's formula and recomputes the topological order. Time-shifted
// dependencies (any reference with a non-zero time offset) are inter-period
// and excluded from the intra-period graph, per this engine's dependency
// extraction rule.
func (t *Template) computeCalculationOrder() error {
	graph := formula.NewDependencyGraph()
	eval := formula.NewEvaluator()

	for _, item := range t.lineItems {
		graph.AddNode(item.Code)
	}

	for _, item := range t.lineItems {
		if item.Formula == nil {
			continue
		}

		deps, err := eval.ExtractDependencies(*item.Formula)
		if err != nil {
			return fmt.Errorf("line item %q: %w", item.Code, err)
		}

		for _, dep := range deps {
			if dep.HasTimeRef && dep.TimeOffset != 0 {
				continue
			}
			if _, exists := t.lineItemIndex[dep.Code]; !exists {
				continue // external dependency, resolved at runtime via a value provider
			}
			if dep.Code == item.Code {
				continue // self-reference (e.g. "OPEX * 0.9"), resolved at runtime via a value provider
			}
			graph.AddEdge(item.Code, dep.Code)
		}
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return err
	}

	t.calculationOrder = order
	return nil
}

// ToJSON serializes the template back to its document form.
func (t *Template) ToJSON() ([]byte, error) {
	doc := templateDoc{
		TemplateCode:     t.Code,
		TemplateName:     t.Name,
		StatementType:    t.StatementType,
		Industry:         t.Industry,
		Version:          t.Version,
		Description:      t.Description,
		LineItems:        t.lineItems,
		CalculationOrder: t.calculationOrder,
		ValidationRules:  t.ValidationRules,
		DenormalizedCols: t.DenormalizedColumns,
		Metadata: &metadataDoc{
			SupportsConsolidation: t.SupportsConsolidation,
			DefaultFrequency:      t.DefaultFrequency,
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: serializing template %q: %v", apperrors.ErrStore, t.Code, err)
	}
	return data, nil
}

// Clone produces an independent deep copy of the template under a new code,
// via a JSON round trip, matching the clone semantics used to derive
// per-scenario templates for management actions.
func (t *Template) Clone(newCode string) (*Template, error) {
	data, err := t.ToJSON()
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: cloning template %q: %v", apperrors.ErrStore, t.Code, err)
	}

	doc["template_code"] = newCode
	if name, ok := doc["template_name"].(string); ok {
		doc["template_name"] = fmt.Sprintf("%s (Clone: %s)", name, newCode)
	}

	cloned, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: cloning template %q: %v", apperrors.ErrStore, t.Code, err)
	}

	return LoadFromJSON(cloned)
}
