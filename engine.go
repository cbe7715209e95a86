// Package finmodel is the top-level entry point for the financial
// statement simulator: it wires the template, provider, calculation,
// validation, management-action, orchestration, physical-risk, carbon, and
// audit layers together behind a single Engine type.
package finmodel

import (
	"fmt"

	"finmodel/internal/actions"
	"finmodel/internal/audit"
	"finmodel/internal/calc"
	"finmodel/internal/carbon"
	"finmodel/internal/commit"
	"finmodel/internal/engine"
	"finmodel/internal/fx"
	"finmodel/internal/model"
	"finmodel/internal/providers"
	"finmodel/internal/risk"
	"finmodel/internal/schedule"
	"finmodel/internal/store"
	"finmodel/internal/tax"
	"finmodel/internal/template"
	"finmodel/internal/units"

	"github.com/sirupsen/logrus"
)

// Engine is the main entry point for running a statement template against
// a store-backed scenario: loading templates, building a per-scenario
// calculation engine, rolling periods forward, applying management
// actions, computing physical-risk drivers, building MAC curves, and
// committing results with an audit trail.
type Engine struct {
	store     store.Store
	taxEngine *tax.Engine
	committer *commit.Committer
	journal   *audit.Journal
	scheduler *schedule.Scheduler
}

// New builds an Engine over s. taxEngine may be nil to use the default
// strategy registry (US_FEDERAL, NO_TAX, HIGH_TAX, US_PROGRESSIVE).
func New(s store.Store, taxEngine *tax.Engine) *Engine {
	if taxEngine == nil {
		taxEngine = tax.NewEngine()
	}
	journal := audit.NewJournal(s, nil)
	return &Engine{
		store:     s,
		taxEngine: taxEngine,
		committer: commit.NewCommitter(s, journal, nil),
		journal:   journal,
	}
}

// LoadTemplate reads and parses the statement template stored under code.
func (e *Engine) LoadTemplate(code string) (*template.Template, error) {
	doc, found, err := e.store.GetTemplateJSON(code)
	if err != nil {
		return nil, fmt.Errorf("loading template %q: %w", code, err)
	}
	if !found {
		return nil, fmt.Errorf("template %q not found", code)
	}
	return template.LoadFromJSON(doc)
}

// SaveTemplate persists tpl under its own template code.
func (e *Engine) SaveTemplate(tpl *template.Template) error {
	doc, err := tpl.ToJSON()
	if err != nil {
		return fmt.Errorf("serializing template: %w", err)
	}
	return e.store.SaveTemplateJSON(tpl.Code, doc)
}

// NewUnitConverter builds a unit converter over this engine's FX rates for
// the given scenario, used for TIME_VARYING unit conversions.
func (e *Engine) NewUnitConverter(scenarioID calc.ScenarioID) (*units.Converter, error) {
	return units.NewConverter(e.store, fx.NewProvider(e.store, int(scenarioID)))
}

// ScenarioEngine builds a per-scenario UnifiedEngine for tpl: a driver
// provider bound to the template, an FX provider for the scenario, and a
// tax provider that reads this engine's own in-flight statement values.
func (e *Engine) ScenarioEngine(tpl *template.Template, scenarioID calc.ScenarioID) (*engine.UnifiedEngine, error) {
	rules, err := e.store.GetRulesForTemplate(tpl.Code)
	if err != nil {
		return nil, fmt.Errorf("loading validation rules for %q: %w", tpl.Code, err)
	}

	driverProvider := providers.NewDriverProvider(e.store, tpl)
	fxProvider := fx.NewProvider(e.store, int(scenarioID))

	unified := engine.New(tpl, driverProvider, rules, fxProvider)
	taxProvider := tax.NewProvider(e.taxEngine, unified.StatementProvider().Current)
	unified.AddProvider(taxProvider)

	return unified, nil
}

// ApplyActions clones tpl for scenarioID and applies every management
// action active in periodID, returning the scenario-specific template and
// how many transformations were applied.
func (e *Engine) ApplyActions(tpl *template.Template, scenarioID calc.ScenarioID, periodID int) (*template.Template, int, error) {
	acts, err := e.store.GetActions(int(scenarioID))
	if err != nil {
		return nil, 0, fmt.Errorf("loading actions for scenario %d: %w", scenarioID, err)
	}

	eng := actions.NewEngine()
	scenarioTpl, err := eng.CloneForScenario(tpl, fmt.Sprintf("%d", scenarioID))
	if err != nil {
		return nil, 0, err
	}

	applied, err := eng.ApplyActions(scenarioTpl, acts, periodID)
	if err != nil {
		return nil, 0, err
	}

	if applied > 0 {
		for _, a := range acts {
			if !a.IsActiveInPeriod(periodID) || !eng.ShouldTrigger(a, periodID, nil) {
				continue
			}
			payload := audit.ActionAppliedPayload{
				ActionCode:             a.ActionCode,
				TransformationsApplied: len(a.FinancialTransformations) + len(a.CarbonTransformations),
			}
			if err := e.journal.Record(audit.EventActionApplied, payload, int(scenarioID), periodID); err != nil {
				return nil, 0, err
			}
		}
	}

	return scenarioTpl, applied, nil
}

// PhysicalRiskEngine builds a physical-risk damage engine over this
// engine's stores.
func (e *Engine) PhysicalRiskEngine() *risk.Engine {
	registry := risk.NewRegistry(e.store)
	return risk.NewEngine(e.store, e.store, e.store, registry)
}

// MacCurveBuilder builds a MAC curve builder amortizing capex over
// amortizationYears.
func (e *Engine) MacCurveBuilder(amortizationYears float64) *carbon.Builder {
	return carbon.NewBuilder(amortizationYears, e.store)
}

// Committer exposes the commit-time validation and persistence layer.
func (e *Engine) Committer() *commit.Committer {
	return e.committer
}

// Journal exposes the audit trail.
func (e *Engine) Journal() *audit.Journal {
	return e.journal
}

// StartScheduler builds a scheduler logging through log (nil discards
// logs), registers job against expr, and starts it running. The returned
// scheduler's Stop should be called on shutdown. Calling StartScheduler
// more than once replaces the previously running scheduler without
// stopping it; callers managing multiple jobs should build and start their
// own schedule.Scheduler directly instead.
func (e *Engine) StartScheduler(log *logrus.Logger, expr string, job schedule.Job) (*schedule.Scheduler, error) {
	sched := schedule.New(log)
	if err := sched.AddJob(expr, job); err != nil {
		return nil, fmt.Errorf("registering scheduled job %q: %w", job.Name(), err)
	}
	sched.Start()
	e.scheduler = sched
	return sched, nil
}

// RunAndCommit runs ctx's calculation sweep through eng, rolling forward
// from opening, and commits the result if it passes commit-time validation.
// It returns the sweep result, the commit outcome, and any hard error.
func (e *Engine) RunAndCommit(eng *engine.UnifiedEngine, ctx calc.Context, opening map[string]float64, committedBy string) (engine.UnifiedResult, *commit.ValidationOutcome, error) {
	result, err := eng.Run(ctx, opening)
	if err != nil {
		// result still carries every line item Run computed before the
		// failure; return it rather than discarding it.
		return result, nil, err
	}

	outcome, err := e.committer.CommitResult(result, committedBy)
	if err != nil {
		return result, nil, err
	}

	return result, outcome, nil
}

// Close releases the underlying store's resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// ScenarioDrivers seeds drivers directly. Useful for tests and one-off
// scenario construction.
func (e *Engine) ScenarioDrivers(drivers []model.Driver) error {
	return e.store.InsertDrivers(drivers)
}
