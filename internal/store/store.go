// Package store defines the persistent-state abstractions spec.md treats as
// an external collaborator: templates, drivers, FX rates, units, perils,
// assets, damage functions, management actions, validation rules, MAC
// curves, and the audit journal. Concrete implementations live in the bolt
// and memory subpackages; every engine component here depends only on
// these interfaces (accept interfaces, return structs).
package store

import "finmodel/internal/model"

// TemplateStore persists statement template documents by code.
type TemplateStore interface {
	GetTemplateJSON(code string) ([]byte, bool, error)
	SaveTemplateJSON(code string, doc []byte) error
}

// DriverStore persists scenario driver values.
type DriverStore interface {
	GetDrivers(entityID string, scenarioID, periodID int) (map[string]float64, error)
	DeleteDriversMatching(scenarioID int, codeSuffixes []string) error
	InsertDrivers(drivers []model.Driver) error
}

// FXStore persists FX rate quotes.
type FXStore interface {
	GetRates(scenarioID int) ([]model.FXRate, error)
}

// UnitStore persists the unit-of-measure catalog.
type UnitStore interface {
	GetUnitDefinitions() ([]model.UnitDefinition, error)
}

// PerilStore persists physical perils bound to a scenario.
type PerilStore interface {
	GetPerils(scenarioID int) ([]model.PhysicalPeril, error)
}

// AssetStore persists the physical asset exposure catalog.
type AssetStore interface {
	GetAssets() ([]model.AssetExposure, error)
}

// DamageFunctionStore persists damage-function curve definitions.
type DamageFunctionStore interface {
	GetFunctionForPeril(perilType, damageTarget string) (model.DamageFunctionDef, bool, error)
}

// ActionStore persists management actions bound to a scenario.
type ActionStore interface {
	GetActions(scenarioID int) ([]model.ManagementAction, error)
}

// RuleStore persists validation rules bound to a template.
type RuleStore interface {
	GetRulesForTemplate(templateCode string) ([]model.ValidationRule, error)
}

// MacCurveStore persists MAC curve analysis results.
type MacCurveStore interface {
	SaveMACCurve(curve model.MACCurve) error
	LoadMACCurve(scenarioID, periodID int) (model.MACCurve, error)
}

// AuditStore persists the append-only audit journal.
type AuditStore interface {
	AppendEvent(event model.AuditEvent) error
	GetEvents(scenarioID int) ([]model.AuditEvent, error)
}

// ResultStore persists committed calculation results, one per
// entity/scenario/period, with monotonically increasing versions so a
// recompute-and-recommit can be distinguished from the original run.
type ResultStore interface {
	SaveResult(result model.CommittedResult) error
	GetResult(entityID string, scenarioID, periodID int) (model.CommittedResult, bool, error)
	DeleteResult(entityID string, scenarioID, periodID int) error
}

// Store aggregates every persistence concern the engine needs. Concrete
// backends (bolt, memory) implement this whole surface; callers that only
// need a subset should depend on the narrower interfaces above instead.
type Store interface {
	TemplateStore
	DriverStore
	FXStore
	UnitStore
	PerilStore
	AssetStore
	DamageFunctionStore
	ActionStore
	RuleStore
	MacCurveStore
	AuditStore
	ResultStore

	Close() error
}
