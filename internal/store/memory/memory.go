// Package memory implements store.Store in-process with plain maps guarded
// by a mutex. It exists for tests and short-lived CLI invocations that don't
// need bbolt's durability.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"finmodel/internal/apperrors"
	"finmodel/internal/model"
)

// Store is a map-backed, concurrency-safe implementation of store.Store.
type Store struct {
	mu sync.Mutex

	templates map[string][]byte
	drivers   map[string]model.Driver
	fxRates   map[string]model.FXRate
	units     map[string]model.UnitDefinition
	perils    map[string]model.PhysicalPeril
	assets    map[string]model.AssetExposure
	damageFns map[string]model.DamageFunctionDef
	actions   map[string]model.ManagementAction
	rules     map[string]model.ValidationRule
	macCurves map[string]model.MACCurve
	audit     []model.AuditEvent
	results   map[string]model.CommittedResult
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		templates: make(map[string][]byte),
		drivers:   make(map[string]model.Driver),
		fxRates:   make(map[string]model.FXRate),
		units:     make(map[string]model.UnitDefinition),
		perils:    make(map[string]model.PhysicalPeril),
		assets:    make(map[string]model.AssetExposure),
		damageFns: make(map[string]model.DamageFunctionDef),
		actions:   make(map[string]model.ManagementAction),
		rules:     make(map[string]model.ValidationRule),
		macCurves: make(map[string]model.MACCurve),
		results:   make(map[string]model.CommittedResult),
	}
}

// Close is a no-op; the in-memory store holds no external resources.
func (s *Store) Close() error { return nil }

// --- Templates ---

func (s *Store) GetTemplateJSON(code string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.templates[code]
	return data, ok, nil
}

func (s *Store) SaveTemplateJSON(code string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[code] = append([]byte(nil), doc...)
	return nil
}

// --- Drivers ---

func driverKey(entityID string, scenarioID, periodID int, code string) string {
	return fmt.Sprintf("%s|%d|%d|%s", entityID, scenarioID, periodID, code)
}

func (s *Store) GetDrivers(entityID string, scenarioID, periodID int) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := fmt.Sprintf("%s|%d|%d|", entityID, scenarioID, periodID)
	result := make(map[string]float64)
	for key, d := range s.drivers {
		if strings.HasPrefix(key, prefix) {
			result[d.Code] = d.Value
		}
	}
	return result, nil
}

func (s *Store) DeleteDriversMatching(scenarioID int, codeSuffixes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, d := range s.drivers {
		if d.ScenarioID != scenarioID {
			continue
		}
		for _, suffix := range codeSuffixes {
			if strings.Contains(d.Code, suffix) {
				delete(s.drivers, key)
				break
			}
		}
	}
	return nil
}

func (s *Store) InsertDrivers(drivers []model.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range drivers {
		s.drivers[driverKey(d.EntityID, d.ScenarioID, d.PeriodID, d.Code)] = d
	}
	return nil
}

// --- FX rates ---

func (s *Store) GetRates(scenarioID int) ([]model.FXRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rates []model.FXRate
	for _, r := range s.fxRates {
		if r.ScenarioID == scenarioID {
			rates = append(rates, r)
		}
	}
	return rates, nil
}

// PutRate inserts or replaces one FX rate quote.
func (s *Store) PutRate(r model.FXRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d|%d|%s|%s|%s", r.ScenarioID, r.PeriodID, r.FromCurrency, r.ToCurrency, r.RateType)
	s.fxRates[key] = r
	return nil
}

// --- Units ---

func (s *Store) GetUnitDefinitions() ([]model.UnitDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs := make([]model.UnitDefinition, 0, len(s.units))
	for _, d := range s.units {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].UnitCode < defs[j].UnitCode })
	return defs, nil
}

// PutUnitDefinition inserts or replaces one unit definition.
func (s *Store) PutUnitDefinition(d model.UnitDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[d.UnitCode] = d
	return nil
}

// --- Perils ---

func (s *Store) GetPerils(scenarioID int) ([]model.PhysicalPeril, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var perils []model.PhysicalPeril
	for _, p := range s.perils {
		if p.ScenarioID == scenarioID {
			perils = append(perils, p)
		}
	}
	return perils, nil
}

// PutPeril inserts or replaces one physical peril record.
func (s *Store) PutPeril(p model.PhysicalPeril) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perils[fmt.Sprintf("%d|%d", p.ScenarioID, p.PerilID)] = p
	return nil
}

// --- Assets ---

func (s *Store) GetAssets() ([]model.AssetExposure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := make([]model.AssetExposure, 0, len(s.assets))
	for _, a := range s.assets {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].AssetCode < assets[j].AssetCode })
	return assets, nil
}

// PutAsset inserts or replaces one asset exposure record.
func (s *Store) PutAsset(a model.AssetExposure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.AssetCode] = a
	return nil
}

// --- Damage functions ---

func (s *Store) GetFunctionForPeril(perilType, damageTarget string) (model.DamageFunctionDef, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.damageFns[perilType+"|"+damageTarget]
	return def, ok, nil
}

// PutDamageFunction inserts or replaces one damage function definition.
func (s *Store) PutDamageFunction(d model.DamageFunctionDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.damageFns[d.PerilType+"|"+d.DamageTarget] = d
	return nil
}

// --- Management actions ---

func (s *Store) GetActions(scenarioID int) ([]model.ManagementAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var actions []model.ManagementAction
	for _, a := range s.actions {
		if a.ScenarioID == scenarioID {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

// PutAction inserts or replaces one management action record.
func (s *Store) PutAction(a model.ManagementAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[fmt.Sprintf("%d|%s", a.ScenarioID, a.ActionCode)] = a
	return nil
}

// --- Validation rules ---

func (s *Store) GetRulesForTemplate(templateCode string) ([]model.ValidationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rules []model.ValidationRule
	for _, r := range s.rules {
		if r.TemplateCode == templateCode {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// PutRule inserts or replaces one validation rule, bound to its template.
func (s *Store) PutRule(r model.ValidationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.TemplateCode+"|"+r.RuleID] = r
	return nil
}

// --- MAC curves ---

func (s *Store) SaveMACCurve(curve model.MACCurve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.macCurves[fmt.Sprintf("%d|%d", curve.ScenarioID, curve.PeriodID)] = curve
	return nil
}

func (s *Store) LoadMACCurve(scenarioID, periodID int) (model.MACCurve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	curve, ok := s.macCurves[fmt.Sprintf("%d|%d", scenarioID, periodID)]
	if !ok {
		return model.MACCurve{ScenarioID: scenarioID, PeriodID: periodID}, nil
	}
	return curve, nil
}

// --- Audit journal ---

func (s *Store) AppendEvent(event model.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == "" {
		return fmt.Errorf("%w: audit event missing id", apperrors.ErrStore)
	}
	s.audit = append(s.audit, event)
	return nil
}

func (s *Store) GetEvents(scenarioID int) ([]model.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []model.AuditEvent
	for _, e := range s.audit {
		if e.ScenarioID == scenarioID {
			events = append(events, e)
		}
	}
	return events, nil
}

// --- Committed results ---

func resultKey(entityID string, scenarioID, periodID int) string {
	return fmt.Sprintf("%s|%d|%d", entityID, scenarioID, periodID)
}

func (s *Store) SaveResult(result model.CommittedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[resultKey(result.EntityID, result.ScenarioID, result.PeriodID)] = result
	return nil
}

func (s *Store) GetResult(entityID string, scenarioID, periodID int) (model.CommittedResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[resultKey(entityID, scenarioID, periodID)]
	return result, ok, nil
}

func (s *Store) DeleteResult(entityID string, scenarioID, periodID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, resultKey(entityID, scenarioID, periodID))
	return nil
}
