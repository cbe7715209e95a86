// Package bolt implements store.Store on top of an embedded bbolt database:
// one bucket per entity, JSON-encoded values. This follows the teacher's
// bucket-per-entity, Update/View-closure storage pattern; the teacher
// serializes bucket values with a generated protobuf package that has no
// analog in this domain (see DESIGN.md), so values here are JSON-encoded
// instead while bbolt remains the storage engine.
package bolt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finmodel/internal/apperrors"
	"finmodel/internal/model"

	"go.etcd.io/bbolt"
)

var (
	bucketTemplates       = []byte("templates")
	bucketDrivers         = []byte("drivers")
	bucketFXRates         = []byte("fx_rates")
	bucketUnits           = []byte("units")
	bucketPerils          = []byte("perils")
	bucketAssets          = []byte("assets")
	bucketDamageFunctions = []byte("damage_functions")
	bucketActions         = []byte("actions")
	bucketRules           = []byte("validation_rules")
	bucketMacCurves       = []byte("mac_curves")
	bucketAudit           = []byte("audit_events")
	bucketResults         = []byte("committed_results")

	allBuckets = [][]byte{
		bucketTemplates, bucketDrivers, bucketFXRates, bucketUnits,
		bucketPerils, bucketAssets, bucketDamageFunctions, bucketActions,
		bucketRules, bucketMacCurves, bucketAudit, bucketResults,
	}
)

// Store is a bbolt-backed implementation of store.Store.
type Store struct {
	db *bbolt.DB
}

// Open creates or opens a bbolt database at path and initializes every bucket.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", apperrors.ErrStore, path, err)
	}

	s := &Store{db: db}
	if err := s.initBuckets(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("%w: create bucket %s: %v", apperrors.ErrStore, b, err)
			}
		}
		return nil
	})
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func put(tx *bbolt.Tx, bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: marshal %s/%s: %v", apperrors.ErrStore, bucket, key, err)
	}
	return tx.Bucket(bucket).Put([]byte(key), data)
}

// --- Templates ---

func (s *Store) GetTemplateJSON(code string) ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketTemplates).Get([]byte(code))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, data != nil, err
}

func (s *Store) SaveTemplateJSON(code string, doc []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTemplates).Put([]byte(code), doc)
	})
}

// --- Drivers ---

func driverKey(entityID string, scenarioID, periodID int, code string) string {
	return fmt.Sprintf("%s|%d|%d|%s", entityID, scenarioID, periodID, code)
}

func (s *Store) GetDrivers(entityID string, scenarioID, periodID int) (map[string]float64, error) {
	result := make(map[string]float64)
	prefix := []byte(fmt.Sprintf("%s|%d|%d|", entityID, scenarioID, periodID))

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketDrivers).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var d model.Driver
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("%w: unmarshal driver %s: %v", apperrors.ErrStore, k, err)
			}
			result[d.Code] = d.Value
		}
		return nil
	})
	return result, err
}

func (s *Store) DeleteDriversMatching(scenarioID int, codeSuffixes []string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDrivers)
		c := b.Cursor()

		var toDelete [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var d model.Driver
			if err := json.Unmarshal(v, &d); err != nil {
				continue
			}
			if d.ScenarioID != scenarioID {
				continue
			}
			for _, suffix := range codeSuffixes {
				if strings.Contains(d.Code, suffix) {
					toDelete = append(toDelete, append([]byte(nil), k...))
					break
				}
			}
		}

		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("%w: delete driver %s: %v", apperrors.ErrStore, k, err)
			}
		}
		return nil
	})
}

func (s *Store) InsertDrivers(drivers []model.Driver) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, d := range drivers {
			key := driverKey(d.EntityID, d.ScenarioID, d.PeriodID, d.Code)
			if err := put(tx, bucketDrivers, key, d); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- FX rates ---

func (s *Store) GetRates(scenarioID int) ([]model.FXRate, error) {
	var rates []model.FXRate
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketFXRates).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var r model.FXRate
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("%w: unmarshal fx rate %s: %v", apperrors.ErrStore, k, err)
			}
			if r.ScenarioID == scenarioID {
				rates = append(rates, r)
			}
		}
		return nil
	})
	return rates, err
}

// PutRate inserts or replaces one FX rate quote. Exposed for seeding/tests.
func (s *Store) PutRate(r model.FXRate) error {
	key := fmt.Sprintf("%d|%d|%s|%s|%s", r.ScenarioID, r.PeriodID, r.FromCurrency, r.ToCurrency, r.RateType)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketFXRates, key, r)
	})
}

// --- Units ---

func (s *Store) GetUnitDefinitions() ([]model.UnitDefinition, error) {
	var defs []model.UnitDefinition
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketUnits).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var d model.UnitDefinition
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("%w: unmarshal unit %s: %v", apperrors.ErrStore, k, err)
			}
			defs = append(defs, d)
		}
		return nil
	})
	return defs, err
}

// PutUnitDefinition inserts or replaces one unit definition.
func (s *Store) PutUnitDefinition(d model.UnitDefinition) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketUnits, d.UnitCode, d)
	})
}

// --- Perils ---

func (s *Store) GetPerils(scenarioID int) ([]model.PhysicalPeril, error) {
	var perils []model.PhysicalPeril
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketPerils).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var p model.PhysicalPeril
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("%w: unmarshal peril %s: %v", apperrors.ErrStore, k, err)
			}
			if p.ScenarioID == scenarioID {
				perils = append(perils, p)
			}
		}
		return nil
	})
	return perils, err
}

// PutPeril inserts or replaces one physical peril record.
func (s *Store) PutPeril(p model.PhysicalPeril) error {
	key := fmt.Sprintf("%d|%d", p.ScenarioID, p.PerilID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketPerils, key, p)
	})
}

// --- Assets ---

func (s *Store) GetAssets() ([]model.AssetExposure, error) {
	var assets []model.AssetExposure
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketAssets).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var a model.AssetExposure
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("%w: unmarshal asset %s: %v", apperrors.ErrStore, k, err)
			}
			assets = append(assets, a)
		}
		return nil
	})
	return assets, err
}

// PutAsset inserts or replaces one asset exposure record.
func (s *Store) PutAsset(a model.AssetExposure) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketAssets, a.AssetCode, a)
	})
}

// --- Damage functions ---

func damageFunctionKey(perilType, damageTarget string) string {
	return perilType + "|" + damageTarget
}

func (s *Store) GetFunctionForPeril(perilType, damageTarget string) (model.DamageFunctionDef, bool, error) {
	var def model.DamageFunctionDef
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketDamageFunctions).Get([]byte(damageFunctionKey(perilType, damageTarget)))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &def)
	})
	return def, found, err
}

// PutDamageFunction inserts or replaces one damage function definition.
func (s *Store) PutDamageFunction(d model.DamageFunctionDef) error {
	key := damageFunctionKey(d.PerilType, d.DamageTarget)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketDamageFunctions, key, d)
	})
}

// --- Management actions ---

func (s *Store) GetActions(scenarioID int) ([]model.ManagementAction, error) {
	var actions []model.ManagementAction
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketActions).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var a model.ManagementAction
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("%w: unmarshal action %s: %v", apperrors.ErrStore, k, err)
			}
			if a.ScenarioID == scenarioID {
				actions = append(actions, a)
			}
		}
		return nil
	})
	return actions, err
}

// PutAction inserts or replaces one management action record.
func (s *Store) PutAction(a model.ManagementAction) error {
	key := fmt.Sprintf("%d|%s", a.ScenarioID, a.ActionCode)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketActions, key, a)
	})
}

// --- Validation rules ---

func (s *Store) GetRulesForTemplate(templateCode string) ([]model.ValidationRule, error) {
	var rules []model.ValidationRule
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketRules).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var r model.ValidationRule
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("%w: unmarshal rule %s: %v", apperrors.ErrStore, k, err)
			}
			if r.TemplateCode == templateCode {
				rules = append(rules, r)
			}
		}
		return nil
	})
	return rules, err
}

// PutRule inserts or replaces one validation rule, bound to its template.
func (s *Store) PutRule(r model.ValidationRule) error {
	key := r.TemplateCode + "|" + r.RuleID
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketRules, key, r)
	})
}

// --- MAC curves ---

func macCurveKey(scenarioID, periodID int) string {
	return fmt.Sprintf("%d|%d", scenarioID, periodID)
}

func (s *Store) SaveMACCurve(curve model.MACCurve) error {
	key := macCurveKey(curve.ScenarioID, curve.PeriodID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketMacCurves, key, curve)
	})
}

func (s *Store) LoadMACCurve(scenarioID, periodID int) (model.MACCurve, error) {
	var curve model.MACCurve
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketMacCurves).Get([]byte(macCurveKey(scenarioID, periodID)))
		if v == nil {
			curve = model.MACCurve{ScenarioID: scenarioID, PeriodID: periodID}
			return nil
		}
		return json.Unmarshal(v, &curve)
	})
	return curve, err
}

// --- Audit journal ---

func (s *Store) AppendEvent(event model.AuditEvent) error {
	key := fmt.Sprintf("%s_%s", event.OccurredAt, event.ID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketAudit, key, event)
	})
}

func (s *Store) GetEvents(scenarioID int) ([]model.AuditEvent, error) {
	var events []model.AuditEvent
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketAudit).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e model.AuditEvent
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("%w: unmarshal audit event %s: %v", apperrors.ErrStore, k, err)
			}
			if e.ScenarioID == scenarioID {
				events = append(events, e)
			}
		}
		return nil
	})
	return events, err
}

// --- Committed results ---

func resultKey(entityID string, scenarioID, periodID int) string {
	return fmt.Sprintf("%s|%d|%d", entityID, scenarioID, periodID)
}

func (s *Store) SaveResult(result model.CommittedResult) error {
	key := resultKey(result.EntityID, result.ScenarioID, result.PeriodID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, bucketResults, key, result)
	})
}

func (s *Store) GetResult(entityID string, scenarioID, periodID int) (model.CommittedResult, bool, error) {
	var result model.CommittedResult
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketResults).Get([]byte(resultKey(entityID, scenarioID, periodID)))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &result)
	})
	return result, found, err
}

func (s *Store) DeleteResult(entityID string, scenarioID, periodID int) error {
	key := resultKey(entityID, scenarioID, periodID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketResults).Delete([]byte(key))
	})
}
