// Package model holds the plain data records every store-backed component
// reads and writes: drivers, FX rates, units, perils, assets, damage
// functions, management actions, and MAC curve points. Keeping these
// dependency-free avoids import cycles between providers, store, and the
// domain engines that all need the same shapes.
package model

// Driver is one scenario/period input value keyed by entity and code.
type Driver struct {
	EntityID   string
	ScenarioID int
	PeriodID   int
	Code       string
	Value      float64
	UnitCode   string
}

// RateType distinguishes which FX quote convention a rate record represents.
type RateType string

const (
	RateAverage RateType = "AVERAGE"
	RateClosing RateType = "CLOSING"
	RateOpening RateType = "OPENING"
)

// FXRate is one exchange-rate quote for a currency pair in a given period.
type FXRate struct {
	ScenarioID   int
	PeriodID     int
	FromCurrency string
	ToCurrency   string
	RateType     RateType
	Rate         float64
}

// UnitConversionType distinguishes a unit whose conversion factor is fixed
// from one that must be looked up per period (treated as a currency).
type UnitConversionType string

const (
	ConversionStatic      UnitConversionType = "STATIC"
	ConversionTimeVarying UnitConversionType = "TIME_VARYING"
)

// UnitDefinition describes one unit of measure and how to convert it to its
// category's base unit.
type UnitDefinition struct {
	UnitCode                string
	UnitName                string
	UnitCategory             string
	ConversionType          UnitConversionType
	StaticConversionFactor  float64
	BaseUnitCode            string
	DisplaySymbol           string
	Description             string
}

// PhysicalPeril is one climate/catastrophe peril instance located on the map.
type PhysicalPeril struct {
	PerilID      int
	ScenarioID   int
	PerilType    string
	PerilCode    string
	Latitude     float64
	Longitude    float64
	Intensity    float64
	IntensityUnit string
	StartPeriod  int
	EndPeriod    int // -1 means the peril only affects StartPeriod
	RadiusKM     float64
	Description  string
}

// AssetExposure is one physical asset a peril's damage functions are applied to.
type AssetExposure struct {
	AssetID             int
	AssetCode           string
	AssetName           string
	AssetType           string
	Latitude            float64
	Longitude           float64
	EntityCode          string
	ReplacementValue    float64
	ReplacementCurrency string
	InventoryValue      float64
	InventoryCurrency   string
	AnnualRevenue       float64
	RevenueCurrency     string
}

// DamageFunctionDef is the stored definition of a piecewise-linear damage curve.
type DamageFunctionDef struct {
	FunctionCode     string
	FunctionType     string
	PerilType        string
	DamageTarget     string
	CurveDefinition  string // JSON-encoded [[x,y], ...] points
	Description      string
}

// TriggerType controls when a scenario action becomes active.
type TriggerType string

const (
	TriggerUnconditional TriggerType = "UNCONDITIONAL"
	TriggerTimed         TriggerType = "TIMED"
	TriggerConditional   TriggerType = "CONDITIONAL"
)

// Transformation describes one line-item mutation a management action applies.
type Transformation struct {
	LineItemCode       string  `json:"line_item"`
	TransformationType string  `json:"type"`
	Factor             float64 `json:"factor"`
	Amount             float64 `json:"amount"`
	NewFormula         string  `json:"new_formula"`
	Comment            string  `json:"comment"`
}

// ManagementAction is one scenario-bound action: a capex/opex commitment
// with financial and carbon transformations, active over a period range.
type ManagementAction struct {
	ScenarioActionID        int
	ScenarioID              int
	ActionCode              string
	ActionName              string
	ActionCategory          string
	TriggerType             TriggerType
	TriggerCondition        string
	TriggerPeriod           int // -1 if unset
	StartPeriod             int
	EndPeriod               int // -1 means permanent
	Capex                   float64
	OpexAnnual              float64
	EmissionReductionAnnual float64
	Notes                   string
	FinancialTransformations []Transformation
	CarbonTransformations    []Transformation
}

// IsActiveInPeriod reports whether the action's period range covers periodID.
func (a ManagementAction) IsActiveInPeriod(periodID int) bool {
	if periodID < a.StartPeriod {
		return false
	}
	if a.EndPeriod >= 0 && periodID > a.EndPeriod {
		return false
	}
	return true
}

// ValidationRuleType distinguishes the two evaluation modes a rule can use.
type ValidationRuleType string

const (
	RuleEquation      ValidationRuleType = "EQUATION"
	RuleReconciliation ValidationRuleType = "RECONCILIATION"
	RuleBoundary      ValidationRuleType = "BOUNDARY"
)

// ValidationSeverity controls whether a failing rule fails the whole result.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "ERROR"
	SeverityWarning ValidationSeverity = "WARNING"
)

// ValidationRule is one stored rule bound to a template.
type ValidationRule struct {
	RuleID            string
	TemplateCode      string
	Name              string
	Description       string
	RuleType          ValidationRuleType
	Formula           string
	RequiredLineItems []string
	Tolerance         float64
	Severity          ValidationSeverity
}

// MACPoint is one management action's position on a marginal abatement cost curve.
type MACPoint struct {
	ActionCode               string
	ActionName               string
	ActionCategory           string
	Capex                    float64
	OpexAnnual               float64
	AnnualReductionTCO2e     float64
	MarginalCostPerTCO2e     float64
	CumulativeReductionTCO2e float64
	TotalAnnualCost          float64
}

// MACCurve is the full set of points plus aggregate statistics for a
// scenario/period MAC analysis.
type MACCurve struct {
	ScenarioID             int
	PeriodID               int
	Points                 []MACPoint
	TotalReductionPotential float64
	TotalAnnualCost        float64
	TotalCapex             float64
	TotalOpex              float64
	WeightedAverageCost    float64
	NegativeCostCount      int
	LowCostCount           int
	MediumCostCount        int
	HighCostCount          int
}

// DamageResult is the outcome of applying one peril to one asset in one period.
type DamageResult struct {
	AssetID              int
	AssetCode            string
	PerilID              int
	PerilCode            string
	PerilType            string
	Period               int
	Currency             string
	DistanceKM           float64
	AdjustedIntensity    float64
	PPEDamagePct         float64
	InventoryDamagePct   float64
	BIDowntimeDays       float64
	PPELossAmount        float64
	InventoryLossAmount  float64
	BILossAmount         float64
}

// AuditEvent is one entry in the append-only audit journal: a recorded
// calculation run, validation outcome, or management-action application.
type AuditEvent struct {
	ID        string
	EventType string
	Payload   []byte
	ScenarioID int
	PeriodID   int
	OccurredAt string // RFC3339
}

// CommittedResult is the durable record of one entity/scenario/period
// calculation sweep, once it has passed commit-time validation.
type CommittedResult struct {
	EntityID    string
	ScenarioID  int
	PeriodID    int
	Values      map[string]float64
	Success     bool
	Version     int
	CommittedBy string
	CommittedAt string // RFC3339
	Reversed    bool
}
