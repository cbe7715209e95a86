package orchestration

import (
	"fmt"
	"strings"
)

// ScenarioConfig is one generated scenario: which management actions are
// active, plus a derived name/description/code.
type ScenarioConfig struct {
	ScenarioID  int
	Name        string
	Description string
	Code        string
	ActionFlags []bool // parallel to the actionCodes slice used to build it
	actionCodes []string
}

// IsActionActive reports whether actionCode is active in this configuration.
func (c ScenarioConfig) IsActionActive(actionCode string) bool {
	for i, code := range c.actionCodes {
		if code == actionCode && i < len(c.ActionFlags) {
			return c.ActionFlags[i]
		}
	}
	return false
}

// ActiveActions returns every action code active in this configuration.
func (c ScenarioConfig) ActiveActions() []string {
	var active []string
	for i, code := range c.actionCodes {
		if i < len(c.ActionFlags) && c.ActionFlags[i] {
			active = append(active, code)
		}
	}
	return active
}

func generateName(actionCodes []string, flags []bool) string {
	var active []string
	for i, code := range actionCodes {
		if flags[i] {
			active = append(active, code)
		}
	}
	if len(active) == 0 {
		return "BASE"
	}
	joined := strings.Join(active, "+")
	return strings.ReplaceAll(joined, " ", "_")
}

func generateDescription(actionCodes []string, flags []bool) string {
	var active []string
	for i, code := range actionCodes {
		if flags[i] {
			active = append(active, code)
		}
	}
	if len(active) == 0 {
		return "Base case: no management actions applied"
	}
	return fmt.Sprintf("Scenario with actions: %s", strings.Join(active, ", "))
}

// GenerateAllCombinations enumerates every subset of actionCodes as a
// distinct scenario (2^N configurations), via bitmask enumeration.
func GenerateAllCombinations(actionCodes []string) []ScenarioConfig {
	n := len(actionCodes)
	total := 1 << n

	configs := make([]ScenarioConfig, 0, total)
	for mask := 0; mask < total; mask++ {
		flags := make([]bool, n)
		for i := 0; i < n; i++ {
			flags[i] = mask&(1<<i) != 0
		}

		configs = append(configs, ScenarioConfig{
			ScenarioID:  mask,
			Name:        generateName(actionCodes, flags),
			Description: generateDescription(actionCodes, flags),
			Code:        fmt.Sprintf("SCEN_%d", mask),
			ActionFlags: flags,
			actionCodes: actionCodes,
		})
	}

	return configs
}

// CountScenarios returns the number of scenarios GenerateAllCombinations
// would produce for numActions actions, without building them.
func CountScenarios(numActions int) int {
	return 1 << numActions
}

// GenerateForMacAnalysis builds a base scenario (no actions) plus one
// scenario per action with only that action active — the configuration set
// a marginal abatement cost curve needs to isolate each action's individual
// impact.
func GenerateForMacAnalysis(actionCodes []string) []ScenarioConfig {
	n := len(actionCodes)
	configs := make([]ScenarioConfig, 0, n+1)

	baseFlags := make([]bool, n)
	configs = append(configs, ScenarioConfig{
		ScenarioID:  0,
		Name:        "BASE",
		Description: "Base case: no management actions applied",
		Code:        "SCEN_BASE",
		ActionFlags: baseFlags,
		actionCodes: actionCodes,
	})

	for i, code := range actionCodes {
		flags := make([]bool, n)
		flags[i] = true
		configs = append(configs, ScenarioConfig{
			ScenarioID:  i + 1,
			Name:        generateName(actionCodes, flags),
			Description: generateDescription(actionCodes, flags),
			Code:        fmt.Sprintf("SCEN_%s", code),
			ActionFlags: flags,
			actionCodes: actionCodes,
		})
	}

	return configs
}
