package grid

import (
	"fmt"

	"github.com/kilianp07/npiscenarios/core/model"
)

// Analysis modes.
const (
	ModeCalibration = "calibration"
	ModeProjection  = "projection"
)

// Scenario is a named pair of intervention schedules.
type Scenario struct {
	Name         string
	Contact      model.Schedule
	Transmission model.Schedule
}

// Combination is one simulator invocation: an R0 paired with a scenario.
type Combination struct {
	Label    model.Label
	R0       float64
	Scenario Scenario
}

// Label formats the scenario label used as the table join key.
func Label(r0 float64, scenario string) model.Label {
	return model.Label(fmt.Sprintf("R0=%.1f, %s", r0, scenario))
}

// CrossProduct pairs every R0 with every scenario, R0-major.
func CrossProduct(r0s []float64, scenarios []Scenario) []Combination {
	out := make([]Combination, 0, len(r0s)*len(scenarios))
	for _, r0 := range r0s {
		out = append(out, Paired(r0, scenarios)...)
	}
	return out
}

// Paired pairs a fixed R0 with each scenario.
func Paired(r0 float64, scenarios []Scenario) []Combination {
	out := make([]Combination, len(scenarios))
	for i, s := range scenarios {
		out[i] = Combination{Label: Label(r0, s.Name), R0: r0, Scenario: s}
	}
	return out
}
