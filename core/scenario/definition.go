// Package scenario loads analysis definitions: the population, the disease,
// the named intervention schedules expressed as calendar dates, and the
// calibration and projection grids built from them.
package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/npiscenarios/core/grid"
	"github.com/kilianp07/npiscenarios/core/model"
	"github.com/kilianp07/npiscenarios/core/schedule"
)

// Definition is the on-disk description of an analysis.
type Definition struct {
	Name            string          `json:"name" yaml:"name"`
	StartDate       string          `json:"start_date" yaml:"start_date"`
	Horizon         int             `json:"horizon" yaml:"horizon"`
	Population      float64         `json:"population" yaml:"population"`
	AgeDistribution []float64       `json:"age_distribution" yaml:"age_distribution"`
	ContactMatrix   [][]float64     `json:"contact_matrix" yaml:"contact_matrix"`
	Disease         model.Disease   `json:"disease" yaml:"disease"`
	Seed            SeedDef         `json:"seed" yaml:"seed"`
	Schedules       []ScheduleDef   `json:"schedules" yaml:"schedules"`
	Scenarios       []ScenarioDef   `json:"scenarios" yaml:"scenarios"`
	Calibration     *CalibrationDef `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	Projection      *ProjectionDef  `json:"projection,omitempty" yaml:"projection,omitempty"`
}

// SeedDef places the initial exposed cohort.
type SeedDef struct {
	Exposed float64 `json:"exposed" yaml:"exposed"`
	Band    int     `json:"band" yaml:"band"`
}

// ScheduleDef describes a schedule with calendar dates. Either Breakpoints
// or Plateau is used; Lift optionally ends every reduction on that date.
type ScheduleDef struct {
	Name        string          `json:"name" yaml:"name"`
	Trigger     string          `json:"trigger" yaml:"trigger"`
	Breakpoints []BreakpointDef `json:"breakpoints,omitempty" yaml:"breakpoints,omitempty"`
	Plateau     *PlateauDef     `json:"plateau,omitempty" yaml:"plateau,omitempty"`
	Lift        string          `json:"lift,omitempty" yaml:"lift,omitempty"`
}

// BreakpointDef switches to Level on Date.
type BreakpointDef struct {
	Date  string  `json:"date" yaml:"date"`
	Level float64 `json:"level" yaml:"level"`
}

// PlateauDef holds Interim for HoldDays after the trigger, then Final.
type PlateauDef struct {
	Interim  float64 `json:"interim" yaml:"interim"`
	Final    float64 `json:"final" yaml:"final"`
	HoldDays int     `json:"hold_days" yaml:"hold_days"`
}

// ScenarioDef pairs schedule names. An empty name means no reduction.
type ScenarioDef struct {
	Name         string `json:"name" yaml:"name"`
	Contact      string `json:"contact" yaml:"contact"`
	Transmission string `json:"transmission" yaml:"transmission"`
}

// CalibrationDef crosses every R0 with every listed scenario.
type CalibrationDef struct {
	R0        []float64 `json:"r0" yaml:"r0"`
	Scenarios []string  `json:"scenarios" yaml:"scenarios"`
	Horizon   int       `json:"horizon,omitempty" yaml:"horizon,omitempty"`
}

// ProjectionDef pairs one R0 with each listed scenario.
type ProjectionDef struct {
	R0        float64  `json:"r0" yaml:"r0"`
	Scenarios []string `json:"scenarios" yaml:"scenarios"`
	Horizon   int      `json:"horizon,omitempty" yaml:"horizon,omitempty"`
}

// Grid is a ready-to-evaluate grid.
type Grid struct {
	Setup  grid.Setup
	Combos []grid.Combination
}

// Plan holds the grids a definition describes. A nil grid was not defined.
type Plan struct {
	Name        string
	Calibration *Grid
	Projection  *Grid
}

// LoadFile reads a definition from a JSON or YAML file.
func LoadFile(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Decode(f, ext)
}

// Decode reads a definition from r in the given format ("yaml", "yml" or
// "json").
func Decode(r io.Reader, format string) (Definition, error) {
	var def Definition
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return def, fmt.Errorf("decode scenario: %w", err)
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return def, fmt.Errorf("decode scenario: %w", err)
		}
	default:
		return def, fmt.Errorf("unsupported scenario format: %s", format)
	}
	return def, nil
}

// Build resolves the scenario and schedule names each grid lists and returns
// the grids. Only referenced schedules are built, each at its grid's
// horizon. Validation errors wrap model.ErrConfiguration.
func (d Definition) Build() (Plan, error) {
	if d.Calibration == nil && d.Projection == nil {
		return Plan{}, model.ConfigErrorf("definition has neither calibration nor projection")
	}
	start, err := parseDate("start_date", d.StartDate)
	if err != nil {
		return Plan{}, err
	}
	ages := model.AgeDistribution(d.AgeDistribution)
	initial, err := model.SeedState(d.Population, ages, d.Seed.Exposed, d.Seed.Band)
	if err != nil {
		return Plan{}, err
	}
	base := grid.Setup{
		Start:    start,
		Disease:  d.Disease,
		Contacts: model.ContactMatrix(d.ContactMatrix),
		Ages:     ages,
		Initial:  initial,
	}

	plan := Plan{Name: d.Name}
	if c := d.Calibration; c != nil {
		if len(c.R0) == 0 {
			return Plan{}, model.ConfigErrorf("calibration lists no R0 values")
		}
		g, err := d.buildGrid(base, pick(c.Horizon, d.Horizon), c.Scenarios, func(s []grid.Scenario) []grid.Combination {
			return grid.CrossProduct(c.R0, s)
		})
		if err != nil {
			return Plan{}, fmt.Errorf("calibration: %w", err)
		}
		plan.Calibration = g
	}
	if p := d.Projection; p != nil {
		g, err := d.buildGrid(base, pick(p.Horizon, d.Horizon), p.Scenarios, func(s []grid.Scenario) []grid.Combination {
			return grid.Paired(p.R0, s)
		})
		if err != nil {
			return Plan{}, fmt.Errorf("projection: %w", err)
		}
		plan.Projection = g
	}
	return plan, nil
}

func (d Definition) buildGrid(base grid.Setup, horizon int, names []string, combine func([]grid.Scenario) []grid.Combination) (*Grid, error) {
	if len(names) == 0 {
		return nil, model.ConfigErrorf("no scenarios listed")
	}
	start := base.Start
	byName, err := d.scheduleDefs()
	if err != nil {
		return nil, err
	}
	none, err := schedule.None(horizon)
	if err != nil {
		return nil, err
	}
	built := make(map[string]model.Schedule)
	resolve := func(name string) (model.Schedule, error) {
		if name == "" {
			return none, nil
		}
		if s, ok := built[name]; ok {
			return s, nil
		}
		sd, ok := byName[name]
		if !ok {
			return model.Schedule{}, model.ConfigErrorf("unknown schedule %q", name)
		}
		s, err := sd.build(start, horizon)
		if err != nil {
			return model.Schedule{}, fmt.Errorf("schedule %q: %w", name, err)
		}
		built[name] = s
		return s, nil
	}
	defs := make(map[string]ScenarioDef, len(d.Scenarios))
	for _, s := range d.Scenarios {
		if _, dup := defs[s.Name]; dup {
			return nil, model.ConfigErrorf("scenario %q defined twice", s.Name)
		}
		defs[s.Name] = s
	}

	scenarios := make([]grid.Scenario, len(names))
	for i, n := range names {
		def, ok := defs[n]
		if !ok {
			return nil, model.ConfigErrorf("unknown scenario %q", n)
		}
		contact, err := resolve(def.Contact)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", n, err)
		}
		transmission, err := resolve(def.Transmission)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", n, err)
		}
		scenarios[i] = grid.Scenario{Name: n, Contact: contact, Transmission: transmission}
	}
	setup := base
	setup.Horizon = horizon
	return &Grid{Setup: setup, Combos: combine(scenarios)}, nil
}

// BuildSchedules builds every named schedule for the given horizon.
func (d Definition) BuildSchedules(horizon int) (map[string]model.Schedule, error) {
	start, err := parseDate("start_date", d.StartDate)
	if err != nil {
		return nil, err
	}
	byName, err := d.scheduleDefs()
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Schedule, len(byName))
	for _, sd := range d.Schedules {
		s, err := sd.build(start, horizon)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", sd.Name, err)
		}
		out[sd.Name] = s
	}
	return out, nil
}

// ScheduleHorizons returns the horizon each named schedule is built at: the
// longest horizon of the grids whose scenarios reference it, or the
// definition horizon for schedules no grid uses.
func (d Definition) ScheduleHorizons() map[string]int {
	out := make(map[string]int, len(d.Schedules))
	for _, sd := range d.Schedules {
		out[sd.Name] = d.Horizon
	}
	scenarios := make(map[string]ScenarioDef, len(d.Scenarios))
	for _, s := range d.Scenarios {
		scenarios[s.Name] = s
	}
	used := make(map[string]bool)
	visit := func(horizon int, names []string) {
		for _, n := range names {
			def := scenarios[n]
			for _, name := range []string{def.Contact, def.Transmission} {
				if _, ok := out[name]; !ok {
					continue
				}
				if !used[name] || horizon > out[name] {
					out[name] = horizon
				}
				used[name] = true
			}
		}
	}
	if c := d.Calibration; c != nil {
		visit(pick(c.Horizon, d.Horizon), c.Scenarios)
	}
	if p := d.Projection; p != nil {
		visit(pick(p.Horizon, d.Horizon), p.Scenarios)
	}
	return out
}

// BuildGridSchedules builds every named schedule at the horizon reported by
// ScheduleHorizons.
func (d Definition) BuildGridSchedules() (map[string]model.Schedule, error) {
	start, err := parseDate("start_date", d.StartDate)
	if err != nil {
		return nil, err
	}
	if _, err := d.scheduleDefs(); err != nil {
		return nil, err
	}
	horizons := d.ScheduleHorizons()
	out := make(map[string]model.Schedule, len(d.Schedules))
	for _, sd := range d.Schedules {
		s, err := sd.build(start, horizons[sd.Name])
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", sd.Name, err)
		}
		out[sd.Name] = s
	}
	return out, nil
}

func (d Definition) scheduleDefs() (map[string]ScheduleDef, error) {
	out := make(map[string]ScheduleDef, len(d.Schedules))
	for _, sd := range d.Schedules {
		if sd.Name == "" {
			return nil, model.ConfigErrorf("schedule without a name")
		}
		if _, dup := out[sd.Name]; dup {
			return nil, model.ConfigErrorf("schedule %q defined twice", sd.Name)
		}
		out[sd.Name] = sd
	}
	return out, nil
}

func (sd ScheduleDef) build(start time.Time, horizon int) (model.Schedule, error) {
	trigger, err := parseDate("trigger", sd.Trigger)
	if err != nil {
		return model.Schedule{}, err
	}
	if sd.Plateau != nil && len(sd.Breakpoints) > 0 {
		return model.Schedule{}, model.ConfigErrorf("both plateau and breakpoints given")
	}
	var levels []schedule.DatedLevel
	if p := sd.Plateau; p != nil {
		hold := p.HoldDays
		if hold <= 0 {
			hold = schedule.DefaultHold
		}
		levels = []schedule.DatedLevel{
			{Date: trigger, Level: p.Interim},
			{Date: trigger.AddDate(0, 0, hold), Level: p.Final},
		}
	}
	for i, bp := range sd.Breakpoints {
		date, err := parseDate(fmt.Sprintf("breakpoints[%d].date", i), bp.Date)
		if err != nil {
			return model.Schedule{}, err
		}
		levels = append(levels, schedule.DatedLevel{Date: date, Level: bp.Level})
	}
	if sd.Lift != "" {
		lift, err := parseDate("lift", sd.Lift)
		if err != nil {
			return model.Schedule{}, err
		}
		levels = append(levels, schedule.DatedLevel{Date: lift, Level: 1})
	}
	return schedule.FromDates(start, horizon, trigger, levels)
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, model.ConfigErrorf("%s: invalid date %q, want YYYY-MM-DD", field, s)
	}
	return t, nil
}

func pick(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
