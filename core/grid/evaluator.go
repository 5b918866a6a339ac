package grid

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/npiscenarios/core/logger"
	"github.com/kilianp07/npiscenarios/core/model"
	"github.com/kilianp07/npiscenarios/core/simulate"
)

// Setup holds the inputs shared by every combination of a grid.
type Setup struct {
	Horizon  int
	Start    time.Time // calendar date of day 1
	Disease  model.Disease
	Contacts model.ContactMatrix
	Ages     model.AgeDistribution
	Initial  model.State
}

// Evaluator runs a simulator over a list of combinations and merges the
// results into one table.
type Evaluator struct {
	sim     simulate.Simulator
	log     logger.Logger
	events  Publisher
	workers int
	mode    string
}

// NewEvaluator returns a sequential evaluator. A nil publisher discards
// run events.
func NewEvaluator(sim simulate.Simulator, log logger.Logger, events Publisher) *Evaluator {
	if events == nil {
		events = nopPublisher{}
	}
	return &Evaluator{sim: sim, log: log, events: events, workers: 1, mode: ModeProjection}
}

// SetWorkers bounds the number of concurrent simulator calls. Values below
// one fall back to sequential evaluation.
func (e *Evaluator) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	e.workers = n
}

// SetMode sets the mode reported in metrics and events.
func (e *Evaluator) SetMode(mode string) { e.mode = mode }

// Evaluate validates the whole grid, then invokes the simulator exactly once
// per combination. Rows follow the combination order regardless of the
// number of workers. Any failure aborts the evaluation and no table is
// returned.
func (e *Evaluator) Evaluate(ctx context.Context, setup Setup, combos []Combination) (model.Table, error) {
	if err := Validate(setup, combos); err != nil {
		return model.Table{}, err
	}
	e.log.Infof("evaluating %d %s runs over %d days with %d workers", len(combos), e.mode, setup.Horizon, e.workers)

	results := make([][]model.Row, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, c := range combos {
		i, c := i, c
		g.Go(func() error {
			rows, err := e.run(gctx, setup, c, i, len(combos))
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Table{}, err
	}

	table := model.Table{Rows: make([]model.Row, 0, len(combos)*setup.Horizon)}
	for _, rows := range results {
		table.Rows = append(table.Rows, rows...)
	}
	tableRows.WithLabelValues(e.mode).Set(float64(table.Len()))
	return table, nil
}

func (e *Evaluator) run(ctx context.Context, setup Setup, c Combination, index, total int) ([]model.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := model.Params{
		R0:                    c.R0,
		Disease:               setup.Disease,
		Contacts:              setup.Contacts,
		Ages:                  setup.Ages,
		ContactReduction:      c.Scenario.Contact,
		TransmissionReduction: c.Scenario.Transmission,
	}
	start := time.Now()
	res, err := e.sim.Simulate(ctx, setup.Horizon, setup.Initial.Clone(), params)
	if err == nil {
		err = checkResult(res, setup.Horizon)
	}
	elapsed := time.Since(start)
	simulationDuration.WithLabelValues(e.mode).Observe(elapsed.Seconds())
	ev := RunEvent{Mode: e.mode, Index: index, Total: total, Label: c.Label, Duration: elapsed}
	if err != nil {
		simulationsTotal.WithLabelValues(e.mode, "failure").Inc()
		ev.Err = err
		e.events.Publish(ev)
		e.log.Errorf("run %d/%d %q failed: %v", index+1, total, c.Label, err)
		return nil, &model.SimulationError{Label: c.Label, Err: err}
	}
	simulationsTotal.WithLabelValues(e.mode, "success").Inc()
	e.events.Publish(ev)
	e.log.Debugw("run finished", map[string]any{"label": string(c.Label), "index": index, "elapsed_ms": elapsed.Milliseconds()})

	rows := make([]model.Row, len(res))
	for i, p := range res {
		rows[i] = model.Row{
			Label:     c.Label,
			Scenario:  c.Scenario.Name,
			R0:        c.R0,
			Day:       p.Day,
			Date:      setup.Start.AddDate(0, 0, p.Day-1),
			Incidence: p.Incidence,
		}
	}
	return rows, nil
}

func checkResult(res model.Result, horizon int) error {
	if len(res) != horizon {
		return fmt.Errorf("returned %d days, want %d", len(res), horizon)
	}
	for i, p := range res {
		if p.Day != i+1 {
			return fmt.Errorf("point %d has day %d", i, p.Day)
		}
		if math.IsNaN(p.Incidence) || math.IsInf(p.Incidence, 0) {
			return fmt.Errorf("day %d: non-finite incidence", p.Day)
		}
	}
	return nil
}

// Validate checks the grid before any simulation runs. Every problem it
// reports wraps model.ErrConfiguration.
func Validate(setup Setup, combos []Combination) error {
	if len(combos) == 0 {
		return model.ConfigErrorf("grid has no combinations")
	}
	if setup.Horizon < 1 {
		return model.ConfigErrorf("horizon must be at least 1 day, got %d", setup.Horizon)
	}
	if err := setup.Disease.Validate(); err != nil {
		return err
	}
	if err := setup.Contacts.Validate(); err != nil {
		return err
	}
	if err := setup.Ages.Validate(); err != nil {
		return err
	}
	if err := setup.Initial.Validate(); err != nil {
		return err
	}
	bands := setup.Contacts.Bands()
	if len(setup.Ages) != bands || setup.Initial.Bands() != bands {
		return model.ConfigErrorf("contact matrix has %d bands, ages %d, initial state %d",
			bands, len(setup.Ages), setup.Initial.Bands())
	}

	seen := make(map[model.Label]bool, len(combos))
	for i, c := range combos {
		if c.Label == "" {
			return model.ConfigErrorf("combination %d has no label", i)
		}
		if seen[c.Label] {
			return model.ConfigErrorf("duplicate label %q", c.Label)
		}
		seen[c.Label] = true
		if !(c.R0 > 0) || math.IsInf(c.R0, 0) {
			return model.ConfigErrorf("%q: R0 must be positive, got %v", c.Label, c.R0)
		}
		if n := c.Scenario.Contact.Len(); n != setup.Horizon {
			return model.ConfigErrorf("%q: contact schedule covers %d days, horizon is %d", c.Label, n, setup.Horizon)
		}
		if n := c.Scenario.Transmission.Len(); n != setup.Horizon {
			return model.ConfigErrorf("%q: transmission schedule covers %d days, horizon is %d", c.Label, n, setup.Horizon)
		}
	}
	return nil
}
