package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/npiscenarios/config"
	"github.com/kilianp07/npiscenarios/core/calibrate"
	"github.com/kilianp07/npiscenarios/core/casedata"
	"github.com/kilianp07/npiscenarios/core/grid"
	"github.com/kilianp07/npiscenarios/core/model"
	"github.com/kilianp07/npiscenarios/core/scenario"
	"github.com/kilianp07/npiscenarios/core/simulate"
	coresink "github.com/kilianp07/npiscenarios/core/sink"
	"github.com/kilianp07/npiscenarios/infra/logger"
	"github.com/kilianp07/npiscenarios/internal/eventbus"

	// built-in simulators and sinks
	_ "github.com/kilianp07/npiscenarios/infra/seir"
	_ "github.com/kilianp07/npiscenarios/infra/sink"
)

// Service evaluates the grids of a scenario definition and stores the
// results.
type Service struct {
	cfg  *config.Config
	def  scenario.Definition
	plan scenario.Plan
	sim  simulate.Simulator
	sink coresink.Sink
	bus  *eventbus.Bus[grid.RunEvent]
	log  logger.Logger
}

// Report is the outcome of one grid evaluation.
type Report struct {
	Run   coresink.Run
	Table model.Table
}

// CalibrationReport adds the ranking of every calibration label.
type CalibrationReport struct {
	Report
	Fits []calibrate.Fit
}

// New creates a Service from the configuration. The scenario definition is
// loaded and every grid it describes is built, so configuration problems
// surface before any simulation.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	def, err := scenario.LoadFile(cfg.Analysis.Scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	plan, err := def.Build()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", cfg.Analysis.Scenario, err)
	}
	sim, err := simulate.New(cfg.Simulator)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	sink, err := coresink.New(cfg.Sinks)
	if err != nil {
		return nil, fmt.Errorf("sinks: %w", err)
	}
	return &Service{
		cfg:  cfg,
		def:  def,
		plan: plan,
		sim:  sim,
		sink: sink,
		bus:  eventbus.New[grid.RunEvent](64),
		log:  logg,
	}, nil
}

// Definition returns the loaded scenario definition.
func (s *Service) Definition() scenario.Definition { return s.def }

// Plan returns the grids built from the definition.
func (s *Service) Plan() scenario.Plan { return s.plan }

// Events returns the bus on which run progress is published.
func (s *Service) Events() *eventbus.Bus[grid.RunEvent] { return s.bus }

// Project evaluates the projection grid and stores the table.
func (s *Service) Project(ctx context.Context) (Report, error) {
	if s.plan.Projection == nil {
		return Report{}, model.ConfigErrorf("scenario %q defines no projection", s.plan.Name)
	}
	return s.evaluate(ctx, grid.ModeProjection, s.plan.Projection)
}

// Calibrate evaluates the calibration grid, ranks every label against the
// observed cases and stores both.
func (s *Service) Calibrate(ctx context.Context) (CalibrationReport, error) {
	if s.plan.Calibration == nil {
		return CalibrationReport{}, model.ConfigErrorf("scenario %q defines no calibration", s.plan.Name)
	}
	cases, err := LoadCases(s.cfg)
	if err != nil {
		return CalibrationReport{}, err
	}
	rep, err := s.evaluate(ctx, grid.ModeCalibration, s.plan.Calibration)
	if err != nil {
		return CalibrationReport{}, err
	}
	fits, err := calibrate.Rank(rep.Table, cases.Observed(), s.cfg.Analysis.CalibrateOptions())
	if err != nil {
		return CalibrationReport{}, fmt.Errorf("rank: %w", err)
	}
	if rec, ok := s.sink.(coresink.FitRecorder); ok {
		if err := rec.WriteFits(ctx, rep.Run, fits); err != nil {
			return CalibrationReport{}, fmt.Errorf("store fits: %w", err)
		}
	}
	if best, ok := calibrate.Best(fits); ok {
		s.log.Infof("best fit %q rmse %.2f over %d days", best.Label, best.RMSE, best.Days)
	}
	return CalibrationReport{Report: rep, Fits: fits}, nil
}

func (s *Service) evaluate(ctx context.Context, mode string, g *scenario.Grid) (Report, error) {
	progress := s.bus.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range progress {
			if ev.Err == nil {
				s.log.Infof("%s %d/%d %s done in %s", ev.Mode, ev.Index+1, ev.Total, ev.Label, ev.Duration)
			}
		}
	}()
	defer func() {
		s.bus.Unsubscribe(progress)
		wg.Wait()
	}()

	ev := grid.NewEvaluator(s.sim, logger.New("grid"), s.bus)
	ev.SetWorkers(s.cfg.Analysis.Workers)
	ev.SetMode(mode)
	table, err := ev.Evaluate(ctx, g.Setup, g.Combos)
	if err != nil {
		return Report{}, err
	}
	run := coresink.NewRun(s.plan.Name, mode)
	if err := s.sink.Write(ctx, run, table); err != nil {
		return Report{}, fmt.Errorf("store %s table: %w", mode, err)
	}
	s.log.Infof("%s run %s stored %d rows for %d labels", mode, run.ID, table.Len(), len(table.Labels()))
	return Report{Run: run, Table: table}, nil
}

// Close releases the sinks and writes the metrics textfile when configured.
func (s *Service) Close() error {
	s.bus.Close()
	err := s.sink.Close()
	if path := s.cfg.Metrics.Textfile; path != "" {
		if werr := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); werr != nil {
			s.log.Errorf("metrics textfile: %v", werr)
			if err == nil {
				err = werr
			}
		}
	}
	return err
}

// LoadCases reads the configured case file.
func LoadCases(cfg *config.Config) (casedata.Series, error) {
	if cfg.Data.Cases == "" {
		return nil, model.ConfigErrorf("data.cases is required")
	}
	return casedata.Load(cfg.Data.Cases, cfg.Data.CSV)
}
