package sink

import (
	"context"
	"errors"

	"github.com/kilianp07/npiscenarios/core/calibrate"
	"github.com/kilianp07/npiscenarios/core/model"
)

// MultiSink fans tables out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// Write forwards the table to all sinks, returning the first error encountered.
func (m *MultiSink) Write(ctx context.Context, run Run, table model.Table) error {
	for _, s := range m.Sinks {
		if err := s.Write(ctx, run, table); err != nil {
			return err
		}
	}
	return nil
}

// WriteFits forwards fits to the sinks that record them.
func (m *MultiSink) WriteFits(ctx context.Context, run Run, fits []calibrate.Fit) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FitRecorder); ok {
			if err := rec.WriteFits(ctx, run, fits); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
