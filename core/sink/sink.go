package sink

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/npiscenarios/core/calibrate"
	"github.com/kilianp07/npiscenarios/core/model"
)

// Run identifies one evaluation of a grid.
type Run struct {
	ID      uuid.UUID
	Name    string
	Mode    string
	Created time.Time
}

// NewRun returns a run with a fresh random ID.
func NewRun(name, mode string) Run {
	return Run{ID: uuid.New(), Name: name, Mode: mode, Created: time.Now().UTC()}
}

// Sink persists result tables.
type Sink interface {
	Write(ctx context.Context, run Run, table model.Table) error
	Close() error
}

// FitRecorder is implemented by sinks that also persist calibration rankings.
type FitRecorder interface {
	WriteFits(ctx context.Context, run Run, fits []calibrate.Fit) error
}

// NopSink discards everything.
type NopSink struct{}

// Write implements Sink.
func (NopSink) Write(context.Context, Run, model.Table) error { return nil }

// WriteFits implements FitRecorder.
func (NopSink) WriteFits(context.Context, Run, []calibrate.Fit) error { return nil }

// Close implements Sink.
func (NopSink) Close() error { return nil }
