package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks invalid schedules, grids or parameters. It is
	// always reported before any simulation runs.
	ErrConfiguration = errors.New("configuration error")
	// ErrSimulation marks a simulator that could not produce a result.
	ErrSimulation = errors.New("simulation failure")
	// ErrDataLoad marks a missing or malformed case-count file.
	ErrDataLoad = errors.New("data load error")
)

// ConfigErrorf formats a message wrapped with ErrConfiguration.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// SimulationError reports the combination whose simulation failed.
type SimulationError struct {
	Label Label
	Err   error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation %q: %v", e.Label, e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrSimulation) match any SimulationError.
func (e *SimulationError) Is(target error) bool { return target == ErrSimulation }

// DataLoadError reports where case data could not be read. Line is 0 when
// the failure is not tied to a row.
type DataLoadError struct {
	Path string
	Line int
	Err  error
}

func (e *DataLoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }
