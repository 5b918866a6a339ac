// Package simulate defines the boundary to the epidemic model. The grid
// evaluator only depends on Simulator; concrete models register a factory
// so configuration can select one by name.
package simulate

import (
	"context"

	"github.com/kilianp07/npiscenarios/core/factory"
	"github.com/kilianp07/npiscenarios/core/model"
)

// Simulator produces the daily incidence of one parameter combination.
// Implementations must be deterministic and must not retain or mutate
// initial; they return exactly horizon points on success.
type Simulator interface {
	Simulate(ctx context.Context, horizon int, initial model.State, params model.Params) (model.Result, error)
}

// Func adapts a function to the Simulator interface.
type Func func(ctx context.Context, horizon int, initial model.State, params model.Params) (model.Result, error)

// Simulate calls f.
func (f Func) Simulate(ctx context.Context, horizon int, initial model.State, params model.Params) (model.Result, error) {
	return f(ctx, horizon, initial, params)
}

var registry = factory.NewRegistry[Simulator]()

// Register adds a simulator factory identified by name.
func Register(name string, f factory.Factory[Simulator]) error {
	return registry.Register(name, f)
}

// New creates the simulator described by cfg.
func New(cfg factory.ModuleConfig) (Simulator, error) {
	return registry.Create(cfg)
}

// Names lists the registered simulator types.
func Names() []string { return registry.Names() }
