package sink

import "github.com/kilianp07/npiscenarios/core/factory"

var registry = factory.NewRegistry[Sink]()

// Register adds a sink factory identified by name.
func Register(name string, f factory.Factory[Sink]) error {
	return registry.Register(name, f)
}

// Names lists the registered sink types.
func Names() []string { return registry.Names() }

// New creates a Sink from the provided configuration. No configuration
// yields a NopSink and several yield a MultiSink.
func New(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return registry.Create(cfgs[0])
	}
	sinks := make([]Sink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := registry.Create(c)
		if err != nil {
			for _, open := range sinks {
				_ = open.Close()
			}
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return NewMultiSink(sinks...), nil
}
