// Package factory instantiates pluggable modules (simulators, result sinks)
// from configuration. A module is selected by a type string and configured by
// a map of raw settings that factories decode into typed structs.
//
//	reg := factory.NewRegistry[simulate.Simulator]()
//	_ = reg.Register("seir", func(conf map[string]any) (simulate.Simulator, error) {
//	    var c struct{ StepsPerDay int `json:"steps_per_day"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return seir.New(c.StepsPerDay), nil
//	})
//	sim, err := reg.Create(factory.ModuleConfig{Type: "seir"})
package factory
