// Package sink provides the file, SQLite, InfluxDB and MQTT result sinks
// and registers them with core/sink.
package sink

import (
	"context"

	"github.com/kilianp07/npiscenarios/core/factory"
	coresink "github.com/kilianp07/npiscenarios/core/sink"
)

// init registers built-in sinks.
func init() {
	_ = coresink.Register("nop", func(map[string]any) (coresink.Sink, error) {
		return coresink.NopSink{}, nil
	})

	_ = coresink.Register("file", func(conf map[string]any) (coresink.Sink, error) {
		var c FileConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewFileSink(c)
	})

	_ = coresink.Register("sqlite", func(conf map[string]any) (coresink.Sink, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteSink(c.Path)
	})

	_ = coresink.Register("influx", func(conf map[string]any) (coresink.Sink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkChecked(context.Background(), c)
	})

	_ = coresink.Register("mqtt", func(conf map[string]any) (coresink.Sink, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMQTTSink(c)
	})
}
