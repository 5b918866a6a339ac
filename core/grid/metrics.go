package grid

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	simulationsTotal   *prometheus.CounterVec
	simulationDuration *prometheus.HistogramVec
	tableRows          *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.GaugeVec) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenario_simulations_total",
			Help: "Number of simulator invocations by outcome",
		},
		[]string{"mode", "outcome"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenario_simulation_duration_seconds",
			Help:    "Wall time of a single simulator invocation",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"mode"},
	)
	rows := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scenario_table_rows",
			Help: "Rows in the last merged scenario table",
		},
		[]string{"mode"},
	)
	return runs, dur, rows
}

func init() {
	simulationsTotal, simulationDuration, tableRows = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers grid metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(simulationsTotal, simulationDuration, tableRows)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	simulationsTotal, simulationDuration, tableRows = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
