package config

import (
	"github.com/kilianp07/npiscenarios/core/calibrate"
	"github.com/kilianp07/npiscenarios/core/casedata"
)

// AnalysisConfig locates the scenario definition and tunes the evaluation.
type AnalysisConfig struct {
	// Scenario is the path of the YAML or JSON scenario definition.
	Scenario string `json:"scenario" validate:"required"`
	// Workers bounds concurrent simulator calls.
	Workers int `json:"workers" default:"1" validate:"gte=1"`
	// Ascertainment is the fraction of infections reported as cases.
	Ascertainment float64 `json:"ascertainment" default:"1" validate:"gt=0,lte=1"`
	// MinOverlap is the number of days a calibration run must share with
	// the case data.
	MinOverlap int `json:"min_overlap" default:"7" validate:"gte=1"`
}

// CalibrateOptions returns the ranking options.
func (c AnalysisConfig) CalibrateOptions() calibrate.Options {
	return calibrate.Options{Ascertainment: c.Ascertainment, MinOverlap: c.MinOverlap}
}

// DataConfig locates the observed case file.
type DataConfig struct {
	Cases string           `json:"cases"`
	CSV   casedata.Options `json:"csv"`
}

// MetricsConfig controls the Prometheus textfile written after a run.
type MetricsConfig struct {
	Textfile string `json:"textfile"`
}
