// Package calibrate ranks simulated scenarios by how closely they reproduce
// observed incidence.
package calibrate

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/npiscenarios/core/casedata"
	"github.com/kilianp07/npiscenarios/core/model"
)

// DefaultMinOverlap is the minimum number of shared days needed to score a
// scenario.
const DefaultMinOverlap = 7

// Options tune the comparison.
type Options struct {
	// Ascertainment is the fraction of infections reported as cases.
	// Zero means every infection is reported.
	Ascertainment float64
	// MinOverlap is the number of days a scenario must share with the
	// observations. Zero means DefaultMinOverlap.
	MinOverlap int
}

// Fit is the score of one scenario label.
type Fit struct {
	Label    model.Label `json:"label"`
	Scenario string      `json:"scenario"`
	R0       float64     `json:"r0"`
	RMSE     float64     `json:"rmse"`
	Days     int         `json:"days"`
}

// Rank scores every label of table against observed and returns the fits
// ordered from best to worst. Ties keep the table's label order.
func Rank(table model.Table, observed []casedata.Observation, opts Options) ([]Fit, error) {
	scale := opts.Ascertainment
	if scale == 0 {
		scale = 1
	}
	if !(scale > 0 && scale <= 1) {
		return nil, model.ConfigErrorf("ascertainment %v outside (0,1]", opts.Ascertainment)
	}
	minOverlap := opts.MinOverlap
	if minOverlap <= 0 {
		minOverlap = DefaultMinOverlap
	}
	obs := make(map[time.Time]float64, len(observed))
	for _, o := range observed {
		if !math.IsNaN(o.Cases) {
			obs[o.Date.UTC()] = o.Cases
		}
	}

	labels := table.Labels()
	if len(labels) == 0 {
		return nil, model.ConfigErrorf("nothing to calibrate: table is empty")
	}
	fits := make([]Fit, 0, len(labels))
	for _, l := range labels {
		rows := table.Series(l)
		var sim, want []float64
		for _, r := range rows {
			if v, ok := obs[r.Date.UTC()]; ok {
				sim = append(sim, scale*r.Incidence)
				want = append(want, v)
			}
		}
		if len(sim) < minOverlap {
			return nil, model.ConfigErrorf("%q overlaps observations on %d days, need %d", l, len(sim), minOverlap)
		}
		fits = append(fits, Fit{
			Label:    l,
			Scenario: rows[0].Scenario,
			R0:       rows[0].R0,
			RMSE:     floats.Distance(sim, want, 2) / math.Sqrt(float64(len(sim))),
			Days:     len(sim),
		})
	}
	sort.SliceStable(fits, func(i, j int) bool { return fits[i].RMSE < fits[j].RMSE })
	return fits, nil
}

// Best returns the best fit. ok is false when fits is empty.
func Best(fits []Fit) (Fit, bool) {
	if len(fits) == 0 {
		return Fit{}, false
	}
	return fits[0], true
}
