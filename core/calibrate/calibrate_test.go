package calibrate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kilianp07/npiscenarios/core/casedata"
	"github.com/kilianp07/npiscenarios/core/model"
)

var day1 = time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

func series(label model.Label, r0 float64, days int, f func(d int) float64) []model.Row {
	rows := make([]model.Row, days)
	for d := 1; d <= days; d++ {
		rows[d-1] = model.Row{Label: label, Scenario: "s", R0: r0, Day: d, Date: day1.AddDate(0, 0, d-1), Incidence: f(d)}
	}
	return rows
}

func observed(days int, f func(d int) float64) []casedata.Observation {
	out := make([]casedata.Observation, days)
	for d := 1; d <= days; d++ {
		out[d-1] = casedata.Observation{Date: day1.AddDate(0, 0, d-1), Cases: f(d)}
	}
	return out
}

func TestRankOrdersByRMSE(t *testing.T) {
	var tbl model.Table
	tbl.Rows = append(tbl.Rows, series("far", 8, 20, func(d int) float64 { return float64(d) + 10 })...)
	tbl.Rows = append(tbl.Rows, series("exact", 6, 20, func(d int) float64 { return float64(d) })...)
	tbl.Rows = append(tbl.Rows, series("near", 4, 20, func(d int) float64 { return float64(d) + 1 })...)

	fits, err := Rank(tbl, observed(14, func(d int) float64 { return float64(d) }), Options{})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if fits[0].Label != "exact" || fits[1].Label != "near" || fits[2].Label != "far" {
		t.Fatalf("unexpected order %+v", fits)
	}
	if fits[0].RMSE != 0 || math.Abs(fits[1].RMSE-1) > 1e-12 || math.Abs(fits[2].RMSE-10) > 1e-12 {
		t.Fatalf("unexpected rmse %+v", fits)
	}
	if fits[1].Days != 14 || fits[1].R0 != 4 {
		t.Fatalf("unexpected fit metadata %+v", fits[1])
	}
	best, ok := Best(fits)
	if !ok || best.Label != "exact" {
		t.Fatalf("unexpected best %+v", best)
	}
}

func TestRankAppliesAscertainment(t *testing.T) {
	tbl := model.Table{Rows: series("a", 4, 10, func(int) float64 { return 100 })}
	fits, err := Rank(tbl, observed(10, func(int) float64 { return 25 }), Options{Ascertainment: 0.25})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if fits[0].RMSE != 0 {
		t.Fatalf("expected perfect fit, got %v", fits[0].RMSE)
	}
}

func TestRankSkipsNaNObservations(t *testing.T) {
	tbl := model.Table{Rows: series("a", 4, 10, func(int) float64 { return 1 })}
	obs := observed(10, func(d int) float64 {
		if d < 4 {
			return math.NaN()
		}
		return 1
	})
	fits, err := Rank(tbl, obs, Options{})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if fits[0].Days != 7 {
		t.Fatalf("expected 7 overlapping days, got %d", fits[0].Days)
	}
}

func TestRankErrors(t *testing.T) {
	tbl := model.Table{Rows: series("a", 4, 10, func(int) float64 { return 1 })}
	if _, err := Rank(tbl, observed(3, func(int) float64 { return 1 }), Options{}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected overlap error, got %v", err)
	}
	if _, err := Rank(tbl, observed(10, func(int) float64 { return 1 }), Options{Ascertainment: 2}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected ascertainment error, got %v", err)
	}
	if _, err := Rank(model.Table{}, nil, Options{}); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected empty table error, got %v", err)
	}
	if _, ok := Best(nil); ok {
		t.Fatal("expected no best fit")
	}
}
