package model

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestNewScheduleCopiesInput(t *testing.T) {
	in := []float64{1, 0.5, 0}
	s, err := NewSchedule(in)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	in[0] = 0.1
	if s.Day(1) != 1 {
		t.Fatalf("schedule aliased its input")
	}
	out := s.Values()
	out[1] = 0.9
	if s.Day(2) != 0.5 {
		t.Fatalf("Values returned internal slice")
	}
}

func TestNewScheduleRejectsLevels(t *testing.T) {
	for _, v := range []float64{1.5, -0.01, math.NaN()} {
		if _, err := NewSchedule([]float64{1, v}); !errors.Is(err, ErrConfiguration) {
			t.Errorf("level %v: expected configuration error, got %v", v, err)
		}
	}
	if _, err := NewSchedule(nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("empty schedule accepted")
	}
}

func TestSeedState(t *testing.T) {
	ages := AgeDistribution{0.25, 0.5, 0.25}
	st, err := SeedState(1000, ages, 10, 1)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if st.S[1] != 490 || st.E[1] != 10 || st.S[0] != 250 {
		t.Fatalf("unexpected state %+v", st)
	}
	if err := st.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := SeedState(1000, ages, 10, 3); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected band error, got %v", err)
	}
	if _, err := SeedState(1000, AgeDistribution{0.5, 0.4}, 10, 0); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected distribution error, got %v", err)
	}
	if _, err := SeedState(100, ages, 60, 0); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected oversized seed error, got %v", err)
	}
}

func TestStateClone(t *testing.T) {
	st := State{S: []float64{1}, E: []float64{2}, I: []float64{3}, R: []float64{4}}
	cp := st.Clone()
	cp.S[0] = 9
	if st.S[0] != 1 {
		t.Fatalf("clone shares memory")
	}
}

func TestContactMatrixValidate(t *testing.T) {
	if err := (ContactMatrix{{1, 2}, {3, 4}}).Validate(); err != nil {
		t.Fatalf("valid matrix rejected: %v", err)
	}
	bad := []ContactMatrix{nil, {{1, 2}}, {{1, -1}, {0, 1}}}
	for i, m := range bad {
		if err := m.Validate(); !errors.Is(err, ErrConfiguration) {
			t.Errorf("matrix %d: expected error", i)
		}
	}
	d := ContactMatrix{{1, 2}, {3, 4}}.Dense()
	if d.At(1, 0) != 3 {
		t.Fatalf("dense conversion mismatch")
	}
}

func TestDiseaseValidate(t *testing.T) {
	if err := (Disease{Sigma: 0.2, Gamma: 0.1}).Validate(); err != nil {
		t.Fatalf("valid disease rejected: %v", err)
	}
	if err := (Disease{Sigma: 0, Gamma: 0.1}).Validate(); err == nil {
		t.Fatalf("expected sigma error")
	}
	if err := (Disease{Sigma: 0.2, Gamma: math.NaN()}).Validate(); err == nil {
		t.Fatalf("expected gamma error")
	}
}

func TestTableLabelsAndSeries(t *testing.T) {
	day := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	tbl := Table{Rows: []Row{
		{Label: "a", Day: 1, Date: day},
		{Label: "a", Day: 2, Date: day.AddDate(0, 0, 1)},
		{Label: "b", Day: 1, Date: day},
	}}
	labels := tbl.Labels()
	if len(labels) != 2 || labels[0] != "a" || labels[1] != "b" {
		t.Fatalf("labels %v", labels)
	}
	if n := len(tbl.Series("a")); n != 2 {
		t.Fatalf("series length %d", n)
	}
	if tbl.Len() != 3 {
		t.Fatalf("len %d", tbl.Len())
	}
}

func TestErrorKinds(t *testing.T) {
	sim := &SimulationError{Label: "R0=4.0, x", Err: fmt.Errorf("diverged")}
	if !errors.Is(sim, ErrSimulation) {
		t.Fatalf("simulation error not matched")
	}
	wrapped := fmt.Errorf("grid: %w", sim)
	var se *SimulationError
	if !errors.As(wrapped, &se) || se.Label != "R0=4.0, x" {
		t.Fatalf("errors.As failed")
	}
	dl := &DataLoadError{Path: "cases.csv", Line: 3, Err: fmt.Errorf("bad date")}
	if !errors.Is(dl, ErrDataLoad) {
		t.Fatalf("data load error not matched")
	}
	if dl.Error() != "load cases.csv line 3: bad date" {
		t.Fatalf("message %q", dl.Error())
	}
}
