package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Disease holds the progression rates of the SEIR model.
type Disease struct {
	Sigma float64 `json:"sigma" yaml:"sigma"` // incubation rate, 1/latent period in days
	Gamma float64 `json:"gamma" yaml:"gamma"` // recovery rate, 1/infectious period in days
}

// Validate checks both rates are positive and finite.
func (d Disease) Validate() error {
	if !(d.Sigma > 0) || math.IsInf(d.Sigma, 0) {
		return ConfigErrorf("sigma must be positive, got %v", d.Sigma)
	}
	if !(d.Gamma > 0) || math.IsInf(d.Gamma, 0) {
		return ConfigErrorf("gamma must be positive, got %v", d.Gamma)
	}
	return nil
}

// ContactMatrix holds mean daily contacts: row i is the age band making
// contacts, column j the band contacted.
type ContactMatrix [][]float64

// Bands returns the number of age bands.
func (c ContactMatrix) Bands() int { return len(c) }

// Validate checks the matrix is square, non-empty and non-negative.
func (c ContactMatrix) Validate() error {
	n := len(c)
	if n == 0 {
		return ConfigErrorf("contact matrix is empty")
	}
	for i, row := range c {
		if len(row) != n {
			return ConfigErrorf("contact matrix row %d has %d columns, want %d", i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return ConfigErrorf("contact matrix [%d][%d] = %v", i, j, v)
			}
		}
	}
	return nil
}

// Dense returns the matrix as a gonum dense matrix.
func (c ContactMatrix) Dense() *mat.Dense {
	n := len(c)
	d := mat.NewDense(n, n, nil)
	for i, row := range c {
		d.SetRow(i, row)
	}
	return d
}

// AgeDistribution holds the population fraction of each age band.
type AgeDistribution []float64

// Validate checks fractions are non-negative and sum to one.
func (a AgeDistribution) Validate() error {
	if len(a) == 0 {
		return ConfigErrorf("age distribution is empty")
	}
	for i, v := range a {
		if math.IsNaN(v) || v < 0 {
			return ConfigErrorf("age band %d fraction %v", i, v)
		}
	}
	if sum := floats.Sum(a); math.Abs(sum-1) > 1e-6 {
		return ConfigErrorf("age distribution sums to %v, want 1", sum)
	}
	return nil
}

// State holds compartment sizes per age band.
type State struct {
	S []float64 `json:"s"`
	E []float64 `json:"e"`
	I []float64 `json:"i"`
	R []float64 `json:"r"`
}

// SeedState puts the whole population in S except for exposed people placed
// in one age band.
func SeedState(population float64, ages AgeDistribution, exposed float64, band int) (State, error) {
	if err := ages.Validate(); err != nil {
		return State{}, err
	}
	if !(population > 0) {
		return State{}, ConfigErrorf("population must be positive, got %v", population)
	}
	if band < 0 || band >= len(ages) {
		return State{}, ConfigErrorf("seed band %d outside [0,%d)", band, len(ages))
	}
	n := len(ages)
	st := State{S: make([]float64, n), E: make([]float64, n), I: make([]float64, n), R: make([]float64, n)}
	floats.ScaleTo(st.S, population, ages)
	if exposed < 0 || exposed > st.S[band] {
		return State{}, ConfigErrorf("seed of %v exposed does not fit band %d of size %v", exposed, band, st.S[band])
	}
	st.S[band] -= exposed
	st.E[band] = exposed
	return st, nil
}

// Bands returns the number of age bands.
func (s State) Bands() int { return len(s.S) }

// Validate checks every compartment has the same number of bands and holds
// finite, non-negative counts.
func (s State) Validate() error {
	n := len(s.S)
	if n == 0 {
		return ConfigErrorf("initial state is empty")
	}
	for _, c := range [][]float64{s.E, s.I, s.R} {
		if len(c) != n {
			return ConfigErrorf("initial state compartments have mismatched band counts")
		}
	}
	for _, c := range [][]float64{s.S, s.E, s.I, s.R} {
		for _, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return ConfigErrorf("initial state holds invalid count %v", v)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s State) Clone() State {
	return State{
		S: append([]float64(nil), s.S...),
		E: append([]float64(nil), s.E...),
		I: append([]float64(nil), s.I...),
		R: append([]float64(nil), s.R...),
	}
}

// Params bundles everything one simulation run needs.
type Params struct {
	R0                    float64
	Disease               Disease
	Contacts              ContactMatrix
	Ages                  AgeDistribution
	ContactReduction      Schedule
	TransmissionReduction Schedule
}
