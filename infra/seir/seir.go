// Package seir is a deterministic age-structured SEIR model used as the
// default simulator. The transmission rate is derived from R0 through the
// spectral radius of the contact matrix and integrated with a fixed-step
// Runge-Kutta scheme.
package seir

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/npiscenarios/core/factory"
	"github.com/kilianp07/npiscenarios/core/model"
	"github.com/kilianp07/npiscenarios/core/simulate"
)

// DefaultStepsPerDay is the number of integration steps per simulated day.
const DefaultStepsPerDay = 10

// negativeTolerance absorbs round-off below zero before a state is rejected.
const negativeTolerance = 1e-6

func init() {
	_ = simulate.Register("seir", func(conf map[string]any) (simulate.Simulator, error) {
		var c struct {
			StepsPerDay int `json:"steps_per_day"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c.StepsPerDay), nil
	})
}

// Model integrates the SEIR equations.
type Model struct {
	stepsPerDay int
}

// New returns a model using stepsPerDay integration steps, or
// DefaultStepsPerDay when stepsPerDay is not positive.
func New(stepsPerDay int) *Model {
	if stepsPerDay < 1 {
		stepsPerDay = DefaultStepsPerDay
	}
	return &Model{stepsPerDay: stepsPerDay}
}

// Simulate returns the daily number of new infections. On day d the contact
// matrix is scaled by ContactReduction.Day(d) and the transmission rate by
// TransmissionReduction.Day(d).
func (m *Model) Simulate(ctx context.Context, horizon int, initial model.State, p model.Params) (model.Result, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be at least 1 day, got %d", horizon)
	}
	if err := p.Disease.Validate(); err != nil {
		return nil, err
	}
	if err := p.Contacts.Validate(); err != nil {
		return nil, err
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	n := p.Contacts.Bands()
	if initial.Bands() != n {
		return nil, fmt.Errorf("initial state has %d bands, contact matrix %d", initial.Bands(), n)
	}
	if p.ContactReduction.Len() < horizon || p.TransmissionReduction.Len() < horizon {
		return nil, fmt.Errorf("schedules cover %d/%d days, horizon is %d",
			p.ContactReduction.Len(), p.TransmissionReduction.Len(), horizon)
	}
	if !(p.R0 > 0) {
		return nil, fmt.Errorf("R0 must be positive, got %v", p.R0)
	}
	rho, err := SpectralRadius(p.Contacts)
	if err != nil {
		return nil, err
	}
	if rho == 0 {
		return nil, errors.New("contact matrix has zero spectral radius")
	}
	beta := p.R0 * p.Disease.Gamma / rho

	it := newIntegrator(p, initial)
	y := make([]float64, 4*n)
	copy(y[0:n], initial.S)
	copy(y[n:2*n], initial.E)
	copy(y[2*n:3*n], initial.I)
	copy(y[3*n:], initial.R)

	dt := 1 / float64(m.stepsPerDay)
	res := make(model.Result, horizon)
	for d := 1; d <= horizon; d++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := beta * p.ContactReduction.Day(d) * p.TransmissionReduction.Day(d)
		before := floats.Sum(y[0:n])
		for k := 0; k < m.stepsPerDay; k++ {
			it.step(y, b, dt)
		}
		if err := clampState(y); err != nil {
			return nil, fmt.Errorf("day %d: %w", d, err)
		}
		res[d-1] = model.Point{Day: d, Incidence: math.Max(0, before-floats.Sum(y[0:n]))}
	}
	return res, nil
}

// SpectralRadius returns the largest eigenvalue modulus of c.
func SpectralRadius(c model.ContactMatrix) (float64, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(c.Dense(), mat.EigenNone); !ok {
		return 0, errors.New("contact matrix eigen decomposition failed")
	}
	var rho float64
	for _, v := range eig.Values(nil) {
		if a := cmplx.Abs(v); a > rho {
			rho = a
		}
	}
	return rho, nil
}

func clampState(y []float64) error {
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("non-finite compartment")
		}
		if v < 0 {
			if v < -negativeTolerance {
				return fmt.Errorf("compartment %d went negative (%v)", i, v)
			}
			y[i] = 0
		}
	}
	return nil
}

type integrator struct {
	n            int
	contacts     *mat.Dense
	pop          []float64
	sigma, gamma float64

	prevalence, force *mat.VecDense
	k1, k2, k3, k4    []float64
	tmp               []float64
}

func newIntegrator(p model.Params, initial model.State) *integrator {
	n := p.Contacts.Bands()
	pop := make([]float64, n)
	for i := range pop {
		pop[i] = initial.S[i] + initial.E[i] + initial.I[i] + initial.R[i]
	}
	return &integrator{
		n:          n,
		contacts:   p.Contacts.Dense(),
		pop:        pop,
		sigma:      p.Disease.Sigma,
		gamma:      p.Disease.Gamma,
		prevalence: mat.NewVecDense(n, nil),
		force:      mat.NewVecDense(n, nil),
		k1:         make([]float64, 4*n),
		k2:         make([]float64, 4*n),
		k3:         make([]float64, 4*n),
		k4:         make([]float64, 4*n),
		tmp:        make([]float64, 4*n),
	}
}

// deriv writes dy/dt into dst. The force of infection on band i is
// beta * sum_j C[i][j] * I_j / N_j.
func (it *integrator) deriv(dst, y []float64, beta float64) {
	n := it.n
	s, e, inf := y[0:n], y[n:2*n], y[2*n:3*n]
	for j := 0; j < n; j++ {
		v := 0.0
		if it.pop[j] > 0 {
			v = inf[j] / it.pop[j]
		}
		it.prevalence.SetVec(j, v)
	}
	it.force.MulVec(it.contacts, it.prevalence)
	for i := 0; i < n; i++ {
		newInf := beta * it.force.AtVec(i) * s[i]
		dst[i] = -newInf
		dst[n+i] = newInf - it.sigma*e[i]
		dst[2*n+i] = it.sigma*e[i] - it.gamma*inf[i]
		dst[3*n+i] = it.gamma * inf[i]
	}
}

// step advances y by dt with the classic fourth-order Runge-Kutta scheme.
func (it *integrator) step(y []float64, beta, dt float64) {
	it.deriv(it.k1, y, beta)
	floats.AddScaledTo(it.tmp, y, dt/2, it.k1)
	it.deriv(it.k2, it.tmp, beta)
	floats.AddScaledTo(it.tmp, y, dt/2, it.k2)
	it.deriv(it.k3, it.tmp, beta)
	floats.AddScaledTo(it.tmp, y, dt, it.k3)
	it.deriv(it.k4, it.tmp, beta)

	floats.AddScaled(y, dt/6, it.k1)
	floats.AddScaled(y, dt/3, it.k2)
	floats.AddScaled(y, dt/3, it.k3)
	floats.AddScaled(y, dt/6, it.k4)
}
