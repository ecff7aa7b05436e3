// Package envs contains the built-in training environments.
package envs

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"goal-conditioned-hrl/internal/space"
)

const (
	defaultBound   = 4.0
	defaultHorizon = 200
)

// PointMass is a deterministic integrator environment: the agent is a point
// in a bounded box that moves by its (clipped) action each step and is
// rewarded for proximity to a per-episode target position. Deterministic
// given a fixed seed and action sequence.
type PointMass struct {
	dim     int
	bound   float64
	horizon int

	state  []float64
	target []float64
	steps  int
	rng    *rand.Rand
}

// NewPointMass creates a point-mass environment with dim position
// dimensions. A nil rng falls back to an unseeded source.
func NewPointMass(dim int, rng *rand.Rand) *PointMass {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	e := &PointMass{
		dim:     dim,
		bound:   defaultBound,
		horizon: defaultHorizon,
		rng:     rng,
	}
	e.Reset()
	return e
}

// Reset places the agent near the origin and draws a new target position.
func (e *PointMass) Reset() []float64 {
	e.state = make([]float64, e.dim)
	for i := range e.state {
		e.state[i] = e.rng.Float64()*0.1 - 0.05
	}
	e.target = e.ContextSpace().Sample(e.rng)
	e.steps = 0
	return append([]float64(nil), e.state...)
}

// Step moves the point by the clipped action. Reward is the negative
// distance to the target. The episode ends at the horizon.
func (e *PointMass) Step(action []float64) ([]float64, float64, bool) {
	a := e.ActionSpace().Clip(action)
	for i := range e.state {
		e.state[i] += a[i]
	}
	e.state = e.ObservationSpace().Clip(e.state)
	e.steps++

	diff := make([]float64, e.dim)
	floats.SubTo(diff, e.state, e.target)
	reward := -floats.Norm(diff, 2)
	done := e.steps >= e.horizon
	return append([]float64(nil), e.state...), reward, done
}

// ObservationSpace returns the position box.
func (e *PointMass) ObservationSpace() space.Box {
	return space.Uniform(e.dim, e.bound)
}

// ActionSpace returns the per-step displacement box.
func (e *PointMass) ActionSpace() space.Box {
	return space.Uniform(e.dim, 1)
}

// ContextSpace returns the target-position box.
func (e *PointMass) ContextSpace() space.Box {
	return space.Uniform(e.dim, e.bound)
}

// Context returns the current episode's target position.
func (e *PointMass) Context() []float64 {
	return append([]float64(nil), e.target...)
}
