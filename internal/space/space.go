// Package space describes bounded continuous observation, action, and
// context spaces.
package space

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Box is a bounded box in R^n. Low and High must have the same length.
type Box struct {
	Low  []float64
	High []float64
}

// NewBox builds a box with the given bounds.
func NewBox(low, high []float64) (Box, error) {
	if len(low) != len(high) {
		return Box{}, errors.New("space: low and high must have equal length")
	}
	for i := range low {
		if low[i] > high[i] {
			return Box{}, errors.New("space: low bound exceeds high bound")
		}
	}
	return Box{Low: low, High: high}, nil
}

// Uniform returns a box spanning [-bound, bound] in every dimension.
func Uniform(dim int, bound float64) Box {
	low := make([]float64, dim)
	high := make([]float64, dim)
	for i := 0; i < dim; i++ {
		low[i] = -bound
		high[i] = bound
	}
	return Box{Low: low, High: high}
}

// Dim returns the dimensionality of the box.
func (b Box) Dim() int { return len(b.Low) }

// Sample draws a uniform sample from the box.
func (b Box) Sample(rng *rand.Rand) []float64 {
	out := make([]float64, b.Dim())
	for i := range out {
		out[i] = b.Low[i] + rng.Float64()*(b.High[i]-b.Low[i])
	}
	return out
}

// Clip returns a copy of x clamped to the box bounds.
func (b Box) Clip(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = min(max(x[i], b.Low[i]), b.High[i])
	}
	return out
}

// Mid returns the center of the box in every dimension.
func (b Box) Mid() []float64 {
	out := make([]float64, b.Dim())
	floats.AddTo(out, b.Low, b.High)
	floats.Scale(0.5, out)
	return out
}

// Magnitude returns half the range of the box in every dimension.
func (b Box) Magnitude() []float64 {
	out := make([]float64, b.Dim())
	floats.SubTo(out, b.High, b.Low)
	floats.Scale(0.5, out)
	return out
}

// Projection maps a full state vector onto the goal-relevant dimensions.
// An empty projection is the identity over the first Dim(goal) entries.
type Projection []int

// Apply extracts the goal-relevant entries of state. dim is the goal-space
// dimensionality, used when the projection is empty.
func (p Projection) Apply(state []float64, dim int) []float64 {
	if len(p) == 0 {
		out := make([]float64, dim)
		copy(out, state[:dim])
		return out
	}
	out := make([]float64, len(p))
	for i, idx := range p {
		out[i] = state[idx]
	}
	return out
}
