package envs

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointMassDeterministicUnderSeed(t *testing.T) {
	a := NewPointMass(2, rand.New(rand.NewSource(1)))
	b := NewPointMass(2, rand.New(rand.NewSource(1)))

	obsA, obsB := a.Reset(), b.Reset()
	assert.Equal(t, obsA, obsB)
	assert.Equal(t, a.Context(), b.Context())

	for i := 0; i < 10; i++ {
		action := []float64{0.3, -0.2}
		nA, rA, dA := a.Step(action)
		nB, rB, dB := b.Step(action)
		assert.Equal(t, nA, nB)
		assert.Equal(t, rA, rB)
		assert.Equal(t, dA, dB)
	}
}

func TestPointMassClipsToBounds(t *testing.T) {
	e := NewPointMass(1, rand.New(rand.NewSource(2)))
	e.Reset()

	var obs []float64
	for i := 0; i < 20; i++ {
		obs, _, _ = e.Step([]float64{100}) // clipped to the unit action box
	}
	require.Len(t, obs, 1)
	assert.Equal(t, e.ObservationSpace().High[0], obs[0])
}

func TestPointMassEpisodeEndsAtHorizon(t *testing.T) {
	e := NewPointMass(1, rand.New(rand.NewSource(3)))
	e.Reset()

	done := false
	steps := 0
	for !done {
		_, _, done = e.Step([]float64{0})
		steps++
		require.LessOrEqual(t, steps, defaultHorizon)
	}
	assert.Equal(t, defaultHorizon, steps)
}

func TestPointMassRewardIsNegativeDistance(t *testing.T) {
	e := NewPointMass(1, rand.New(rand.NewSource(4)))
	e.Reset()

	next, reward, _ := e.Step([]float64{0.5})
	dist := next[0] - e.Context()[0]
	if dist < 0 {
		dist = -dist
	}
	assert.InDelta(t, -dist, reward, 1e-12)
}
