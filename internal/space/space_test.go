package space

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoxValidation(t *testing.T) {
	_, err := NewBox([]float64{0}, []float64{1, 2})
	assert.Error(t, err)

	_, err = NewBox([]float64{2}, []float64{1})
	assert.Error(t, err)

	b, err := NewBox([]float64{-1, 0}, []float64{1, 4})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Dim())
	assert.Equal(t, []float64{0, 2}, b.Mid())
	assert.Equal(t, []float64{1, 2}, b.Magnitude())
}

func TestSampleAndClipStayInBounds(t *testing.T) {
	b := Uniform(3, 2.5)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		x := b.Sample(rng)
		require.Len(t, x, 3)
		for d, v := range x {
			assert.GreaterOrEqual(t, v, b.Low[d])
			assert.LessOrEqual(t, v, b.High[d])
		}
	}

	clipped := b.Clip([]float64{-10, 0.5, 10})
	assert.Equal(t, []float64{-2.5, 0.5, 2.5}, clipped)
}

func TestProjectionApply(t *testing.T) {
	state := []float64{1, 2, 3, 4}

	var identity Projection
	assert.Equal(t, []float64{1, 2}, identity.Apply(state, 2))

	p := Projection{3, 1}
	assert.Equal(t, []float64{4, 2}, p.Apply(state, 2))
}
