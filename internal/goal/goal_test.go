package goal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// A deterministic 1-D worker that moves by its action each step:
// s_0=0, s_1=1, s_2=2, s_3=3 with goal g_0=3.
func TestAbsoluteGoalsScenario(t *testing.T) {
	tr := Transition{Relative: false}
	rw := Reward{Relative: false}

	states := [][]float64{{0}, {1}, {2}, {3}}
	g := []float64{3}

	wantRewards := []float64{-2, -1, 0}
	for i := 0; i < 3; i++ {
		assert.InDelta(t, wantRewards[i], rw.Intrinsic(states[i], g, states[i+1]), 1e-12)
		g = tr.Step(states[i], g, states[i+1])
		assert.Equal(t, []float64{3}, g, "absolute goal must hold constant")
	}
}

func TestRelativeGoalsScenario(t *testing.T) {
	tr := Transition{Relative: true}
	rw := Reward{Relative: true}

	states := [][]float64{{0}, {1}, {2}, {3}}
	g := []float64{3}

	wantGoals := [][]float64{{3}, {2}, {1}}
	wantRewards := []float64{-2, -1, 0}
	for i := 0; i < 3; i++ {
		require.InDelta(t, wantGoals[i][0], g[0], 1e-12)
		assert.InDelta(t, wantRewards[i], rw.Intrinsic(states[i], g, states[i+1]), 1e-12)
		g = tr.Step(states[i], g, states[i+1])
	}
}

func TestRelativeTransitionPreservesAbsoluteTarget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dim := rapid.IntRange(1, 5).Draw(t, "dim")
		gen := rapid.SliceOfN(rapid.Float64Range(-10, 10), dim, dim)
		s := gen.Draw(t, "s")
		g := gen.Draw(t, "g")
		s1 := gen.Draw(t, "s1")

		next := Transition{Relative: true}.Step(s, g, s1)
		for d := 0; d < dim; d++ {
			// s + g is the absolute target; s1 + next must equal it.
			assert.InDelta(t, s[d]+g[d], s1[d]+next[d], 1e-9)
		}
	})
}

func TestAbsoluteTransitionHoldsExactly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dim := rapid.IntRange(1, 5).Draw(t, "dim")
		gen := rapid.SliceOfN(rapid.Float64Range(-10, 10), dim, dim)
		s := gen.Draw(t, "s")
		g := gen.Draw(t, "g")
		s1 := gen.Draw(t, "s1")

		next := Transition{Relative: false}.Step(s, g, s1)
		assert.Equal(t, g, next)
	})
}

func TestIntrinsicRewardFormulas(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dim := rapid.IntRange(1, 4).Draw(t, "dim")
		gen := rapid.SliceOfN(rapid.Float64Range(-5, 5), dim, dim)
		s := gen.Draw(t, "s")
		g := gen.Draw(t, "g")
		s1 := gen.Draw(t, "s1")

		var abs, rel float64
		for d := 0; d < dim; d++ {
			abs += (g[d] - s1[d]) * (g[d] - s1[d])
			rel += (s[d] + g[d] - s1[d]) * (s[d] + g[d] - s1[d])
		}
		assert.InDelta(t, -math.Sqrt(abs), Reward{Relative: false}.Intrinsic(s, g, s1), 1e-9)
		assert.InDelta(t, -math.Sqrt(rel), Reward{Relative: true}.Intrinsic(s, g, s1), 1e-9)
	})
}

func TestIntrinsicGradMatchesFiniteDifferences(t *testing.T) {
	for _, relative := range []bool{false, true} {
		rw := Reward{Relative: relative}
		s := []float64{0.5, -1.2}
		g := []float64{2.0, 0.3}
		s1 := []float64{1.1, 0.4}

		grad := rw.IntrinsicGrad(s, g, s1)
		const h = 1e-6
		for d := range g {
			up := append([]float64(nil), g...)
			up[d] += h
			down := append([]float64(nil), g...)
			down[d] -= h
			numeric := (rw.Intrinsic(s, up, s1) - rw.Intrinsic(s, down, s1)) / (2 * h)
			assert.InDelta(t, numeric, grad[d], 1e-6, "relative=%v dim %d", relative, d)
		}
	}
}

// Goal over a subset of state dimensions.
func TestProjectionSelectsGoalDimensions(t *testing.T) {
	rw := Reward{Relative: false, Proj: []int{0, 2}}
	s1 := []float64{1, 99, 3}
	g := []float64{1, 3}
	assert.InDelta(t, 0, rw.Intrinsic(nil, g, s1), 1e-12)
}


type stubSampler struct{ out []float64 }

func (s stubSampler) Goal(state, context []float64) []float64 {
	return append([]float64(nil), s.out...)
}

func TestNextConsultsManagerOnlyOnDecisionSteps(t *testing.T) {
	tr := Transition{Relative: true}
	sampler := stubSampler{out: []float64{9}}

	s, g, s1 := []float64{1}, []float64{3}, []float64{2}

	got := tr.Next(s, g, s1, true, sampler, nil)
	assert.Equal(t, []float64{9}, got, "decision step takes the manager's goal")

	got = tr.Next(s, g, s1, false, sampler, nil)
	assert.Equal(t, []float64{2}, got, "non-decision step follows the transition rule")
}
