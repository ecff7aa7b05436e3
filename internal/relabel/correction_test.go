package relabel

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goal-conditioned-hrl/internal/goal"
)

// gaussianScorer scores actions as a unit Gaussian centered on the goal:
// the closer the goal explains the executed action, the higher the score.
type gaussianScorer struct{}

func (gaussianScorer) LogProb(_, g, action []float64) float64 {
	var s float64
	for i := range action {
		d := action[i] - g[i]
		s += d * d
	}
	return -0.5 * s
}

func TestCorrectorRejectsBadArguments(t *testing.T) {
	_, err := NewCorrector(goal.Transition{}, 1, []float64{1}, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	_, err = NewCorrector(goal.Transition{}, 10, []float64{1}, nil)
	require.Error(t, err)
}

func TestSelectedScoreAtLeastOriginal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	c, err := NewCorrector(goal.Transition{Relative: false}, 10, []float64{2}, rng)
	require.NoError(t, err)

	scorer := gaussianScorer{}
	m := lineMeta(3, 5, false)

	selected := c.Correct(m, scorer)
	origScore := c.score(m, m.Goal, scorer)
	selScore := c.score(m, selected, scorer)
	assert.GreaterOrEqual(t, selScore, origScore,
		"the original goal is always a candidate, so the winner cannot score below it")
}

func TestCorrectionPrefersExplainingGoal(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	c, err := NewCorrector(goal.Transition{Relative: false}, 10, []float64{1}, rng)
	require.NoError(t, err)

	// Worker actions are all +1; the scorer peaks at goal 1. The direct
	// estimate s_k - s_0 = 3 and the stored goal is far away at 40.
	m := lineMeta(3, 40, false)
	selected := c.Correct(m, gaussianScorer{})
	assert.NotEqual(t, []float64{40}, selected)
	assert.InDelta(t, 1, selected[0], 2.5, "winner should land near the scorer's peak")
}

func TestTiesKeepOriginalGoal(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	c, err := NewCorrector(goal.Transition{Relative: false}, 4, []float64{1}, rng)
	require.NoError(t, err)

	// A constant scorer makes every candidate tie; the original must win.
	m := lineMeta(3, 7, false)
	selected := c.Correct(m, constantScorer{})
	assert.Equal(t, []float64{7}, selected)
}

type constantScorer struct{}

func (constantScorer) LogProb(_, _, _ []float64) float64 { return 1 }

func TestScoringDeterministicForFixedPolicy(t *testing.T) {
	c1, err := NewCorrector(goal.Transition{Relative: true}, 6, []float64{1}, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	c2, err := NewCorrector(goal.Transition{Relative: true}, 6, []float64{1}, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	m := lineMeta(4, 2, true)
	assert.Equal(t, c1.Correct(m, gaussianScorer{}), c2.Correct(m, gaussianScorer{}))
}

func TestEmptyMetaReturnsOriginal(t *testing.T) {
	c, err := NewCorrector(goal.Transition{}, 5, []float64{1}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	m := lineMeta(0, 3, false)
	assert.Equal(t, []float64{3}, c.Correct(m, gaussianScorer{}))
}
