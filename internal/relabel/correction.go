package relabel

import (
	"errors"
	"math/rand"

	"goal-conditioned-hrl/internal/goal"
	"goal-conditioned-hrl/internal/replay"
)

// WorkerScorer evaluates the log-probability of a worker action under the
// current worker actor. Deterministic actors approximate themselves as a
// Gaussian around their output with fixed variance.
type WorkerScorer interface {
	LogProb(obs, goalVec, action []float64) float64
}

// Corrector implements HIRO-style off-policy goal correction: the stored
// manager action is replaced by the candidate goal that best explains the
// worker actions actually executed, scored under the current worker policy.
//
// Correction runs lazily per sampled batch at manager-update time so that
// the scorer reflects fresh, not stale, worker parameters.
type Corrector struct {
	transition goal.Transition
	proj       func(state []float64, dim int) []float64
	candidates int
	std        []float64
	rng        *rand.Rand
}

// NewCorrector builds a corrector drawing candidates total candidate goals:
// the original, the deterministic estimate s_k - s_0, and Gaussian samples
// centered on that estimate with the given per-dimension std.
func NewCorrector(t goal.Transition, candidates int, std []float64, rng *rand.Rand) (*Corrector, error) {
	if candidates < 2 {
		return nil, errors.New("relabel: need at least two candidate goals")
	}
	if rng == nil {
		return nil, errors.New("relabel: rng must not be nil")
	}
	return &Corrector{
		transition: t,
		proj:       t.Proj.Apply,
		candidates: candidates,
		std:        std,
		rng:        rng,
	}, nil
}

// Correct returns the relabeled manager action for one meta-transition.
// The selected candidate always scores at least as high as the original
// goal, which is itself a candidate; ties keep the original.
func (c *Corrector) Correct(m replay.MetaTransition, scorer WorkerScorer) []float64 {
	if len(m.Steps) == 0 {
		return append([]float64(nil), m.Goal...)
	}
	dim := len(m.Goal)

	s0 := c.proj(m.Obs, dim)
	sk := c.proj(m.FinalObs(), dim)
	direct := make([]float64, dim)
	for d := 0; d < dim; d++ {
		direct[d] = sk[d] - s0[d]
	}

	cands := make([][]float64, 0, c.candidates)
	cands = append(cands, append([]float64(nil), m.Goal...))
	cands = append(cands, direct)
	for len(cands) < c.candidates {
		sample := make([]float64, dim)
		for d := 0; d < dim; d++ {
			sample[d] = direct[d] + c.rng.NormFloat64()*c.std[d]
		}
		cands = append(cands, sample)
	}

	best := cands[0]
	bestScore := c.score(m, cands[0], scorer)
	for _, cand := range cands[1:] {
		if s := c.score(m, cand, scorer); s > bestScore {
			best = cand
			bestScore = s
		}
	}
	return best
}

// score replays the goal-transition sequence for a candidate and sums the
// log-likelihood of the executed worker actions.
func (c *Corrector) score(m replay.MetaTransition, cand []float64, scorer WorkerScorer) float64 {
	g := cand
	total := 0.0
	for t, step := range m.Steps {
		if t > 0 {
			g = c.transition.Step(m.Steps[t-1].Obs, g, step.Obs)
		}
		total += scorer.LogProb(step.Obs, g, step.Action)
	}
	return total
}
