// Package relabel transforms finalized meta-transitions before storage:
// HAC-style hindsight relabeling and HIRO-style off-policy goal correction.
package relabel

import (
	"goal-conditioned-hrl/internal/goal"
	"goal-conditioned-hrl/internal/replay"
)

// Hindsight produces hindsight-action and hindsight-goal copies of a
// finalized meta-transition. The original sample is always kept; the
// variants are stored alongside it.
type Hindsight struct {
	Relative bool
	Reward   goal.Reward
}

// Variants returns the entries to store for one finalized meta-transition:
// the original, the hindsight-action copy, and the hindsight-goal copy, in
// that order. A truncated final meta-period relabels over its own length.
func (h Hindsight) Variants(m replay.MetaTransition) []replay.Entry {
	return []replay.Entry{
		{Meta: m, Provenance: replay.Original},
		{Meta: h.Action(m), Provenance: replay.HindsightAction},
		{Meta: h.GoalVariant(m), Provenance: replay.HindsightGoal},
	}
}

// Action returns a copy whose manager action is the achieved terminal
// state, as if the manager had commanded the outcome actually reached.
// Worker-level data is untouched.
func (h Hindsight) Action(m replay.MetaTransition) replay.MetaTransition {
	out := cloneMeta(m)
	final := h.Reward.Proj.Apply(m.FinalObs(), len(m.Goal))
	out.Goal = final
	return out
}

// GoalVariant additionally relabels every worker goal via the backward
// recursion over achieved states, and recomputes worker rewards under the
// relabeled goals. The manager action becomes the recursed goal at step 0.
func (h Hindsight) GoalVariant(m replay.MetaTransition) replay.MetaTransition {
	out := cloneMeta(m)
	k := len(m.Steps)
	if k == 0 {
		return out
	}
	dim := len(m.Goal)

	// bar_g_k is zero for relative goals, the achieved state otherwise.
	g := make([]float64, dim)
	if !h.Relative {
		g = h.Reward.Proj.Apply(m.FinalObs(), dim)
	}

	// Recurse backwards: bar_g_t = bar_g_{t+1} - s_t + s_{t+1} (relative),
	// constant s_k otherwise.
	for t := k - 1; t >= 0; t-- {
		if h.Relative {
			ps := h.Reward.Proj.Apply(m.Steps[t].Obs, dim)
			ps1 := h.Reward.Proj.Apply(m.Steps[t].NextObs, dim)
			next := make([]float64, dim)
			for d := 0; d < dim; d++ {
				next[d] = g[d] - ps[d] + ps1[d]
			}
			g = next
		}
		relabeled := make([]float64, dim)
		copy(relabeled, g)
		out.Steps[t].Goal = relabeled
		out.Steps[t].Reward = h.Reward.Intrinsic(
			m.Steps[t].Obs, relabeled, m.Steps[t].NextObs)
	}

	out.Goal = out.Steps[0].Goal
	return out
}

func cloneMeta(m replay.MetaTransition) replay.MetaTransition {
	out := m
	out.Goal = append([]float64(nil), m.Goal...)
	out.Steps = make([]replay.WorkerStep, len(m.Steps))
	copy(out.Steps, m.Steps)
	for i := range out.Steps {
		out.Steps[i].Goal = append([]float64(nil), m.Steps[i].Goal...)
	}
	return out
}
