// Package goal implements the goal-transition function and the intrinsic
// reward model shared by the manager and worker policies.
package goal

import (
	"gonum.org/v1/gonum/floats"

	"goal-conditioned-hrl/internal/space"
)

// ManagerSampler produces a fresh goal from the manager policy. It is only
// consulted on manager decision steps.
type ManagerSampler interface {
	Goal(state, context []float64) []float64
}

// Transition computes the goal the worker observes at each step.
//
// On manager decision steps the goal is re-sampled from the manager. Between
// decisions the goal is either held constant (absolute goals) or translated
// by s_t - s_{t+1} so that it keeps pointing at the same absolute position
// (relative goals).
type Transition struct {
	Relative bool
	Proj     space.Projection
}

// Next returns g_{t+1} given the step (s_t, g_t, s_{t+1}). manager is
// consulted only when managerStep is true. The function is otherwise pure.
func (t Transition) Next(s, g, s1 []float64, managerStep bool, manager ManagerSampler, context []float64) []float64 {
	if managerStep {
		return manager.Goal(s, context)
	}
	return t.Step(s, g, s1)
}

// Step advances the goal over a single non-decision step.
func (t Transition) Step(s, g, s1 []float64) []float64 {
	out := make([]float64, len(g))
	if !t.Relative {
		copy(out, g)
		return out
	}
	ps := t.Proj.Apply(s, len(g))
	ps1 := t.Proj.Apply(s1, len(g))
	floats.AddTo(out, ps, g)
	floats.Sub(out, ps1)
	return out
}

// Reward is the worker's intrinsic reward model: the negative L2 distance
// between the (possibly translated) goal and the next state, measured in
// goal space.
type Reward struct {
	Relative bool
	Proj     space.Projection
}

// Intrinsic returns the worker reward for the step (s_t, g_t, s_{t+1}).
func (r Reward) Intrinsic(s, g, s1 []float64) float64 {
	ps1 := r.Proj.Apply(s1, len(g))
	diff := make([]float64, len(g))
	if r.Relative {
		ps := r.Proj.Apply(s, len(g))
		floats.AddTo(diff, ps, g)
		floats.Sub(diff, ps1)
	} else {
		floats.SubTo(diff, g, ps1)
	}
	return -floats.Norm(diff, 2)
}

// IntrinsicGrad returns the gradient of Intrinsic with respect to the goal.
// Used by the connected-gradients term, which differentiates the worker's
// reward through the manager's goal output.
func (r Reward) IntrinsicGrad(s, g, s1 []float64) []float64 {
	ps1 := r.Proj.Apply(s1, len(g))
	diff := make([]float64, len(g))
	if r.Relative {
		ps := r.Proj.Apply(s, len(g))
		floats.AddTo(diff, ps, g)
		floats.Sub(diff, ps1)
	} else {
		floats.SubTo(diff, g, ps1)
	}
	norm := floats.Norm(diff, 2)
	grad := make([]float64, len(g))
	if norm == 0 {
		return grad
	}
	floats.AddScaledTo(grad, grad, -1/norm, diff)
	return grad
}
