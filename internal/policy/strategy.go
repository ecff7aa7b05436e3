package policy

// Transition is one flat transition at a single policy level. Obs and
// NextObs already carry the level's context: the environment context for
// the manager, the current goal for the worker.
type Transition struct {
	Obs     []float64
	Action  []float64
	Reward  float64
	NextObs []float64
	Done    float64
}

// Strategy is the pluggable actor-critic update family. TD3 and SAC share
// this surface; the updater depends only on it.
type Strategy interface {
	// Act returns a behavior action, with exploration noise or sampling.
	Act(obs []float64) []float64
	// ActDeterministic returns the noise-free policy action.
	ActDeterministic(obs []float64) []float64
	// LogProb scores an executed action under the current actor.
	LogProb(obs, action []float64) float64

	// UpdateCritics performs one critic optimizer step over the batch.
	// ok is false when the step was skipped due to non-finite values.
	UpdateCritics(batch []Transition) (loss float64, ok bool)
	// UpdateActor performs one actor optimizer step. extraGrad, when non
	// nil, returns an additional per-sample gradient with respect to the
	// produced action, added to the policy-gradient term.
	UpdateActor(batch []Transition, extraGrad func(obs, action []float64) []float64) (loss float64, ok bool)
	// TargetUpdate applies a Polyak blend to the target networks.
	TargetUpdate()

	// Q returns the minimum twin-critic value, for inspection and tests.
	Q(obs, action []float64) float64
	// CriticObsGrad returns the gradient of the first critic with respect
	// to the observation input. The connected-gradients term uses the goal
	// slice of this gradient.
	CriticObsGrad(obs, action []float64) []float64
}
