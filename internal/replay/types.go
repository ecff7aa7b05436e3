package replay

// WorkerStep is one low-level transition inside a meta-period.
type WorkerStep struct {
	Obs     []float64 `json:"obs"`
	Goal    []float64 `json:"goal"`
	Action  []float64 `json:"action"`
	Reward  float64   `json:"reward"`
	NextObs []float64 `json:"next_obs"`
	Done    bool      `json:"done"`
}

// MetaTransition aggregates one manager decision and the worker steps it
// spans. Steps has length meta-period except for the final, possibly
// truncated, meta-period of an episode. Steps[0].Goal always equals Goal;
// later worker goals come from the goal-transition function.
type MetaTransition struct {
	EpisodeID string `json:"episode_id"`

	Obs     []float64 `json:"obs"`     // manager observation at the decision step
	Context []float64 `json:"context"` // environment context, may be nil
	Goal    []float64 `json:"goal"`    // the goal the manager emitted
	Reward  float64   `json:"reward"`  // environment reward over the meta-period
	NextObs []float64 `json:"next_obs"`
	Done    bool      `json:"done"`

	Steps []WorkerStep `json:"steps"`
}

// K returns the number of worker steps spanned by the meta-transition.
func (m MetaTransition) K() int { return len(m.Steps) }

// FinalObs returns the state reached at the end of the meta-period.
func (m MetaTransition) FinalObs() []float64 {
	if len(m.Steps) == 0 {
		return m.NextObs
	}
	return m.Steps[len(m.Steps)-1].NextObs
}

// Provenance records how a stored entry was produced.
type Provenance int

const (
	// Original is an unmodified rollout sample.
	Original Provenance = iota
	// HindsightAction replaces the manager action with the achieved state.
	HindsightAction
	// HindsightGoal additionally relabels every worker goal and reward.
	HindsightGoal
)

func (p Provenance) String() string {
	switch p {
	case Original:
		return "original"
	case HindsightAction:
		return "hindsight-action"
	case HindsightGoal:
		return "hindsight-goal"
	default:
		return "unknown"
	}
}

// Entry is an immutable stored meta-transition plus its provenance.
type Entry struct {
	Meta       MetaTransition
	Provenance Provenance
}
