// Package trainer runs the hierarchical training loop: rollout collection,
// meta-transition assembly and relabeling, off-policy updates, and periodic
// evaluation.
package trainer

import (
	"context"
	"errors"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goal-conditioned-hrl/internal/config"
	"goal-conditioned-hrl/internal/goal"
	"goal-conditioned-hrl/internal/metrics"
	"goal-conditioned-hrl/internal/policy"
	"goal-conditioned-hrl/internal/relabel"
	"goal-conditioned-hrl/internal/replay"
	"goal-conditioned-hrl/internal/space"
)

const returnWindow = 40

// Environment is the simulation collaborator. Implementations must be
// deterministic given a fixed seed plus action sequence.
type Environment interface {
	Reset() []float64
	Step(action []float64) (next []float64, reward float64, done bool)
	ObservationSpace() space.Box
	ActionSpace() space.Box
	ContextSpace() space.Box
	// Context returns the current episode's context, or nil.
	Context() []float64
}

// Options configure optional collaborators of the algorithm.
type Options struct {
	// GoalProj names the state dimensions the goal covers. Empty means the
	// goal spans the leading observation dimensions.
	GoalProj space.Projection
	// EvalEnv is a separate environment instance for evaluation rollouts.
	// Evaluation is skipped when nil.
	EvalEnv Environment
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Algorithm is the top-level training driver.
type Algorithm struct {
	cfg     config.Config
	env     Environment
	evalEnv Environment

	goalSpace  space.Box
	transition goal.Transition
	intrinsic  goal.Reward
	hindsight  *relabel.Hindsight

	buffer  *replay.Buffer
	updater *policy.Updater

	rng     *rand.Rand
	logger  *zap.Logger
	metrics *metrics.Collector

	// Rollout state. A non-nil pending meta-transition is in flight and is
	// discarded, never stored, if training stops mid-period.
	obs          []float64
	envContext   []float64
	curGoal      []float64
	stepInPeriod int
	pending      *replay.MetaTransition
	episodeID    string

	totalSteps    int
	episodes      int
	episodeReturn float64
	returns       []float64
}

// New validates the configuration and wires the full training stack.
func New(cfg config.Config, env Environment, opts Options) (*Algorithm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, errors.New("trainer: environment must not be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.Nop()
	}
	rng := rand.New(rand.NewSource(cfg.Algorithm.Seed))

	obSpace := env.ObservationSpace()
	proj := opts.GoalProj
	goalDim := obSpace.Dim()
	if len(proj) > 0 {
		goalDim = len(proj)
	}
	goalSpace := space.Box{
		Low:  proj.Apply(obSpace.Low, goalDim),
		High: proj.Apply(obSpace.High, goalDim),
	}

	transition := goal.Transition{Relative: cfg.Policy.RelativeGoals, Proj: proj}
	intrinsic := goal.Reward{Relative: cfg.Policy.RelativeGoals, Proj: proj}

	buffer, err := replay.NewBuffer(cfg.Policy.BufferSize, rng)
	if err != nil {
		return nil, err
	}

	workerDim := obSpace.Dim() + goalDim
	managerDim := obSpace.Dim() + env.ContextSpace().Dim()
	var worker, manager policy.Strategy
	switch cfg.Algorithm.Family {
	case config.SAC:
		worker = policy.NewSAC(workerDim, env.ActionSpace(), cfg.Policy, rng, logger.Named("worker"))
		manager = policy.NewSAC(managerDim, goalSpace, cfg.Policy, rng, logger.Named("manager"))
	default:
		worker = policy.NewTD3(workerDim, env.ActionSpace(), cfg.Policy, rng, logger.Named("worker"))
		manager = policy.NewTD3(managerDim, goalSpace, cfg.Policy, rng, logger.Named("manager"))
	}

	var corrector *relabel.Corrector
	if cfg.Policy.OffPolicyCorrections {
		std := goalSpace.Magnitude()
		for i := range std {
			std[i] *= cfg.Policy.CandidateStdScale
		}
		corrector, err = relabel.NewCorrector(
			transition, cfg.Policy.NumCandidates, std, rng)
		if err != nil {
			return nil, err
		}
	}
	var hindsight *relabel.Hindsight
	if cfg.Policy.Hindsight {
		hindsight = &relabel.Hindsight{Relative: cfg.Policy.RelativeGoals, Reward: intrinsic}
	}

	updater := policy.NewUpdater(
		cfg.Algorithm, cfg.Policy, worker, manager, buffer,
		corrector, transition, intrinsic, logger, collector)

	return &Algorithm{
		cfg:        cfg,
		env:        env,
		evalEnv:    opts.EvalEnv,
		goalSpace:  goalSpace,
		transition: transition,
		intrinsic:  intrinsic,
		hindsight:  hindsight,
		buffer:     buffer,
		updater:    updater,
		rng:        rng,
		logger:     logger,
		metrics:    collector,
	}, nil
}

// Buffer exposes the replay buffer, mainly for tests and inspection.
func (a *Algorithm) Buffer() *replay.Buffer { return a.buffer }

// Updater exposes the actor-critic updater.
func (a *Algorithm) Updater() *policy.Updater { return a.updater }

// Learn runs training for totalTimesteps environment steps or until the
// context is canceled. An in-flight meta-period is discarded on exit.
func (a *Algorithm) Learn(ctx context.Context, totalTimesteps int) error {
	cycle := 0
	for a.totalSteps < totalTimesteps {
		select {
		case <-ctx.Done():
			a.discardPending()
			return ctx.Err()
		default:
		}

		n := min(a.cfg.Algorithm.NbRolloutSteps, totalTimesteps-a.totalSteps)
		a.collect(n)

		for i := 0; i < a.cfg.Algorithm.NbTrainSteps; i++ {
			a.updater.Step()
		}

		cycle++
		if iv := a.cfg.Algorithm.EvalInterval; iv > 0 && cycle%iv == 0 {
			a.evaluate()
		}
		if a.cfg.Algorithm.Verbose >= 1 && cycle%1000 == 0 {
			a.logger.Info("training progress",
				zap.Int("total_steps", a.totalSteps),
				zap.Int("episodes", a.episodes),
				zap.Float64("mean_return", mean(a.returns)),
				zap.Int("replay_entries", a.buffer.Len()))
		}
	}
	a.discardPending()
	return nil
}

// discardPending drops a partially collected meta-period so the next call
// to Learn starts a fresh one.
func (a *Algorithm) discardPending() {
	a.pending = nil
	a.stepInPeriod = 0
}

// collect advances the environment by n steps, finalizing meta-transitions
// at meta-period and episode boundaries.
func (a *Algorithm) collect(n int) {
	k := a.cfg.Policy.MetaPeriod
	if a.obs == nil {
		a.beginEpisode()
	}

	for i := 0; i < n; i++ {
		if a.stepInPeriod == 0 {
			a.beginMetaPeriod()
		}

		action := a.workerAction()
		next, envReward, done := a.env.Step(action)
		intrinsicReward := a.intrinsic.Intrinsic(a.obs, a.curGoal, next)

		a.pending.Steps = append(a.pending.Steps, replay.WorkerStep{
			Obs:     a.obs,
			Goal:    a.curGoal,
			Action:  action,
			Reward:  intrinsicReward,
			NextObs: next,
			Done:    done,
		})
		if a.cfg.Policy.ManagerRewardSum {
			a.pending.Reward += envReward
		} else {
			a.pending.Reward = envReward
		}

		a.totalSteps++
		a.stepInPeriod++
		a.episodeReturn += envReward
		a.metrics.EnvSteps.Inc()
		if a.cfg.Algorithm.Verbose >= 2 {
			a.logger.Debug("env step",
				zap.Int("step", a.totalSteps),
				zap.Float64("env_reward", envReward),
				zap.Float64("intrinsic_reward", intrinsicReward))
		}

		if a.stepInPeriod == k || done {
			a.finalize(next, done)
		} else {
			a.curGoal = a.transition.Step(a.obs, a.curGoal, next)
		}
		a.obs = next

		if done {
			a.endEpisode()
		}
	}
}

func (a *Algorithm) beginEpisode() {
	a.obs = a.env.Reset()
	a.envContext = a.env.Context()
	a.episodeID = uuid.New().String()
	a.stepInPeriod = 0
	a.pending = nil
	a.episodeReturn = 0
}

func (a *Algorithm) endEpisode() {
	a.episodes++
	a.metrics.Episodes.Inc()
	a.returns = append(a.returns, a.episodeReturn)
	if len(a.returns) > returnWindow {
		a.returns = a.returns[1:]
	}
	a.metrics.TrainReturn.Set(mean(a.returns))
	a.beginEpisode()
}

func (a *Algorithm) beginMetaPeriod() {
	if a.totalSteps < a.cfg.Algorithm.WarmupSteps {
		a.curGoal = a.goalSpace.Sample(a.rng)
	} else {
		sampler := managerSampler{s: a.updater.Manager()}
		a.curGoal = a.transition.Next(a.obs, a.curGoal, a.obs, true, sampler, a.envContext)
	}
	a.pending = &replay.MetaTransition{
		EpisodeID: a.episodeID,
		Obs:       a.obs,
		Context:   a.envContext,
		Goal:      a.curGoal,
	}
}

func (a *Algorithm) workerAction() []float64 {
	if a.totalSteps < a.cfg.Algorithm.WarmupSteps {
		return a.env.ActionSpace().Sample(a.rng)
	}
	workerObs := append(append([]float64(nil), a.obs...), a.curGoal...)
	return a.updater.Worker().Act(workerObs)
}

// finalize commits the in-flight meta-transition, expanding it into its
// hindsight variants when enabled. The original sample is always stored.
func (a *Algorithm) finalize(next []float64, done bool) {
	m := a.pending
	a.pending = nil
	a.stepInPeriod = 0

	m.NextObs = next
	m.Done = done

	if a.hindsight != nil {
		for _, e := range a.hindsight.Variants(*m) {
			a.buffer.Add(e)
		}
	} else {
		a.buffer.Add(replay.Entry{Meta: *m, Provenance: replay.Original})
	}
	a.metrics.BufferEntries.Set(float64(a.buffer.Len()))
}

// evaluate runs deterministic, noise-free rollouts on the eval environment.
func (a *Algorithm) evaluate() {
	if a.evalEnv == nil || a.cfg.Algorithm.NbEvalEpisodes <= 0 {
		a.logger.Debug("evaluation skipped: no eval environment")
		return
	}

	k := a.cfg.Policy.MetaPeriod
	returns := make([]float64, 0, a.cfg.Algorithm.NbEvalEpisodes)
	for ep := 0; ep < a.cfg.Algorithm.NbEvalEpisodes; ep++ {
		obs := a.evalEnv.Reset()
		evalContext := a.evalEnv.Context()
		var g []float64
		var total float64
		for t := 0; ; t++ {
			if t%k == 0 {
				g = a.updater.Manager().ActDeterministic(managerObs(obs, evalContext))
			}
			workerObs := append(append([]float64(nil), obs...), g...)
			action := a.updater.Worker().ActDeterministic(workerObs)
			next, reward, done := a.evalEnv.Step(action)
			total += reward
			if done {
				break
			}
			if (t+1)%k != 0 {
				g = a.transition.Step(obs, g, next)
			}
			obs = next
		}
		returns = append(returns, total)
	}

	a.metrics.EvalReturn.Set(mean(returns))
	if a.cfg.Algorithm.Verbose >= 1 {
		a.logger.Info("evaluation",
			zap.Int("episodes", len(returns)),
			zap.Float64("mean_return", mean(returns)),
			zap.Float64("min_return", minOf(returns)),
			zap.Float64("max_return", maxOf(returns)))
	}
}

// managerSampler adapts the manager strategy to the goal-transition
// decision-step interface.
type managerSampler struct{ s policy.Strategy }

func (m managerSampler) Goal(state, context []float64) []float64 {
	return m.s.Act(managerObs(state, context))
}

func managerObs(obs, context []float64) []float64 {
	out := append([]float64(nil), obs...)
	return append(out, context...)
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func minOf(v []float64) float64 {
	out := v[0]
	for _, x := range v[1:] {
		out = min(out, x)
	}
	return out
}

func maxOf(v []float64) float64 {
	out := v[0]
	for _, x := range v[1:] {
		out = max(out, x)
	}
	return out
}
