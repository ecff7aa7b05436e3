package policy

import (
	"errors"

	"go.uber.org/zap"

	"goal-conditioned-hrl/internal/config"
	"goal-conditioned-hrl/internal/goal"
	"goal-conditioned-hrl/internal/metrics"
	"goal-conditioned-hrl/internal/relabel"
	"goal-conditioned-hrl/internal/replay"
)

// Updater owns both policy levels and drives their off-policy updates from
// the shared replay buffer. Target networks live inside the strategies and
// are mutated only through their TargetUpdate methods.
type Updater struct {
	algo config.Algorithm
	pol  config.Policy

	worker  Strategy
	manager Strategy

	buffer     *replay.Buffer
	corrector  *relabel.Corrector // nil when off_policy_corrections is off
	transition goal.Transition
	intrinsic  goal.Reward

	steps        int
	managerSteps int

	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewUpdater wires the two strategies to the buffer and relabeling logic.
func NewUpdater(
	algo config.Algorithm,
	pol config.Policy,
	worker, manager Strategy,
	buffer *replay.Buffer,
	corrector *relabel.Corrector,
	transition goal.Transition,
	intrinsic goal.Reward,
	logger *zap.Logger,
	collector *metrics.Collector,
) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = metrics.Nop()
	}
	return &Updater{
		algo:       algo,
		pol:        pol,
		worker:     worker,
		manager:    manager,
		buffer:     buffer,
		corrector:  corrector,
		transition: transition,
		intrinsic:  intrinsic,
		logger:     logger,
		metrics:    collector,
	}
}

// Worker returns the worker strategy.
func (u *Updater) Worker() Strategy { return u.worker }

// Manager returns the manager strategy.
func (u *Updater) Manager() Strategy { return u.manager }

// Step performs one training step: worker critics every step, worker actor
// on its cadence, manager critics and actor on the meta cadence. A batch
// that cannot be sampled skips the step without error.
func (u *Updater) Step() {
	u.steps++

	entries, err := u.buffer.Sample(u.pol.BatchSize)
	if err != nil {
		if errors.Is(err, replay.ErrInsufficientData) {
			u.logger.Info("skipping update: insufficient replay data",
				zap.Int("buffered", u.buffer.Len()),
				zap.Int("batch_size", u.pol.BatchSize))
			u.metrics.UpdatesSkipped.WithLabelValues("worker").Inc()
			if u.steps%u.algo.MetaUpdateFreq == 0 {
				u.metrics.UpdatesSkipped.WithLabelValues("manager").Inc()
			}
			return
		}
		u.logger.Warn("replay sample failed", zap.Error(err))
		return
	}
	batch := replay.Assemble(entries, u.pol.MetaPeriod)

	u.updateWorker(batch)

	if u.steps%u.algo.MetaUpdateFreq == 0 {
		u.managerSteps++
		u.updateManager(entries)
	}
}

func (u *Updater) updateWorker(batch *replay.Batch) {
	trs := u.workerTransitions(batch)
	if len(trs) == 0 {
		return
	}

	loss, ok := u.worker.UpdateCritics(trs)
	if !ok {
		u.logger.Warn("worker critic step skipped: non-finite loss or gradients")
		u.metrics.NaNSkipped.WithLabelValues("worker").Inc()
	} else {
		u.metrics.CriticLoss.WithLabelValues("worker").Set(loss)
	}

	if u.steps%u.algo.ActorUpdateFreq == 0 {
		aloss, aok := u.worker.UpdateActor(trs, nil)
		if !aok {
			u.logger.Warn("worker actor step skipped: non-finite loss or gradients")
			u.metrics.NaNSkipped.WithLabelValues("worker").Inc()
		} else {
			u.metrics.ActorLoss.WithLabelValues("worker").Set(aloss)
		}
	}

	u.worker.TargetUpdate()
}

func (u *Updater) updateManager(entries []replay.Entry) {
	trs := u.managerTransitions(entries)

	loss, ok := u.manager.UpdateCritics(trs)
	if !ok {
		u.logger.Warn("manager critic step skipped: non-finite loss or gradients")
		u.metrics.NaNSkipped.WithLabelValues("manager").Inc()
	} else {
		u.metrics.CriticLoss.WithLabelValues("manager").Set(loss)
	}

	if u.managerSteps%u.algo.ActorUpdateFreq == 0 {
		var extra func(obs, action []float64) []float64
		if u.pol.ConnectedGradients {
			extra = u.connectedGrad(entries)
		}
		aloss, aok := u.manager.UpdateActor(trs, extra)
		if !aok {
			u.logger.Warn("manager actor step skipped: non-finite loss or gradients")
			u.metrics.NaNSkipped.WithLabelValues("manager").Inc()
		} else {
			u.metrics.ActorLoss.WithLabelValues("manager").Set(aloss)
		}
	}

	u.manager.TargetUpdate()
}

// workerTransitions flattens the real (unmasked) worker steps of a batch
// into per-step transitions with the goal appended to the observation.
func (u *Updater) workerTransitions(batch *replay.Batch) []Transition {
	var out []Transition
	for i := range batch.Entries {
		for t := 0; t < batch.K; t++ {
			if batch.Mask[i][t] == 0 {
				continue
			}
			obsT := batch.WorkerObs[i][t]
			goalT := batch.WorkerGoals[i][t]
			nextObs := batch.WorkerNextObs[i][t]
			nextGoal := u.transition.Step(obsT, goalT, nextObs)
			out = append(out, Transition{
				Obs:     concat(obsT, goalT),
				Action:  batch.WorkerActions[i][t],
				Reward:  batch.WorkerRewards[i][t],
				NextObs: concat(nextObs, nextGoal),
				Done:    batch.WorkerDones[i][t],
			})
		}
	}
	return out
}

// managerTransitions maps entries to manager-level transitions, applying
// the off-policy goal correction lazily against the current worker actor.
// Hindsight variants keep their relabeled goals.
func (u *Updater) managerTransitions(entries []replay.Entry) []Transition {
	scorer := workerScorer{s: u.worker}
	out := make([]Transition, len(entries))
	for i, e := range entries {
		m := e.Meta
		g := m.Goal
		if u.corrector != nil && e.Provenance == replay.Original {
			g = u.corrector.Correct(m, scorer)
		}
		done := 0.0
		if m.Done {
			done = 1
		}
		out[i] = Transition{
			Obs:     concat(m.Obs, m.Context),
			Action:  g,
			Reward:  m.Reward,
			NextObs: concat(m.NextObs, m.Context),
			Done:    done,
		}
	}
	return out
}

// connectedGrad builds the coupling term for the manager actor update: the
// gradient of the worker's first-step intrinsic reward plus worker critic
// value with respect to the goal, evaluated at the goal the manager actor
// currently produces. Entries are consumed in batch order.
func (u *Updater) connectedGrad(entries []replay.Entry) func(obs, action []float64) []float64 {
	idx := 0
	return func(_, action []float64) []float64 {
		m := entries[idx].Meta
		idx++

		out := make([]float64, len(action))
		if len(m.Steps) == 0 {
			return out
		}
		step := m.Steps[0]

		rGrad := u.intrinsic.IntrinsicGrad(step.Obs, action, step.NextObs)
		dObs := u.worker.CriticObsGrad(concat(step.Obs, action), step.Action)
		qGrad := dObs[len(step.Obs):]

		// The actor minimizes its loss, so ascending the worker response
		// means subtracting its gradient.
		for i := range out {
			out[i] = -u.pol.CGWeights * (rGrad[i] + qGrad[i])
		}
		return out
	}
}

type workerScorer struct{ s Strategy }

func (w workerScorer) LogProb(obs, goalVec, action []float64) float64 {
	return w.s.LogProb(concat(obs, goalVec), action)
}
