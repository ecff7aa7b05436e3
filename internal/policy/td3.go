package policy

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"goal-conditioned-hrl/internal/config"
	"goal-conditioned-hrl/internal/nn"
	"goal-conditioned-hrl/internal/space"
)

// TD3Strategy implements twin delayed deterministic policy gradient: twin
// critics trained against a smoothed target policy, a delayed deterministic
// actor, and Polyak-averaged target copies owned by this strategy.
type TD3Strategy struct {
	cfg config.Policy
	ac  space.Box

	actor       *DetActor
	actorTarget *DetActor
	critics     [2]*Critic
	criticTgts  [2]*Critic

	actorOpt   *nn.Adam
	criticOpts [2]*nn.Adam

	rng    *rand.Rand
	logger *zap.Logger
}

// NewTD3 builds a TD3 strategy for one policy level.
func NewTD3(obDim int, ac space.Box, cfg config.Policy, rng *rand.Rand, logger *zap.Logger) *TD3Strategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TD3Strategy{cfg: cfg, ac: ac, rng: rng, logger: logger}
	s.actor = NewDetActor(obDim, ac, cfg.Layers, cfg.LayerNorm, rng)
	s.actorTarget = NewDetActor(obDim, ac, cfg.Layers, cfg.LayerNorm, rng)
	s.actorTarget.net.CopyFrom(s.actor.net)
	for i := 0; i < 2; i++ {
		s.critics[i] = NewCritic(obDim, ac.Dim(), cfg.Layers, cfg.LayerNorm, rng)
		s.criticTgts[i] = NewCritic(obDim, ac.Dim(), cfg.Layers, cfg.LayerNorm, rng)
		s.criticTgts[i].net.CopyFrom(s.critics[i].net)
		s.criticOpts[i] = nn.NewAdam(s.critics[i].net, cfg.CriticLR)
	}
	s.actorOpt = nn.NewAdam(s.actor.net, cfg.ActorLR)
	return s
}

// Act returns the policy action with Gaussian exploration noise, clipped
// to the action space.
func (s *TD3Strategy) Act(obs []float64) []float64 {
	action := s.actor.Act(obs)
	mag := s.ac.Magnitude()
	for i := range action {
		action[i] += s.rng.NormFloat64() * s.cfg.Noise * mag[i]
	}
	return s.ac.Clip(action)
}

// ActDeterministic returns the noise-free policy action.
func (s *TD3Strategy) ActDeterministic(obs []float64) []float64 {
	return s.actor.Act(obs)
}

// LogProb scores an action under the deterministic actor approximated as a
// fixed-variance Gaussian.
func (s *TD3Strategy) LogProb(obs, action []float64) float64 {
	return s.actor.LogProb(obs, action)
}

// UpdateCritics trains both critics against the min target-critic value of
// the smoothed target action.
func (s *TD3Strategy) UpdateCritics(batch []Transition) (float64, bool) {
	n := float64(len(batch))
	grads := [2]*nn.Grads{nn.NewGrads(s.critics[0].net), nn.NewGrads(s.critics[1].net)}
	mag := s.ac.Magnitude()

	var total float64
	for _, tr := range batch {
		// Target policy smoothing: clipped Gaussian noise on the target
		// action, then clipped to the action space.
		aNext := s.actorTarget.Act(tr.NextObs)
		for i := range aNext {
			noise := s.rng.NormFloat64() * s.cfg.TargetPolicyNoise * mag[i]
			clip := s.cfg.TargetNoiseClip * mag[i]
			aNext[i] += math.Min(math.Max(noise, -clip), clip)
		}
		aNext = s.ac.Clip(aNext)

		qt := math.Min(s.criticTgts[0].Q(tr.NextObs, aNext), s.criticTgts[1].Q(tr.NextObs, aNext))
		target := tr.Reward + s.cfg.Gamma*(1-tr.Done)*qt

		for j := 0; j < 2; j++ {
			pred, tape := s.critics[j].qTape(tr.Obs, tr.Action)
			l, dPred := criticLoss(pred, target, s.cfg.UseHuber)
			total += l
			s.critics[j].backward(tape, dPred/n, grads[j])
		}
	}

	loss := total / n
	if !nn.Finite(loss) || !grads[0].Finite() || !grads[1].Finite() {
		return loss, false
	}
	for j := 0; j < 2; j++ {
		s.criticOpts[j].Step(s.critics[j].net, grads[j])
	}
	return loss, true
}

// UpdateActor ascends the first critic via the deterministic policy
// gradient, plus any extra action-space gradient supplied by the caller.
func (s *TD3Strategy) UpdateActor(batch []Transition, extraGrad func(obs, action []float64) []float64) (float64, bool) {
	n := float64(len(batch))
	g := nn.NewGrads(s.actor.net)

	var total float64
	for _, tr := range batch {
		action, tape := s.actor.actTape(tr.Obs)
		q := s.critics[0].Q(tr.Obs, action)
		total += -q

		_, dAction := s.critics[0].inputGrad(tr.Obs, action)
		dA := make([]float64, len(dAction))
		for i := range dAction {
			dA[i] = -dAction[i] / n
		}
		if extraGrad != nil {
			for i, v := range extraGrad(tr.Obs, action) {
				dA[i] += v / n
			}
		}
		s.actor.backward(tape, dA, g)
	}

	loss := total / n
	if !nn.Finite(loss) || !g.Finite() {
		return loss, false
	}
	s.actorOpt.Step(s.actor.net, g)
	return loss, true
}

// TargetUpdate soft-updates the target actor and critics.
func (s *TD3Strategy) TargetUpdate() {
	s.actorTarget.net.Polyak(s.actor.net, s.cfg.Tau)
	for i := 0; i < 2; i++ {
		s.criticTgts[i].net.Polyak(s.critics[i].net, s.cfg.Tau)
	}
}

// Q returns the minimum twin-critic value.
func (s *TD3Strategy) Q(obs, action []float64) float64 {
	return math.Min(s.critics[0].Q(obs, action), s.critics[1].Q(obs, action))
}

// CriticObsGrad returns the first critic's gradient with respect to the
// observation input.
func (s *TD3Strategy) CriticObsGrad(obs, action []float64) []float64 {
	dObs, _ := s.critics[0].inputGrad(obs, action)
	return dObs
}
