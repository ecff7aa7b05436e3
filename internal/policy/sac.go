package policy

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"goal-conditioned-hrl/internal/config"
	"goal-conditioned-hrl/internal/nn"
	"goal-conditioned-hrl/internal/space"
)

// SACStrategy implements soft actor-critic: twin critics trained against
// an entropy-augmented target, a stochastic tanh-Gaussian actor, and a
// learned entropy temperature tracking a target entropy.
type SACStrategy struct {
	cfg config.Policy
	ac  space.Box

	actor      *GaussianActor
	critics    [2]*Critic
	criticTgts [2]*Critic

	actorOpt   *nn.Adam
	criticOpts [2]*nn.Adam

	// Scalar Adam state for the log temperature.
	logAlpha      float64
	alphaM        float64
	alphaV        float64
	alphaT        int
	targetEntropy float64

	rng    *rand.Rand
	logger *zap.Logger
}

// NewSAC builds a SAC strategy for one policy level. When the config does
// not pin a target entropy, the heuristic -dim(action) is used.
func NewSAC(obDim int, ac space.Box, cfg config.Policy, rng *rand.Rand, logger *zap.Logger) *SACStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SACStrategy{cfg: cfg, ac: ac, rng: rng, logger: logger}
	s.actor = NewGaussianActor(obDim, ac, cfg.Layers, cfg.LayerNorm, rng)
	for i := 0; i < 2; i++ {
		s.critics[i] = NewCritic(obDim, ac.Dim(), cfg.Layers, cfg.LayerNorm, rng)
		s.criticTgts[i] = NewCritic(obDim, ac.Dim(), cfg.Layers, cfg.LayerNorm, rng)
		s.criticTgts[i].net.CopyFrom(s.critics[i].net)
		s.criticOpts[i] = nn.NewAdam(s.critics[i].net, cfg.CriticLR)
	}
	s.actorOpt = nn.NewAdam(s.actor.net, cfg.ActorLR)
	if cfg.TargetEntropy != nil {
		s.targetEntropy = *cfg.TargetEntropy
	} else {
		s.targetEntropy = -float64(ac.Dim())
	}
	return s
}

// Alpha returns the current entropy temperature.
func (s *SACStrategy) Alpha() float64 { return math.Exp(s.logAlpha) }

// Act samples a stochastic behavior action.
func (s *SACStrategy) Act(obs []float64) []float64 {
	action, _ := s.actor.Sample(obs, s.rng)
	return s.ac.Clip(action)
}

// ActDeterministic returns the squashed mean action.
func (s *SACStrategy) ActDeterministic(obs []float64) []float64 {
	return s.actor.Deterministic(obs)
}

// LogProb scores an executed action under the current stochastic policy.
func (s *SACStrategy) LogProb(obs, action []float64) float64 {
	return s.actor.LogProb(obs, action)
}

// UpdateCritics trains both critics against the entropy-augmented target
// built from a fresh next-state sample of the current policy.
func (s *SACStrategy) UpdateCritics(batch []Transition) (float64, bool) {
	n := float64(len(batch))
	alpha := s.Alpha()
	grads := [2]*nn.Grads{nn.NewGrads(s.critics[0].net), nn.NewGrads(s.critics[1].net)}

	var total float64
	for _, tr := range batch {
		aNext, logpNext := s.actor.Sample(tr.NextObs, s.rng)
		qt := math.Min(s.criticTgts[0].Q(tr.NextObs, aNext), s.criticTgts[1].Q(tr.NextObs, aNext))
		target := tr.Reward + s.cfg.Gamma*(1-tr.Done)*(qt-alpha*logpNext)

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

// UpdateActor maximizes Q - alpha*log pi via the reparameterization trick,
// then steps the temperature toward the target entropy.
func (s *SACStrategy) UpdateActor(batch []Transition, extraGrad func(obs, action []float64) []float64) (float64, bool) {
	n := float64(len(batch))
	alpha := s.Alpha()
	g := nn.NewGrads(s.actor.net)

	var total, logpSum float64
	for _, tr := range batch {
		draw := s.actor.sampleTape(tr.Obs, s.rng)
		q0 := s.critics[0].Q(tr.Obs, draw.action)
		q1 := s.critics[1].Q(tr.Obs, draw.action)
		minIdx := 0
		if q1 < q0 {
			minIdx = 1
		}
		minQ := math.Min(q0, q1)
		total += alpha*draw.logProb - minQ
		logpSum += draw.logProb

		_, dAction := s.critics[minIdx].inputGrad(tr.Obs, draw.action)
		dA := make([]float64, len(dAction))
		for i := range dAction {
			dA[i] = -dAction[i] / n
		}
		if extraGrad != nil {
			for i, v := range extraGrad(tr.Obs, draw.action) {
				dA[i] += v / n
			}
		}
		s.actor.backward(draw, dA, alpha/n, g)
	}

	loss := total / n
	if !nn.Finite(loss, logpSum) || !g.Finite() {
		return loss, false
	}
	s.actorOpt.Step(s.actor.net, g)
	s.stepAlpha(logpSum / n)
	return loss, true
}

// stepAlpha runs one scalar Adam step on the log temperature so that alpha
// tracks the target entropy.
func (s *SACStrategy) stepAlpha(meanLogPi float64) {
	grad := -(meanLogPi + s.targetEntropy)
	if !nn.Finite(grad) {
		return
	}
	const beta1, beta2, eps = 0.9, 0.999, 1e-8
	s.alphaT++
	s.alphaM = beta1*s.alphaM + (1-beta1)*grad
	s.alphaV = beta2*s.alphaV + (1-beta2)*grad*grad
	mHat := s.alphaM / (1 - math.Pow(beta1, float64(s.alphaT)))
	vHat := s.alphaV / (1 - math.Pow(beta2, float64(s.alphaT)))
	s.logAlpha -= s.cfg.ActorLR * mHat / (math.Sqrt(vHat) + eps)
}

// TargetUpdate soft-updates the target critics. SAC keeps no target actor.
func (s *SACStrategy) TargetUpdate() {
	for i := 0; i < 2; i++ {
		s.criticTgts[i].net.Polyak(s.critics[i].net, s.cfg.Tau)
	}
}

// Q returns the minimum twin-critic value.
func (s *SACStrategy) Q(obs, action []float64) float64 {
	return math.Min(s.critics[0].Q(obs, action), s.critics[1].Q(obs, action))
}

// CriticObsGrad returns the first critic's gradient with respect to the
// observation input.
func (s *SACStrategy) CriticObsGrad(obs, action []float64) []float64 {
	dObs, _ := s.critics[0].inputGrad(obs, action)
	return dObs
}
