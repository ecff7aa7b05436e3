// Package policy implements the TD3 and SAC actor-critic update families
// for both levels of the hierarchy, and the coupled manager/worker updater.
package policy

import (
	"math"
	"math/rand"

	"goal-conditioned-hrl/internal/nn"
	"goal-conditioned-hrl/internal/space"
)

const (
	logStdMin = -20
	logStdMax = 2
	logProbEps = 1e-6
)

// DetActor is a deterministic actor: a tanh-squashed MLP scaled to the
// action space bounds.
type DetActor struct {
	net *nn.MLP
	mid []float64
	mag []float64
}

// NewDetActor builds a deterministic actor mapping obDim inputs into the
// action box.
func NewDetActor(obDim int, ac space.Box, layers []int, layerNorm bool, rng *rand.Rand) *DetActor {
	sizes := append(append([]int{obDim}, layers...), ac.Dim())
	return &DetActor{
		net: nn.NewMLP(sizes, nn.Tanh, layerNorm, rng),
		mid: ac.Mid(),
		mag: ac.Magnitude(),
	}
}

// Act returns the policy action for an observation.
func (a *DetActor) Act(obs []float64) []float64 {
	u := a.net.Forward(obs)
	return a.squash(u)
}

type detTape struct {
	u    []float64
	tape *nn.Tape
}

// actTape runs the actor recording intermediates for backward.
func (a *DetActor) actTape(obs []float64) ([]float64, *detTape) {
	u, tape := a.net.ForwardTape(obs)
	return a.squash(u), &detTape{u: u, tape: tape}
}

// backward accumulates parameter gradients given dL/dAction.
func (a *DetActor) backward(t *detTape, dAction []float64, g *nn.Grads) {
	du := make([]float64, len(dAction))
	for i := range dAction {
		th := math.Tanh(t.u[i])
		du[i] = dAction[i] * a.mag[i] * (1 - th*th)
	}
	a.net.Backward(t.tape, du, g)
}

func (a *DetActor) squash(u []float64) []float64 {
	out := make([]float64, len(u))
	for i := range u {
		out[i] = a.mid[i] + a.mag[i]*math.Tanh(u[i])
	}
	return out
}

// LogProb scores an action under the actor approximated as a unit-variance
// Gaussian around its deterministic output. Only relative scores matter for
// the off-policy goal correction argmax, so constants are dropped.
func (a *DetActor) LogProb(obs, action []float64) float64 {
	mean := a.Act(obs)
	var s float64
	for i := range action {
		d := action[i] - mean[i]
		s += d * d
	}
	return -0.5 * s
}

// GaussianActor is a stochastic tanh-squashed Gaussian actor for SAC. The
// network emits the mean and a clipped log standard deviation.
type GaussianActor struct {
	net   *nn.MLP
	mid   []float64
	mag   []float64
	acDim int
}

// NewGaussianActor builds a stochastic actor mapping obDim inputs into the
// action box.
func NewGaussianActor(obDim int, ac space.Box, layers []int, layerNorm bool, rng *rand.Rand) *GaussianActor {
	sizes := append(append([]int{obDim}, layers...), 2*ac.Dim())
	return &GaussianActor{
		net:   nn.NewMLP(sizes, nn.Tanh, layerNorm, rng),
		mid:   ac.Mid(),
		mag:   ac.Magnitude(),
		acDim: ac.Dim(),
	}
}

// gaussSample records one reparameterized draw for backward.
type gaussSample struct {
	mean, logStd, sigma []float64
	eps, u, t           []float64
	action              []float64
	logProb             float64
	tape                *nn.Tape
}

// Sample draws a reparameterized action and its log-probability.
func (a *GaussianActor) Sample(obs []float64, rng *rand.Rand) ([]float64, float64) {
	s := a.sampleTape(obs, rng)
	return s.action, s.logProb
}

// Deterministic returns the squashed mean action, used for evaluation.
func (a *GaussianActor) Deterministic(obs []float64) []float64 {
	out := a.net.Forward(obs)
	action := make([]float64, a.acDim)
	for i := 0; i < a.acDim; i++ {
		action[i] = a.mid[i] + a.mag[i]*math.Tanh(out[i])
	}
	return action
}

func (a *GaussianActor) sampleTape(obs []float64, rng *rand.Rand) *gaussSample {
	out, tape := a.net.ForwardTape(obs)
	s := &gaussSample{
		mean:   out[:a.acDim],
		logStd: make([]float64, a.acDim),
		sigma:  make([]float64, a.acDim),
		eps:    make([]float64, a.acDim),
		u:      make([]float64, a.acDim),
		t:      make([]float64, a.acDim),
		action: make([]float64, a.acDim),
		tape:   tape,
	}
	for i := 0; i < a.acDim; i++ {
		ls := math.Min(math.Max(out[a.acDim+i], logStdMin), logStdMax)
		s.logStd[i] = ls
		s.sigma[i] = math.Exp(ls)
		s.eps[i] = rng.NormFloat64()
		s.u[i] = s.mean[i] + s.sigma[i]*s.eps[i]
		s.t[i] = math.Tanh(s.u[i])
		s.action[i] = a.mid[i] + a.mag[i]*s.t[i]
	}
	s.logProb = a.logProbOf(s)
	return s
}

// logProbOf computes log pi(a|s) for a recorded draw, including the tanh
// and action-scaling change of variables.
func (a *GaussianActor) logProbOf(s *gaussSample) float64 {
	var lp float64
	for i := 0; i < a.acDim; i++ {
		z := (s.u[i] - s.mean[i]) / (s.sigma[i] + logProbEps)
		lp += -0.5*z*z - s.logStd[i] - 0.5*math.Log(2*math.Pi)
		lp -= math.Log(a.mag[i]*(1-s.t[i]*s.t[i]) + logProbEps)
	}
	return lp
}

// LogProb scores an arbitrary executed action under the current policy,
// for off-policy goal correction.
func (a *GaussianActor) LogProb(obs, action []float64) float64 {
	out := a.net.Forward(obs)
	var lp float64
	for i := 0; i < a.acDim; i++ {
		ls := math.Min(math.Max(out[a.acDim+i], logStdMin), logStdMax)
		sigma := math.Exp(ls)
		// Invert the squash: u = atanh((action - mid)/mag), clipped away
		// from the asymptotes.
		norm := (action[i] - a.mid[i]) / a.mag[i]
		norm = math.Min(math.Max(norm, -1+logProbEps), 1-logProbEps)
		u := math.Atanh(norm)
		z := (u - out[i]) / (sigma + logProbEps)
		lp += -0.5*z*z - ls - 0.5*math.Log(2*math.Pi)
		lp -= math.Log(a.mag[i]*(1-norm*norm) + logProbEps)
	}
	return lp
}

// backward accumulates parameter gradients for a recorded draw given
// dL/dAction and dL/dLogProb, chaining through the reparameterized sample.
func (a *GaussianActor) backward(s *gaussSample, dAction []float64, dLogProb float64, g *nn.Grads) {
	dOut := make([]float64, 2*a.acDim)
	for i := 0; i < a.acDim; i++ {
		dti := 1 - s.t[i]*s.t[i]

		// Through the action: da/du = mag * (1 - tanh(u)^2).
		du := dAction[i] * a.mag[i] * dti

		// Through the log-probability. Under reparameterization the
		// Gaussian term reduces to -logStd per dimension; the squash
		// correction depends on u.
		denom := a.mag[i]*dti + logProbEps
		dLogPdu := 2 * s.t[i] * dti * a.mag[i] / denom
		du += dLogProb * dLogPdu

		dOut[i] = du                                  // d/dmean (du/dmean = 1)
		dOut[a.acDim+i] = du*s.sigma[i]*s.eps[i] -    // d/dlogStd via u
			dLogProb                              // d(-logStd)/dlogStd
		if s.logStd[i] <= logStdMin || s.logStd[i] >= logStdMax {
			dOut[a.acDim+i] = 0 // clipped, no gradient
		}
	}
	a.net.Backward(s.tape, dOut, g)
}
