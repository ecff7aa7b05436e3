package policy

import (
	"math"
	"math/rand"

	"goal-conditioned-hrl/internal/nn"
)

// Critic is a Q-function over concatenated (observation, action) inputs.
type Critic struct {
	net   *nn.MLP
	obDim int
	acDim int
}

// NewCritic builds a critic for the given input dimensions.
func NewCritic(obDim, acDim int, layers []int, layerNorm bool, rng *rand.Rand) *Critic {
	sizes := append(append([]int{obDim + acDim}, layers...), 1)
	return &Critic{net: nn.NewMLP(sizes, nn.Tanh, layerNorm, rng), obDim: obDim, acDim: acDim}
}

// Q returns the estimated action value.
func (c *Critic) Q(obs, action []float64) float64 {
	return c.net.Forward(concat(obs, action))[0]
}

type criticTape struct{ tape *nn.Tape }

// qTape returns the value and a tape for backward.
func (c *Critic) qTape(obs, action []float64) (float64, *criticTape) {
	out, tape := c.net.ForwardTape(concat(obs, action))
	return out[0], &criticTape{tape: tape}
}

// backward accumulates parameter gradients for dL/dQ and returns the
// gradients with respect to the observation and action inputs.
func (c *Critic) backward(t *criticTape, dQ float64, g *nn.Grads) (dObs, dAction []float64) {
	dIn := c.net.Backward(t.tape, []float64{dQ}, g)
	return dIn[:c.obDim], dIn[c.obDim:]
}

// inputGrad returns dQ/d(obs), dQ/d(action) without accumulating parameter
// gradients. The connected-gradients coupling differentiates the worker
// critic through its goal input this way.
func (c *Critic) inputGrad(obs, action []float64) (dObs, dAction []float64) {
	_, tape := c.net.ForwardTape(concat(obs, action))
	dIn := c.net.InputGrad(tape, []float64{1})
	return dIn[:c.obDim], dIn[c.obDim:]
}

func concat(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// criticLoss returns the per-sample loss and its derivative with respect
// to the prediction, for either squared error or Huber loss.
func criticLoss(pred, target float64, huber bool) (loss, dPred float64) {
	diff := pred - target
	if !huber {
		return 0.5 * diff * diff, diff
	}
	const delta = 1.0
	if math.Abs(diff) <= delta {
		return 0.5 * diff * diff, diff
	}
	return delta * (math.Abs(diff) - 0.5*delta), delta * sign(diff)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
