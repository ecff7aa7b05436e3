// Package nn provides the small feedforward networks, gradients, and
// optimizer the actor-critic policies are built on.
package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Activation selects the hidden-layer nonlinearity.
type Activation int

const (
	// Tanh is the default hidden activation.
	Tanh Activation = iota
	// ReLU rectified linear activation.
	ReLU
)

const lnEps = 1e-5

// MLP is a fully connected network with a linear output layer. The forward
// pass can record a tape so that gradients with respect to both parameters
// and inputs can be computed, which the deterministic policy gradient and
// the connected-gradients term both need.
type MLP struct {
	sizes     []int
	weights   []*mat.Dense // layer l: sizes[l+1] x sizes[l]
	biases    []*mat.VecDense
	hidden    Activation
	layerNorm bool
}

// NewMLP builds a network with the given layer sizes (input, hidden...,
// output). Hidden weights use fan-in scaled uniform init; the output layer
// uses a small uniform init so initial policy outputs stay near zero.
func NewMLP(sizes []int, hidden Activation, layerNorm bool, rng *rand.Rand) *MLP {
	m := &MLP{
		sizes:     append([]int(nil), sizes...),
		hidden:    hidden,
		layerNorm: layerNorm,
	}
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		bound := 1.0 / math.Sqrt(float64(in))
		if l == len(sizes)-2 {
			bound = 3e-3
		}
		w := mat.NewDense(out, in, nil)
		for i := 0; i < out; i++ {
			for j := 0; j < in; j++ {
				w.Set(i, j, (rng.Float64()*2-1)*bound)
			}
		}
		b := mat.NewVecDense(out, nil)
		m.weights = append(m.weights, w)
		m.biases = append(m.biases, b)
	}
	return m
}

// Tape records the intermediate activations of one forward pass.
type Tape struct {
	inputs [][]float64 // input to each layer
	pre    [][]float64 // affine outputs
	normed [][]float64 // after layer norm (nil when disabled)
	acts   [][]float64 // post-activation outputs
	means  []float64
	stds   []float64
}

// Forward runs the network without recording a tape.
func (m *MLP) Forward(x []float64) []float64 {
	out, _ := m.forward(x, false)
	return out
}

// ForwardTape runs the network and records a tape for Backward.
func (m *MLP) ForwardTape(x []float64) ([]float64, *Tape) {
	return m.forward(x, true)
}

func (m *MLP) forward(x []float64, record bool) ([]float64, *Tape) {
	var tape *Tape
	if record {
		tape = &Tape{}
	}
	cur := x
	last := len(m.weights) - 1
	for l, w := range m.weights {
		z := affine(w, m.biases[l], cur)
		if record {
			tape.inputs = append(tape.inputs, cur)
			tape.pre = append(tape.pre, z)
		}
		if l == last {
			if record {
				tape.normed = append(tape.normed, nil)
				tape.acts = append(tape.acts, z)
				tape.means = append(tape.means, 0)
				tape.stds = append(tape.stds, 0)
			}
			cur = z
			continue
		}
		h := z
		var mean, std float64
		if m.layerNorm {
			h, mean, std = layerNorm(z)
		}
		a := activate(h, m.hidden)
		if record {
			tape.normed = append(tape.normed, h)
			tape.acts = append(tape.acts, a)
			tape.means = append(tape.means, mean)
			tape.stds = append(tape.stds, std)
		}
		cur = a
	}
	return cur, tape
}

// Backward accumulates parameter gradients for one sample into g given the
// gradient of the loss with respect to the network output, and returns the
// gradient with respect to the input.
func (m *MLP) Backward(tape *Tape, gradOut []float64, g *Grads) []float64 {
	delta := append([]float64(nil), gradOut...)
	for l := len(m.weights) - 1; l >= 0; l-- {
		if l != len(m.weights)-1 {
			// Through the activation.
			delta = activateGrad(delta, tape.acts[l], tape.normed[l], m.hidden)
			if m.layerNorm {
				delta = layerNormGrad(delta, tape.normed[l], tape.stds[l])
			}
		}

		// Parameter gradients: dW = delta x^T, db = delta.
		w := m.weights[l]
		rows, cols := w.Dims()
		in := tape.inputs[l]
		gw := g.W[l]
		gb := g.B[l]
		for i := 0; i < rows; i++ {
			gb.SetVec(i, gb.AtVec(i)+delta[i])
			for j := 0; j < cols; j++ {
				gw.Set(i, j, gw.At(i, j)+delta[i]*in[j])
			}
		}

		// Input gradient: W^T delta.
		next := make([]float64, cols)
		for j := 0; j < cols; j++ {
			var s float64
			for i := 0; i < rows; i++ {
				s += w.At(i, j) * delta[i]
			}
			next[j] = s
		}
		delta = next
	}
	return delta
}

// InputGrad returns only the gradient of the output projection gradOut with
// respect to the input, without touching parameter gradients.
func (m *MLP) InputGrad(tape *Tape, gradOut []float64) []float64 {
	scratch := NewGrads(m)
	return m.Backward(tape, gradOut, scratch)
}

func affine(w *mat.Dense, b *mat.VecDense, x []float64) []float64 {
	rows, cols := w.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		s := b.AtVec(i)
		for j := 0; j < cols; j++ {
			s += w.At(i, j) * x[j]
		}
		out[i] = s
	}
	return out
}

func activate(z []float64, act Activation) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		switch act {
		case ReLU:
			out[i] = math.Max(0, v)
		default:
			out[i] = math.Tanh(v)
		}
	}
	return out
}

// activateGrad maps the gradient through the activation. a holds the
// post-activation values, h the pre-activation ones.
func activateGrad(delta, a, h []float64, act Activation) []float64 {
	out := make([]float64, len(delta))
	for i := range delta {
		switch act {
		case ReLU:
			if h[i] > 0 {
				out[i] = delta[i]
			}
		default:
			out[i] = delta[i] * (1 - a[i]*a[i])
		}
	}
	return out
}

// layerNorm normalizes z to zero mean and unit variance (no learned gain).
func layerNorm(z []float64) ([]float64, float64, float64) {
	n := float64(len(z))
	var mean float64
	for _, v := range z {
		mean += v
	}
	mean /= n
	var variance float64
	for _, v := range z {
		d := v - mean
		variance += d * d
	}
	variance /= n
	std := math.Sqrt(variance + lnEps)
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = (v - mean) / std
	}
	return out, mean, std
}

// layerNormGrad maps dL/dy back to dL/dz for y = (z - mean)/std:
// dz = (dy - mean(dy) - y * mean(dy*y)) / std.
func layerNormGrad(dy, y []float64, std float64) []float64 {
	n := float64(len(dy))
	var meanDy, meanDyY float64
	for i := range dy {
		meanDy += dy[i]
		meanDyY += dy[i] * y[i]
	}
	meanDy /= n
	meanDyY /= n
	out := make([]float64, len(dy))
	for i := range dy {
		out[i] = (dy[i] - meanDy - y[i]*meanDyY) / std
	}
	return out
}
