package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Grads accumulates parameter gradients for one network.
type Grads struct {
	W []*mat.Dense
	B []*mat.VecDense
}

// NewGrads returns zeroed gradients shaped like the network parameters.
func NewGrads(m *MLP) *Grads {
	g := &Grads{}
	for l, w := range m.weights {
		rows, cols := w.Dims()
		g.W = append(g.W, mat.NewDense(rows, cols, nil))
		g.B = append(g.B, mat.NewVecDense(m.biases[l].Len(), nil))
	}
	return g
}

// Finite reports whether every gradient entry is a finite number. A false
// result means the optimizer step should be skipped.
func (g *Grads) Finite() bool {
	for l := range g.W {
		rows, cols := g.W[l].Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if !finite(g.W[l].At(i, j)) {
					return false
				}
			}
		}
		for i := 0; i < g.B[l].Len(); i++ {
			if !finite(g.B[l].AtVec(i)) {
				return false
			}
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Finite reports whether v contains only finite numbers.
func Finite(v ...float64) bool {
	for _, x := range v {
		if !finite(x) {
			return false
		}
	}
	return true
}

// Polyak blends the source parameters into m: theta = tau*src + (1-tau)*theta.
// Used only for target networks, which are owned by the updater.
func (m *MLP) Polyak(src *MLP, tau float64) {
	for l := range m.weights {
		rows, cols := m.weights[l].Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				blended := tau*src.weights[l].At(i, j) + (1-tau)*m.weights[l].At(i, j)
				m.weights[l].Set(i, j, blended)
			}
		}
		for i := 0; i < m.biases[l].Len(); i++ {
			blended := tau*src.biases[l].AtVec(i) + (1-tau)*m.biases[l].AtVec(i)
			m.biases[l].SetVec(i, blended)
		}
	}
}

// CopyFrom hard-copies the source parameters into m. Used to initialize
// target networks to match the live ones.
func (m *MLP) CopyFrom(src *MLP) {
	m.Polyak(src, 1)
}
