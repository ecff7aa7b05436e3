package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam is a per-network Adam optimizer with the usual default moments.
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int

	mW, vW []*mat.Dense
	mB, vB []*mat.VecDense
}

// NewAdam creates an optimizer for the given network.
func NewAdam(m *MLP, lr float64) *Adam {
	a := &Adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
	for l, w := range m.weights {
		rows, cols := w.Dims()
		a.mW = append(a.mW, mat.NewDense(rows, cols, nil))
		a.vW = append(a.vW, mat.NewDense(rows, cols, nil))
		a.mB = append(a.mB, mat.NewVecDense(m.biases[l].Len(), nil))
		a.vB = append(a.vB, mat.NewVecDense(m.biases[l].Len(), nil))
	}
	return a
}

// Step applies one Adam update to the network parameters. The caller is
// responsible for checking gradient finiteness beforehand.
func (a *Adam) Step(m *MLP, g *Grads) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))

	for l := range m.weights {
		rows, cols := m.weights[l].Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				grad := g.W[l].At(i, j)
				mo := a.beta1*a.mW[l].At(i, j) + (1-a.beta1)*grad
				vo := a.beta2*a.vW[l].At(i, j) + (1-a.beta2)*grad*grad
				a.mW[l].Set(i, j, mo)
				a.vW[l].Set(i, j, vo)
				step := a.lr * (mo / c1) / (math.Sqrt(vo/c2) + a.eps)
				m.weights[l].Set(i, j, m.weights[l].At(i, j)-step)
			}
		}
		for i := 0; i < m.biases[l].Len(); i++ {
			grad := g.B[l].AtVec(i)
			mo := a.beta1*a.mB[l].AtVec(i) + (1-a.beta1)*grad
			vo := a.beta2*a.vB[l].AtVec(i) + (1-a.beta2)*grad*grad
			a.mB[l].SetVec(i, mo)
			a.vB[l].SetVec(i, vo)
			step := a.lr * (mo / c1) / (math.Sqrt(vo/c2) + a.eps)
			m.biases[l].SetVec(i, m.biases[l].AtVec(i)-step)
		}
	}
}
