package layers

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/t-ae/realness-gan/tensor"
)

// Softmax2D normalizes each row of a [B, N] matrix into a probability
// distribution over the outcome axis.
type Softmax2D struct {
	out *tensor.Tensor
}

func Softmax() *Softmax2D {
	return &Softmax2D{}
}

func (s *Softmax2D) Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor {
	out := tensor.New(x.Dims...)
	for b := 0; b < x.Dim(0); b++ {
		in := x.Row(b)
		row := out.Row(b)

		max := floats.Max(in)
		for i, v := range in {
			row[i] = math.Exp(v - max)
		}
		floats.Scale(1/floats.Sum(row), row)
	}

	s.out = out
	return out
}

// Backward applies the softmax Jacobian row by row:
// dx_i = y_i * (g_i - Σ_j g_j y_j).
func (s *Softmax2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	gradIn := tensor.New(grad.Dims...)
	for b := 0; b < grad.Dim(0); b++ {
		g := grad.Row(b)
		y := s.out.Row(b)
		gi := gradIn.Row(b)

		dot := floats.Dot(g, y)
		for i := range gi {
			gi[i] = y[i] * (g[i] - dot)
		}
	}

	return gradIn
}

func (s *Softmax2D) Params() [][]float64 { return nil }
func (s *Softmax2D) Grads() [][]float64  { return nil }
