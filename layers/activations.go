package layers

import (
	"math"

	"github.com/t-ae/realness-gan/tensor"
)

// ReLU2D is the elementwise rectifier.
type ReLU2D struct {
	in *tensor.Tensor
}

func ReLU() *ReLU2D {
	return &ReLU2D{}
}

func (r *ReLU2D) Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor {
	r.in = x
	out := tensor.New(x.Dims...)
	for i, v := range x.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}

	return out
}

func (r *ReLU2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	gradIn := tensor.New(grad.Dims...)
	for i, v := range r.in.Data {
		if v > 0 {
			gradIn.Data[i] = grad.Data[i]
		}
	}

	return gradIn
}

func (r *ReLU2D) Params() [][]float64 { return nil }
func (r *ReLU2D) Grads() [][]float64  { return nil }

// LeakyReLU2D is the elementwise leaky rectifier.
type LeakyReLU2D struct {
	alpha float64
	in    *tensor.Tensor
}

// LeakyReLU returns a leaky rectifier with the given negative-side slope.
func LeakyReLU(alpha float64) *LeakyReLU2D {
	return &LeakyReLU2D{alpha: alpha}
}

func (l *LeakyReLU2D) Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor {
	l.in = x
	out := tensor.New(x.Dims...)
	for i, v := range x.Data {
		if v > 0 {
			out.Data[i] = v
		} else {
			out.Data[i] = l.alpha * v
		}
	}

	return out
}

func (l *LeakyReLU2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	gradIn := tensor.New(grad.Dims...)
	for i, v := range l.in.Data {
		if v > 0 {
			gradIn.Data[i] = grad.Data[i]
		} else {
			gradIn.Data[i] = l.alpha * grad.Data[i]
		}
	}

	return gradIn
}

func (l *LeakyReLU2D) Params() [][]float64 { return nil }
func (l *LeakyReLU2D) Grads() [][]float64  { return nil }

// Tanh2D is the elementwise hyperbolic tangent; the generator's output
// projection uses it to land pixels in [-1, 1].
type Tanh2D struct {
	out *tensor.Tensor
}

func Tanh() *Tanh2D {
	return &Tanh2D{}
}

func (t *Tanh2D) Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor {
	out := tensor.New(x.Dims...)
	for i, v := range x.Data {
		out.Data[i] = math.Tanh(v)
	}

	t.out = out
	return out
}

func (t *Tanh2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	gradIn := tensor.New(grad.Dims...)
	for i, y := range t.out.Data {
		gradIn.Data[i] = grad.Data[i] * (1 - y*y)
	}

	return gradIn
}

func (t *Tanh2D) Params() [][]float64 { return nil }
func (t *Tanh2D) Grads() [][]float64  { return nil }
