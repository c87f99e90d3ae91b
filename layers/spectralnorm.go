package layers

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/t-ae/realness-gan/initializers"
)

const normEps = 1e-8

// spectralNorm holds the power-iteration state for one weight tensor. The
// weight is viewed as a 2-D matrix with rows = flattened input dims and
// cols = output channels; the persisted direction vector v has length cols
// and is the only cross-call mutable state of an otherwise stateless
// forward pass.
//
// The host layer stores its weight output-major (cols × rows contiguous),
// which is the transpose of that view; the products below are arranged
// accordingly.
type spectralNorm struct {
	iters int
	rows  int
	cols  int

	v []float64

	// retained from the last apply, for the gradient transform
	u     []float64
	sigma float64
	weff  []float64
}

func newSpectralNorm(iters, rows, cols int) *spectralNorm {
	sn := &spectralNorm{
		iters: iters,
		rows:  rows,
		cols:  cols,
		v:     make([]float64, cols),
		u:     make([]float64, rows),
		weff:  make([]float64, rows*cols),
	}

	gen := initializers.Normal()
	for i := range sn.v {
		sn.v[i] = gen.Gen()
	}
	normalize(sn.v)

	return sn
}

// normalize scales x to unit length, guarding with the shared epsilon. The
// guard keeps the iteration defined for zero vectors; it does not guard the
// final division by sigma, which may legitimately blow up for near-singular
// weights.
func normalize(x []float64) {
	n := math.Sqrt(floats.Dot(x, x) + normEps)
	floats.Scale(1/n, x)
}

// apply runs the power iteration against w and returns w rescaled by the
// estimated largest singular value. The iteration itself carries no
// gradient. The updated v is persisted only when training is true.
func (sn *spectralNorm) apply(w []float64, training bool) []float64 {
	// wm is the output-major weight, i.e. the transpose of the (rows, cols)
	// view the iteration is defined over.
	wm := mat.NewDense(sn.cols, sn.rows, w)

	v := mat.NewVecDense(sn.cols, nil)
	v.CopyVec(mat.NewVecDense(sn.cols, sn.v))
	u := mat.NewVecDense(sn.rows, nil)

	for i := 0; i < sn.iters; i++ {
		// u = normalize(v · Wᵗ), v = normalize(u · W)
		u.MulVec(wm.T(), v)
		normalize(u.RawVector().Data)
		v.MulVec(wm, u)
		normalize(v.RawVector().Data)
	}

	// sigma = u · W · vᵗ
	wu := mat.NewVecDense(sn.cols, nil)
	wu.MulVec(wm, u)
	sigma := mat.Dot(v, wu)

	if training {
		copy(sn.v, v.RawVector().Data)
	}

	copy(sn.u, u.RawVector().Data)
	sn.sigma = sigma

	for i := range w {
		sn.weff[i] = w[i] / sigma
	}

	return sn.weff
}

// gradRaw converts the gradient with respect to the rescaled weight into
// the gradient with respect to the raw weight, treating u and v from the
// last apply as constants:
//
//	dW = (dW̄ - (dW̄ : W̄) u vᵗ) / sigma
//
// The result is written over gradWeff in place.
func (sn *spectralNorm) gradRaw(gradWeff []float64) {
	dot := floats.Dot(gradWeff, sn.weff)
	for c := 0; c < sn.cols; c++ {
		base := c * sn.rows
		for r := 0; r < sn.rows; r++ {
			gradWeff[base+r] = (gradWeff[base+r] - dot*sn.u[r]*sn.v[c]) / sn.sigma
		}
	}
}
