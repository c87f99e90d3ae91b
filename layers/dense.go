package layers

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/t-ae/realness-gan/initializers"
	"github.com/t-ae/realness-gan/tensor"
)

// Dense is a fully-connected layer over [B, in] inputs. Weights are stored
// output-major: [out, in] flattened.
type Dense struct {
	in      int
	out     int
	hasBias bool

	sn *spectralNorm

	w  []float64
	b  []float64
	gw []float64
	gb []float64

	// cached by Forward for Backward
	x    *tensor.Tensor
	weff []float64
}

// NewDense returns a dense layer mapping 'in' values to 'out' values per
// sample, He-initialized, with biases. It panics if either size is < 1.
func NewDense(in, out int) *Dense {
	if in < 1 || out < 1 {
		panic(errors.Errorf("Dense sizes must be >= 1 (%d, %d)", in, out).Error())
	}

	d := &Dense{
		in:      in,
		out:     out,
		hasBias: true,
		w:       make([]float64, out*in),
		b:       make([]float64, out),
	}
	d.gw = make([]float64, len(d.w))
	d.gb = make([]float64, len(d.b))
	d.Init(initializers.HeNormal(in))

	return d
}

// NoBias removes the bias parameters.
func (d *Dense) NoBias() *Dense {
	d.hasBias = false
	d.b = d.b[:0]
	d.gb = d.gb[:0]
	return d
}

// Init refills the weights from the given RNG. Biases stay zero.
func (d *Dense) Init(gen initializers.RNG) *Dense {
	for i := range d.w {
		d.w[i] = gen.Gen()
	}

	return d
}

// SpectralNorm enables spectral normalization of the weight with the given
// number of power iterations per forward pass.
func (d *Dense) SpectralNorm(iters int) *Dense {
	d.sn = newSpectralNorm(iters, d.in, d.out)
	return d
}

// Forward computes x·Wᵗ + b for x of shape [B, in] (higher-rank inputs are
// accepted and treated as [B, rest]).
func (d *Dense) Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor {
	batch := x.Dim(0)
	if x.RowSize() != d.in {
		panic(errors.Errorf("Dense input size mismatch (%d != %d)", x.RowSize(), d.in).Error())
	}

	w := d.w
	if d.sn != nil {
		w = d.sn.apply(d.w, mode == Train)
	}

	d.x = x
	d.weff = w

	out := tensor.New(batch, d.out)
	xm := mat.NewDense(batch, d.in, x.Data)
	wm := mat.NewDense(d.out, d.in, w)
	om := mat.NewDense(batch, d.out, out.Data)
	om.Mul(xm, wm.T())

	if d.hasBias {
		for b := 0; b < batch; b++ {
			row := out.Row(b)
			for o := range row {
				row[o] += d.b[o]
			}
		}
	}

	return out
}

// Backward pushes grad [B, out] back through the layer.
func (d *Dense) Backward(grad *tensor.Tensor) *tensor.Tensor {
	batch := grad.Dim(0)

	gm := mat.NewDense(batch, d.out, grad.Data)
	xm := mat.NewDense(batch, d.in, d.x.Data)

	gwm := mat.NewDense(d.out, d.in, d.gw)
	gwm.Mul(gm.T(), xm)
	if d.sn != nil {
		d.sn.gradRaw(d.gw)
	}

	if d.hasBias {
		for o := range d.gb {
			d.gb[o] = 0
		}
		for b := 0; b < batch; b++ {
			row := grad.Row(b)
			for o := range row {
				d.gb[o] += row[o]
			}
		}
	}

	gradIn := tensor.New(d.x.Dims...)
	wm := mat.NewDense(d.out, d.in, d.weff)
	gim := mat.NewDense(batch, d.in, gradIn.Data)
	gim.Mul(gm, wm)

	return gradIn
}

func (d *Dense) Params() [][]float64 {
	if !d.hasBias {
		return [][]float64{d.w}
	}

	return [][]float64{d.w, d.b}
}

func (d *Dense) Grads() [][]float64 {
	if !d.hasBias {
		return [][]float64{d.gw}
	}

	return [][]float64{d.gw, d.gb}
}
