package layers

import (
	"github.com/pkg/errors"

	"github.com/t-ae/realness-gan/tensor"
	"github.com/t-ae/realness-gan/utils"
)

// Upsample2D performs nearest-neighbor upsampling of an NCHW batch by an
// integer factor.
type Upsample2D struct {
	factor int
	inDims []int
}

// Upsample returns a nearest-neighbor upsampler with the given factor. It
// panics if factor < 1.
func Upsample(factor int) *Upsample2D {
	if factor < 1 {
		panic(errors.Errorf("Upsample factor must be >= 1 (%d)", factor).Error())
	}

	return &Upsample2D{factor: factor}
}

// Forward repeats every input pixel factor×factor times.
func (u *Upsample2D) Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor {
	batch, ch, inH, inW := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	f := u.factor
	outH, outW := inH*f, inW*f
	u.inDims = x.Dims

	out := tensor.New(batch, ch, outH, outW)
	work := func(bc int) {
		inBase := bc * inH * inW
		outBase := bc * outH * outW
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				out.Data[outBase+oh*outW+ow] = x.Data[inBase+(oh/f)*inW+ow/f]
			}
		}
	}
	utils.MultiThread(0, batch*ch, work, 1, 1)

	return out
}

// Backward sums each factor×factor fan-out back onto its source pixel.
func (u *Upsample2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	batch, ch, inH, inW := u.inDims[0], u.inDims[1], u.inDims[2], u.inDims[3]
	f := u.factor
	outH, outW := inH*f, inW*f

	gradIn := tensor.New(u.inDims...)
	work := func(bc int) {
		inBase := bc * inH * inW
		outBase := bc * outH * outW
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				gradIn.Data[inBase+(oh/f)*inW+ow/f] += grad.Data[outBase+oh*outW+ow]
			}
		}
	}
	utils.MultiThread(0, batch*ch, work, 1, 1)

	return gradIn
}

func (u *Upsample2D) Params() [][]float64 { return nil }
func (u *Upsample2D) Grads() [][]float64  { return nil }

// AvgPool2D halves both spatial dimensions of an NCHW batch by averaging
// non-overlapping 2×2 windows.
type AvgPool2D struct {
	inDims []int
}

// AvgPool returns a 2×2, stride-2 average pooling layer.
func AvgPool() *AvgPool2D {
	return &AvgPool2D{}
}

// Forward averages each 2×2 window. The spatial dimensions must be even.
func (p *AvgPool2D) Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor {
	batch, ch, inH, inW := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	outH, outW := inH/2, inW/2
	p.inDims = x.Dims

	out := tensor.New(batch, ch, outH, outW)
	work := func(bc int) {
		inBase := bc * inH * inW
		outBase := bc * outH * outW
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				sum := x.Data[inBase+(2*oh)*inW+2*ow] +
					x.Data[inBase+(2*oh)*inW+2*ow+1] +
					x.Data[inBase+(2*oh+1)*inW+2*ow] +
					x.Data[inBase+(2*oh+1)*inW+2*ow+1]
				out.Data[outBase+oh*outW+ow] = sum / 4
			}
		}
	}
	utils.MultiThread(0, batch*ch, work, 1, 1)

	return out
}

// Backward spreads each output gradient evenly over its 2×2 window.
func (p *AvgPool2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	batch, ch, inH, inW := p.inDims[0], p.inDims[1], p.inDims[2], p.inDims[3]
	outH, outW := inH/2, inW/2

	gradIn := tensor.New(p.inDims...)
	work := func(bc int) {
		inBase := bc * inH * inW
		outBase := bc * outH * outW
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				g := grad.Data[outBase+oh*outW+ow] / 4
				gradIn.Data[inBase+(2*oh)*inW+2*ow] = g
				gradIn.Data[inBase+(2*oh)*inW+2*ow+1] = g
				gradIn.Data[inBase+(2*oh+1)*inW+2*ow] = g
				gradIn.Data[inBase+(2*oh+1)*inW+2*ow+1] = g
			}
		}
	}
	utils.MultiThread(0, batch*ch, work, 1, 1)

	return gradIn
}

func (p *AvgPool2D) Params() [][]float64 { return nil }
func (p *AvgPool2D) Grads() [][]float64  { return nil }
