package layers

import (
	"github.com/pkg/errors"

	"github.com/t-ae/realness-gan/initializers"
	"github.com/t-ae/realness-gan/tensor"
	"github.com/t-ae/realness-gan/utils"
)

// Conv2D is a batched NCHW 2-D convolution. Weights are stored output-major:
// [outChannels, inChannels, kernel, kernel] flattened.
//
// Conv returns a usable layer immediately; the chained setters further
// customize it and can be called until the first Forward.
type Conv2D struct {
	inChannels  int
	outChannels int
	kernel      int
	stride      int
	pad         int
	hasBias     bool

	sn *spectralNorm

	w  []float64
	b  []float64
	gw []float64
	gb []float64

	// cached by Forward for Backward
	in   *tensor.Tensor
	weff []float64
	outH int
	outW int
}

// Conv returns a 2-D convolution with the given channel counts and square
// kernel size, weights He-initialized, stride 1, no padding, with biases.
// Conv panics if any argument is less than 1; layer shapes are fixed by the
// network configuration before construction.
func Conv(inChannels, outChannels, kernel int) *Conv2D {
	if inChannels < 1 || outChannels < 1 || kernel < 1 {
		panic(errors.Errorf("Conv dimensions must be >= 1 (%d, %d, %d)", inChannels, outChannels, kernel).Error())
	}

	c := &Conv2D{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernel:      kernel,
		stride:      1,
		pad:         0,
		hasBias:     true,
	}

	c.w = make([]float64, outChannels*inChannels*kernel*kernel)
	c.b = make([]float64, outChannels)
	c.gw = make([]float64, len(c.w))
	c.gb = make([]float64, len(c.b))
	c.Init(initializers.HeNormal(inChannels * kernel * kernel))

	return c
}

// Stride sets the space between filter applications.
func (c *Conv2D) Stride(s int) *Conv2D {
	c.stride = s
	return c
}

// Pad sets the zero padding applied to both ends of each spatial dimension.
func (c *Conv2D) Pad(p int) *Conv2D {
	c.pad = p
	return c
}

// NoBias removes the bias parameters.
func (c *Conv2D) NoBias() *Conv2D {
	c.hasBias = false
	c.b = c.b[:0]
	c.gb = c.gb[:0]
	return c
}

// Init refills the weights from the given RNG. Biases stay zero.
func (c *Conv2D) Init(gen initializers.RNG) *Conv2D {
	for i := range c.w {
		c.w[i] = gen.Gen()
	}

	return c
}

// SpectralNorm enables spectral normalization of the weight with the given
// number of power iterations per forward pass. When disabled (the default),
// Forward uses the raw weight tensor unchanged.
func (c *Conv2D) SpectralNorm(iters int) *Conv2D {
	rows := c.inChannels * c.kernel * c.kernel
	c.sn = newSpectralNorm(iters, rows, c.outChannels)
	return c
}

func (c *Conv2D) outSize(inH, inW int) (int, int) {
	outH := (inH+2*c.pad-c.kernel)/c.stride + 1
	outW := (inW+2*c.pad-c.kernel)/c.stride + 1
	return outH, outW
}

// Forward computes the convolution of x, shape [B, inChannels, H, W]. In
// Train mode a spectrally normalized layer also persists its updated
// direction vector.
func (c *Conv2D) Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor {
	batch, inH, inW := x.Dim(0), x.Dim(2), x.Dim(3)
	outH, outW := c.outSize(inH, inW)

	w := c.w
	if c.sn != nil {
		w = c.sn.apply(c.w, mode == Train)
	}

	c.in = x
	c.weff = w
	c.outH, c.outW = outH, outW

	out := tensor.New(batch, c.outChannels, outH, outW)
	outPlane := outH * outW
	inPlane := inH * inW
	k := c.kernel
	filt := c.inChannels * k * k

	f := func(v int) {
		b := v / (c.outChannels * outPlane)
		oc := (v / outPlane) % c.outChannels
		oh := (v % outPlane) / outW
		ow := v % outW

		var sum float64
		if c.hasBias {
			sum = c.b[oc]
		}

		for ic := 0; ic < c.inChannels; ic++ {
			for kh := 0; kh < k; kh++ {
				ih := oh*c.stride + kh - c.pad
				if ih < 0 || ih >= inH {
					continue
				}

				for kw := 0; kw < k; kw++ {
					iw := ow*c.stride + kw - c.pad
					if iw < 0 || iw >= inW {
						continue
					}

					in := x.Data[b*c.inChannels*inPlane+ic*inPlane+ih*inW+iw]
					sum += in * w[oc*filt+ic*k*k+kh*k+kw]
				}
			}
		}

		out.Data[v] = sum
	}

	opsPerThread, threadsPerCPU := outPlane, 1
	utils.MultiThread(0, len(out.Data), f, opsPerThread, threadsPerCPU)

	return out
}

// Backward pushes grad (shape of the last Forward's output) back through
// the convolution. The weight gradients are computed against the effective
// weight used in the forward pass and, for a spectrally normalized layer,
// converted to raw-weight gradients afterwards.
func (c *Conv2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	batch, inH, inW := c.in.Dim(0), c.in.Dim(2), c.in.Dim(3)
	outH, outW := c.outH, c.outW
	outPlane := outH * outW
	inPlane := inH * inW
	k := c.kernel
	filt := c.inChannels * k * k

	for i := range c.gw {
		c.gw[i] = 0
	}
	for i := range c.gb {
		c.gb[i] = 0
	}

	// weight and bias gradients, one goroutine per output channel so the
	// shared filter accumulators stay race-free
	gradParams := func(oc int) {
		for b := 0; b < batch; b++ {
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					g := grad.Data[b*c.outChannels*outPlane+oc*outPlane+oh*outW+ow]
					if c.hasBias {
						c.gb[oc] += g
					}

					for ic := 0; ic < c.inChannels; ic++ {
						for kh := 0; kh < k; kh++ {
							ih := oh*c.stride + kh - c.pad
							if ih < 0 || ih >= inH {
								continue
							}

							for kw := 0; kw < k; kw++ {
								iw := ow*c.stride + kw - c.pad
								if iw < 0 || iw >= inW {
									continue
								}

								in := c.in.Data[b*c.inChannels*inPlane+ic*inPlane+ih*inW+iw]
								c.gw[oc*filt+ic*k*k+kh*k+kw] += g * in
							}
						}
					}
				}
			}
		}
	}
	utils.MultiThread(0, c.outChannels, gradParams, 1, 1)

	if c.sn != nil {
		c.sn.gradRaw(c.gw)
	}

	// input gradients, one goroutine per sample
	gradIn := tensor.New(c.in.Dims...)
	gradInput := func(b int) {
		for oc := 0; oc < c.outChannels; oc++ {
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					g := grad.Data[b*c.outChannels*outPlane+oc*outPlane+oh*outW+ow]

					for ic := 0; ic < c.inChannels; ic++ {
						for kh := 0; kh < k; kh++ {
							ih := oh*c.stride + kh - c.pad
							if ih < 0 || ih >= inH {
								continue
							}

							for kw := 0; kw < k; kw++ {
								iw := ow*c.stride + kw - c.pad
								if iw < 0 || iw >= inW {
									continue
								}

								gradIn.Data[b*c.inChannels*inPlane+ic*inPlane+ih*inW+iw] +=
									g * c.weff[oc*filt+ic*k*k+kh*k+kw]
							}
						}
					}
				}
			}
		}
	}
	utils.MultiThread(0, batch, gradInput, 1, 1)

	return gradIn
}

// RawWeights returns the stored (pre-normalization) weight slice.
func (c *Conv2D) RawWeights() []float64 {
	return c.w
}

// EffectiveWeights returns the weight tensor the last Forward actually
// applied: the raw weights, or the spectrally rescaled copy.
func (c *Conv2D) EffectiveWeights() []float64 {
	if c.weff == nil {
		return c.w
	}

	return c.weff
}

func (c *Conv2D) Params() [][]float64 {
	if !c.hasBias {
		return [][]float64{c.w}
	}

	return [][]float64{c.w, c.b}
}

func (c *Conv2D) Grads() [][]float64 {
	if !c.hasBias {
		return [][]float64{c.gw}
	}

	return [][]float64{c.gw, c.gb}
}
