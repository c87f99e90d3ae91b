package layers

import (
	"math"

	"github.com/pkg/errors"

	"github.com/t-ae/realness-gan/tensor"
)

const (
	bnEps      = 1e-5
	bnMomentum = 0.1
)

// BatchNorm2D normalizes each channel of an NCHW batch by its batch
// statistics in Train mode and by running statistics in Eval mode, with a
// learned scale and shift per channel.
type BatchNorm2D struct {
	channels int

	gamma []float64
	beta  []float64
	gg    []float64
	gb    []float64

	runningMean []float64
	runningVar  []float64

	// cached by a Train-mode Forward for Backward
	in        *tensor.Tensor
	savedMean []float64
	savedStd  []float64
}

// BatchNorm returns a batch normalization layer over the given number of
// channels, with gamma 1, beta 0, running variance 1. It panics if channels
// is < 1.
func BatchNorm(channels int) *BatchNorm2D {
	if channels < 1 {
		panic(errors.Errorf("BatchNorm channels must be >= 1 (%d)", channels).Error())
	}

	bn := &BatchNorm2D{
		channels:    channels,
		gamma:       make([]float64, channels),
		beta:        make([]float64, channels),
		gg:          make([]float64, channels),
		gb:          make([]float64, channels),
		runningMean: make([]float64, channels),
		runningVar:  make([]float64, channels),
		savedMean:   make([]float64, channels),
		savedStd:    make([]float64, channels),
	}

	for i := 0; i < channels; i++ {
		bn.gamma[i] = 1
		bn.runningVar[i] = 1
	}

	return bn
}

// RunningStats returns the live running mean and variance slices. They are
// not trainable and are excluded from Params; the EMA snapshot copies them
// directly.
func (bn *BatchNorm2D) RunningStats() (mean, variance []float64) {
	return bn.runningMean, bn.runningVar
}

// Forward normalizes x, shape [B, channels, H, W]. Train mode computes and
// saves batch statistics and folds them into the running statistics; Eval
// mode reads the running statistics and saves nothing.
func (bn *BatchNorm2D) Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor {
	batch, plane := x.Dim(0), x.Dim(2)*x.Dim(3)
	out := tensor.New(x.Dims...)

	if mode == Eval {
		for b := 0; b < batch; b++ {
			for c := 0; c < bn.channels; c++ {
				base := b*bn.channels*plane + c*plane
				mean := bn.runningMean[c]
				std := math.Sqrt(bn.runningVar[c] + bnEps)
				for s := 0; s < plane; s++ {
					out.Data[base+s] = bn.gamma[c]*(x.Data[base+s]-mean)/std + bn.beta[c]
				}
			}
		}

		bn.in = nil
		return out
	}

	n := float64(batch * plane)
	for c := 0; c < bn.channels; c++ {
		var sum float64
		for b := 0; b < batch; b++ {
			base := b*bn.channels*plane + c*plane
			for s := 0; s < plane; s++ {
				sum += x.Data[base+s]
			}
		}
		mean := sum / n

		var sumSq float64
		for b := 0; b < batch; b++ {
			base := b*bn.channels*plane + c*plane
			for s := 0; s < plane; s++ {
				diff := x.Data[base+s] - mean
				sumSq += diff * diff
			}
		}
		variance := sumSq / n

		bn.savedMean[c] = mean
		bn.savedStd[c] = math.Sqrt(variance + bnEps)
		bn.runningMean[c] = (1-bnMomentum)*bn.runningMean[c] + bnMomentum*mean
		bn.runningVar[c] = (1-bnMomentum)*bn.runningVar[c] + bnMomentum*variance
	}

	bn.in = x
	for b := 0; b < batch; b++ {
		for c := 0; c < bn.channels; c++ {
			base := b*bn.channels*plane + c*plane
			mean, std := bn.savedMean[c], bn.savedStd[c]
			for s := 0; s < plane; s++ {
				out.Data[base+s] = bn.gamma[c]*(x.Data[base+s]-mean)/std + bn.beta[c]
			}
		}
	}

	return out
}

// Backward pushes grad back through the last Train-mode Forward.
func (bn *BatchNorm2D) Backward(grad *tensor.Tensor) *tensor.Tensor {
	if bn.in == nil {
		panic("BatchNorm Backward without a Train-mode Forward")
	}

	batch, plane := grad.Dim(0), grad.Dim(2)*grad.Dim(3)
	n := float64(batch * plane)
	gradIn := tensor.New(grad.Dims...)

	for c := 0; c < bn.channels; c++ {
		mean, std := bn.savedMean[c], bn.savedStd[c]

		var sumGrad, sumGradDiff float64
		for b := 0; b < batch; b++ {
			base := b*bn.channels*plane + c*plane
			for s := 0; s < plane; s++ {
				g := grad.Data[base+s]
				sumGrad += g
				sumGradDiff += g * (bn.in.Data[base+s] - mean)
			}
		}

		bn.gg[c] = sumGradDiff / std
		bn.gb[c] = sumGrad

		gamma := bn.gamma[c]
		for b := 0; b < batch; b++ {
			base := b*bn.channels*plane + c*plane
			for s := 0; s < plane; s++ {
				diff := bn.in.Data[base+s] - mean
				g := grad.Data[base+s]
				gradIn.Data[base+s] = gamma / std * (g - sumGrad/n - diff*sumGradDiff/(n*std*std))
			}
		}
	}

	return gradIn
}

func (bn *BatchNorm2D) Params() [][]float64 {
	return [][]float64{bn.gamma, bn.beta}
}

func (bn *BatchNorm2D) Grads() [][]float64 {
	return [][]float64{bn.gg, bn.gb}
}
