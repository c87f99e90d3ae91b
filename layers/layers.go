// Package layers implements the forward-computable modules the two networks
// are assembled from: convolutions (optionally spectrally normalized),
// dense layers, batch normalization, nearest-neighbor upsampling, average
// pooling, elementwise activations and a row-wise softmax.
//
// Every layer computes its own reverse-mode gradients by hand. Forward
// caches whatever the matching Backward needs; a layer therefore carries
// exactly one in-flight activation set and must only ever be invoked on one
// logical stream of calls at a time. Backward both returns the gradient
// with respect to the layer's input and overwrites the layer's parameter
// gradients, so gradients never accumulate across steps by accident.
//
// The training/evaluation phase is passed into every Forward call as a Mode
// rather than held as shared state.
package layers

import (
	"github.com/t-ae/realness-gan/tensor"
)

// Mode selects the phase a forward pass runs in. It controls batch
// normalization statistics and whether spectral-normalization state is
// persisted; it is deliberately a per-call argument, not layer state.
type Mode int

const (
	// Train uses batch statistics and persists spectral-norm iteration state.
	Train Mode = iota

	// Eval uses running statistics and leaves all layer state untouched.
	Eval
)

// Layer is the capability shared by every module in a network: map a tensor
// to a tensor given a mode, and push a gradient back through.
type Layer interface {
	Forward(x *tensor.Tensor, mode Mode) *tensor.Tensor

	// Backward takes the gradient of the loss with respect to the last
	// Forward's output and returns the gradient with respect to its input,
	// writing parameter gradients as a side effect.
	Backward(grad *tensor.Tensor) *tensor.Tensor

	// Params returns the layer's trainable parameter groups as live slices,
	// and Grads the matching gradient groups. Stateless layers return nil.
	Params() [][]float64
	Grads() [][]float64
}
