package realness

import (
	"github.com/t-ae/realness-gan/tensor"
)

// ImageSource is the training data collaborator. The Trainer only ever
// pulls: it shuffles once per epoch and consumes one finite iterator per
// epoch. Images are [B, 3, H, W] float batches with values in [0, 1]; the
// Trainer rescales them to [-1, 1] itself.
type ImageSource interface {
	// Count returns the number of images available per epoch.
	Count() int

	// Shuffle reorders the underlying data; the next Iterate starts a fresh
	// pass over the new order.
	Shuffle()

	// Iterate returns a lazy iterator of batches of exactly batchSize.
	Iterate(batchSize int) BatchIterator
}

// BatchIterator yields successive image batches until the epoch is
// exhausted.
type BatchIterator interface {
	// Next returns the next batch, or (nil, false) at the end of the epoch.
	Next() (*tensor.Tensor, bool)
}

// MetricsSink receives scalar curves and periodic sample grids. It is a
// pure side-channel: the Trainer never reads back from it, and lowering
// the frequency of writes cannot affect the learned state.
type MetricsSink interface {
	Scalar(tag string, value float64, step int)
	Images(tag string, batch *tensor.Tensor, step int)
	Flush() error
}
