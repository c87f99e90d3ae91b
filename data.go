package realness

import (
	"golang.org/x/exp/rand"

	"github.com/t-ae/realness-gan/tensor"
)

// TensorSource is an in-memory ImageSource over a [count, 3, H, W] tensor.
// It exists for tests and toy runs; real datasets implement ImageSource
// around their own loading pipeline.
type TensorSource struct {
	images *tensor.Tensor
	order  []int
	rng    *rand.Rand
}

// NewTensorSource wraps the given image tensor. The images are not copied.
func NewTensorSource(images *tensor.Tensor, seed uint64) (*TensorSource, error) {
	if images == nil {
		return nil, NilArgError{"images"}
	} else if images.Dim(0) == 0 {
		return nil, ErrEmptySource
	}

	order := make([]int, images.Dim(0))
	for i := range order {
		order[i] = i
	}

	return &TensorSource{
		images: images,
		order:  order,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

func (s *TensorSource) Count() int {
	return s.images.Dim(0)
}

func (s *TensorSource) Shuffle() {
	s.rng.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})
}

// Iterate returns an iterator over batches of exactly batchSize in the
// current order; a trailing partial batch is dropped.
func (s *TensorSource) Iterate(batchSize int) BatchIterator {
	return &tensorIterator{src: s, batchSize: batchSize}
}

type tensorIterator struct {
	src       *TensorSource
	batchSize int
	at        int
}

func (it *tensorIterator) Next() (*tensor.Tensor, bool) {
	if it.at+it.batchSize > len(it.src.order) {
		return nil, false
	}

	imgs := it.src.images
	dims := make([]int, len(imgs.Dims))
	copy(dims, imgs.Dims)
	dims[0] = it.batchSize

	batch := tensor.New(dims...)
	for i := 0; i < it.batchSize; i++ {
		copy(batch.Row(i), imgs.Row(it.src.order[it.at+i]))
	}

	it.at += it.batchSize
	return batch, true
}
