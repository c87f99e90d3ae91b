// Package tensor provides a minimal dense tensor of float64 with explicit
// dimensions, used throughout the networks for batched NCHW image maps and
// [batch, outcomes] score matrices.
//
// Data is stored row-major: the last dimension oscillates fastest. A point
// is given in the same order as the dimensions, e.g. t.At(b, c, h, w).
package tensor

import (
	"fmt"
)

// Tensor is a dense n-dimensional array. The fields are public to allow
// direct kernel loops over Data, but Dims should not be altered after
// construction.
type Tensor struct {
	Dims []int
	Data []float64
}

// New returns a zero-filled Tensor with the given dimensions. New panics if
// no dimensions are given or if any dimension is less than 1; tensor shapes
// are construction-time constants, so a bad shape is a programming error.
func New(dims ...int) *Tensor {
	return &Tensor{Dims: checkDims(dims), Data: make([]float64, prod(dims))}
}

// FromSlice wraps an existing slice with the given dimensions, without
// copying. FromSlice panics if the product of the dimensions does not equal
// len(data).
func FromSlice(data []float64, dims ...int) *Tensor {
	if p := prod(checkDims(dims)); p != len(data) {
		panic(fmt.Sprintf("tensor: dims %v require %d values, have %d", dims, p, len(data)))
	}

	return &Tensor{Dims: dims, Data: data}
}

// Full returns a Tensor with every element set to v.
func Full(v float64, dims ...int) *Tensor {
	t := New(dims...)
	for i := range t.Data {
		t.Data[i] = v
	}

	return t
}

func checkDims(dims []int) []int {
	if len(dims) == 0 {
		panic("tensor: no dimensions given")
	}

	for i, d := range dims {
		if d < 1 {
			panic(fmt.Sprintf("tensor: dimension %d must be >= 1 (%d)", i, d))
		}
	}

	return dims
}

func prod(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}

	return p
}

// Elems returns the total number of elements.
func (t *Tensor) Elems() int {
	return len(t.Data)
}

// Dim returns the size of dimension d.
func (t *Tensor) Dim(d int) int {
	return t.Dims[d]
}

// Index returns the flat index of the given point. The point must have the
// same number of dimensions as the Tensor.
func (t *Tensor) Index(point ...int) int {
	idx := 0
	for i, p := range point {
		idx = idx*t.Dims[i] + p
	}

	return idx
}

// At returns the element at the given point.
func (t *Tensor) At(point ...int) float64 {
	return t.Data[t.Index(point...)]
}

// Set assigns v to the element at the given point.
func (t *Tensor) Set(v float64, point ...int) {
	t.Data[t.Index(point...)] = v
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	dims := make([]int, len(t.Dims))
	copy(dims, t.Dims)
	data := make([]float64, len(t.Data))
	copy(data, t.Data)

	return &Tensor{Dims: dims, Data: data}
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float64) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

// Reshape returns a view over the same Data with new dimensions. Reshape
// panics if the element count changes.
func (t *Tensor) Reshape(dims ...int) *Tensor {
	if prod(checkDims(dims)) != len(t.Data) {
		panic(fmt.Sprintf("tensor: cannot reshape %v to %v", t.Dims, dims))
	}

	return &Tensor{Dims: dims, Data: t.Data}
}

// RowSize returns the number of elements per entry of the first dimension.
func (t *Tensor) RowSize() int {
	return len(t.Data) / t.Dims[0]
}

// Row returns the i'th slice along the first dimension, without copying.
// For a [B, N] matrix this is row i; for an NCHW batch it is image i.
func (t *Tensor) Row(i int) []float64 {
	rs := t.RowSize()
	return t.Data[i*rs : (i+1)*rs]
}

// Concat joins tensors along the first dimension. All trailing dimensions
// must match; Concat panics otherwise.
func Concat(ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic("tensor: Concat of nothing")
	}

	rows := 0
	for _, t := range ts {
		if t.RowSize() != ts[0].RowSize() || len(t.Dims) != len(ts[0].Dims) {
			panic(fmt.Sprintf("tensor: Concat shape mismatch (%v, %v)", ts[0].Dims, t.Dims))
		}

		rows += t.Dims[0]
	}

	dims := make([]int, len(ts[0].Dims))
	copy(dims, ts[0].Dims)
	dims[0] = rows

	out := New(dims...)
	at := 0
	for _, t := range ts {
		at += copy(out.Data[at:], t.Data)
	}

	return out
}

// SplitRows returns a view of rows [from, to) along the first dimension,
// without copying.
func (t *Tensor) SplitRows(from, to int) *Tensor {
	dims := make([]int, len(t.Dims))
	copy(dims, t.Dims)
	dims[0] = to - from

	rs := t.RowSize()
	return &Tensor{Dims: dims, Data: t.Data[from*rs : to*rs]}
}
