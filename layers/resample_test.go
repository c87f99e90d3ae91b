package layers

import (
	"testing"

	"github.com/t-ae/realness-gan/tensor"
)

func TestUpsampleForwardBackward(t *testing.T) {
	u := Upsample(2)
	out := u.Forward(tensor.FromSlice([]float64{1, 2, 3, 4}, 1, 1, 2, 2), Train)

	want := []float64{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	for i, w := range want {
		if out.Data[i] != w {
			t.Errorf("output %d is %v, want %v", i, out.Data[i], w)
		}
	}

	grad := u.Backward(tensor.Full(1, 1, 1, 4, 4))
	for i, g := range grad.Data {
		if g != 4 {
			t.Errorf("input gradient %d is %v, want 4 (fan-out of the 2x2 repeat)", i, g)
		}
	}
}

func TestAvgPoolForwardBackward(t *testing.T) {
	p := AvgPool()
	x := tensor.FromSlice([]float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, 1, 1, 4, 4)

	out := p.Forward(x, Train)
	want := []float64{3.5, 5.5, 11.5, 13.5}
	for i, w := range want {
		if out.Data[i] != w {
			t.Errorf("output %d is %v, want %v", i, out.Data[i], w)
		}
	}

	grad := p.Backward(tensor.Full(1, 1, 1, 2, 2))
	for i, g := range grad.Data {
		if g != 0.25 {
			t.Errorf("input gradient %d is %v, want 0.25", i, g)
		}
	}
}
