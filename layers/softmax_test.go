package layers

import (
	"math"
	"testing"
)

func TestSoftmaxRowsAreDistributions(t *testing.T) {
	s := Softmax()
	out := s.Forward(randomTensor(51, 4, 7), Train)

	for b := 0; b < 4; b++ {
		var sum float64
		for _, v := range out.Row(b) {
			if v <= 0 {
				t.Fatalf("row %d holds a non-positive probability %v", b, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d sums to %v, want 1", b, sum)
		}
	}
}

func TestSoftmaxGradientMatchesFiniteDifference(t *testing.T) {
	s := Softmax()
	x := randomTensor(52, 2, 5)
	coef := randomTensor(53, 2, 5)

	loss := func() float64 {
		out := s.Forward(x, Train)
		var sum float64
		for i := range out.Data {
			sum += coef.Data[i] * out.Data[i]
		}

		return sum
	}

	loss()
	gradIn := s.Backward(coef)

	const h = 1e-6
	for i := range x.Data {
		orig := x.Data[i]
		x.Data[i] = orig + h
		up := loss()
		x.Data[i] = orig - h
		down := loss()
		x.Data[i] = orig

		fd := (up - down) / (2 * h)
		if math.Abs(gradIn.Data[i]-fd) > 1e-5*(1+math.Abs(fd)) {
			t.Errorf("input %d: analytic gradient %v, finite difference %v", i, gradIn.Data[i], fd)
		}
	}
}
