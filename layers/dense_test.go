package layers

import (
	"math"
	"testing"

	"github.com/t-ae/realness-gan/initializers"
	"github.com/t-ae/realness-gan/tensor"
)

func TestDenseForwardKnownValues(t *testing.T) {
	d := NewDense(2, 2)
	copy(d.w, []float64{1, 2, 3, 4}) // output-major: row 0 = [1 2], row 1 = [3 4]
	copy(d.b, []float64{0.5, -0.5})

	out := d.Forward(tensor.FromSlice([]float64{1, -1}, 1, 2), Eval)
	want := []float64{1*1 + 2*(-1) + 0.5, 3*1 + 4*(-1) - 0.5}
	for i, w := range want {
		if math.Abs(out.Data[i]-w) > 1e-12 {
			t.Errorf("output %d is %v, want %v", i, out.Data[i], w)
		}
	}
}

func TestDenseAcceptsHigherRankInput(t *testing.T) {
	d := NewDense(2*3*3, 4)
	out := d.Forward(randomTensor(1, 5, 2, 3, 3), Eval)
	if out.Dim(0) != 5 || out.Dim(1) != 4 {
		t.Fatalf("output shape is %v, want [5 4]", out.Dims)
	}
}

func TestDenseGradientsMatchFiniteDifference(t *testing.T) {
	d := NewDense(3, 2).Init(initializers.Normal().Seed(21))
	x := randomTensor(22, 4, 3)
	coef := randomTensor(23, 4, 2)

	loss := func() float64 {
		out := d.Forward(x, Train)
		var sum float64
		for i := range out.Data {
			sum += coef.Data[i] * out.Data[i]
		}

		return sum
	}

	loss()
	gradIn := d.Backward(coef)
	gw := append([]float64(nil), d.gw...)
	gb := append([]float64(nil), d.gb...)

	const h = 1e-6
	check := func(name string, params []float64, analytic []float64) {
		for i := range params {
			orig := params[i]
			params[i] = orig + h
			up := loss()
			params[i] = orig - h
			down := loss()
			params[i] = orig

			fd := (up - down) / (2 * h)
			if math.Abs(analytic[i]-fd) > 1e-5*(1+math.Abs(fd)) {
				t.Errorf("%s %d: analytic gradient %v, finite difference %v", name, i, analytic[i], fd)
			}
		}
	}

	check("weight", d.w, gw)
	check("bias", d.b, gb)
	check("input", x.Data, gradIn.Data)
}

func TestDenseNoBiasParamGroups(t *testing.T) {
	d := NewDense(3, 2).NoBias()
	if got := len(d.Params()); got != 1 {
		t.Fatalf("bias-free dense has %d parameter groups, want 1", got)
	}
	if got := len(d.Grads()); got != 1 {
		t.Fatalf("bias-free dense has %d gradient groups, want 1", got)
	}
}
