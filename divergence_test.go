package realness

import (
	"math"
	"testing"

	"github.com/t-ae/realness-gan/tensor"
)

func TestKLDivergenceOfIdenticalDistributions(t *testing.T) {
	p := tensor.FromSlice([]float64{0.1, 0.2, 0.3, 0.4}, 1, 4)
	q := tensor.Concat(p, p, p)

	if kl := KLDivergence(p, q); math.Abs(kl) > 1e-12 {
		t.Fatalf("KL of identical distributions is %v, want 0", kl)
	}
}

func TestKLDivergenceNonNegative(t *testing.T) {
	p := tensor.FromSlice([]float64{0.7, 0.1, 0.1, 0.1}, 1, 4)
	q := tensor.FromSlice([]float64{
		0.25, 0.25, 0.25, 0.25,
		0.1, 0.6, 0.2, 0.1,
	}, 2, 4)

	if kl := KLDivergence(p, q); kl < -1e-9 {
		t.Fatalf("KL of normalized distributions is %v, want >= 0", kl)
	}
}

func TestKLDivergenceIsDirectional(t *testing.T) {
	p := tensor.FromSlice([]float64{0.9, 0.05, 0.05}, 1, 3)
	q := tensor.FromSlice([]float64{0.2, 0.4, 0.4}, 1, 3)

	if KLDivergence(p, q) == KLDivergence(q, p) {
		t.Fatal("KL is symmetric for asymmetric operands")
	}
}

func TestKLDivergencePanicsOnShapeMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("mismatched outcome counts did not panic")
		}
	}()
	KLDivergence(tensor.New(1, 3), tensor.New(2, 4))
}

func TestKLDivergenceGradsMatchFiniteDifference(t *testing.T) {
	p := tensor.FromSlice([]float64{
		0.5, 0.2, 0.2, 0.1,
		0.1, 0.3, 0.3, 0.3,
	}, 2, 4)
	q := tensor.FromSlice([]float64{
		0.25, 0.25, 0.3, 0.2,
		0.4, 0.2, 0.2, 0.2,
	}, 2, 4)

	gradP, gradQ := KLDivergenceGrads(p, q)

	const h = 1e-7
	check := func(name string, data []float64, analytic *tensor.Tensor) {
		for i := range data {
			orig := data[i]
			data[i] = orig + h
			up := KLDivergence(p, q)
			data[i] = orig - h
			down := KLDivergence(p, q)
			data[i] = orig

			fd := (up - down) / (2 * h)
			if math.Abs(analytic.Data[i]-fd) > 1e-5*(1+math.Abs(fd)) {
				t.Errorf("%s %d: analytic gradient %v, finite difference %v", name, i, analytic.Data[i], fd)
			}
		}
	}

	check("p", p.Data, gradP)
	check("q", q.Data, gradQ)
}

func TestKLDivergenceGradsAccumulateBroadcastRow(t *testing.T) {
	p := tensor.FromSlice([]float64{0.5, 0.3, 0.2}, 1, 3)
	q := tensor.FromSlice([]float64{
		0.2, 0.5, 0.3,
		0.6, 0.2, 0.2,
	}, 2, 3)

	gradP, gradQ := KLDivergenceGrads(p, q)
	if gradP.Dim(0) != 1 || gradP.Dim(1) != 3 {
		t.Fatalf("broadcast gradient shape is %v, want [1 3]", gradP.Dims)
	}
	if gradQ.Dim(0) != 2 {
		t.Fatalf("q gradient shape is %v, want [2 3]", gradQ.Dims)
	}

	// the broadcast row's gradient is the sum of its per-sample gradients
	g1, _ := KLDivergenceGrads(p, q.SplitRows(0, 1))
	g2, _ := KLDivergenceGrads(p, q.SplitRows(1, 2))
	for i := range gradP.Data {
		want := (g1.Data[i] + g2.Data[i]) / 2
		if math.Abs(gradP.Data[i]-want) > 1e-12 {
			t.Errorf("broadcast gradient %d is %v, want %v", i, gradP.Data[i], want)
		}
	}
}
