package realness

import (
	"math"
	"testing"

	"github.com/t-ae/realness-gan/initializers"
	"github.com/t-ae/realness-gan/layers"
	"github.com/t-ae/realness-gan/tensor"
)

// randomLatents and randomImages seed from the batch size so that different
// call sites draw different but reproducible values.
func randomLatents(t *testing.T, cfg Config, batch int) *tensor.Tensor {
	t.Helper()

	gen := initializers.Normal().Seed(uint64(batch))
	z := tensor.New(batch, cfg.LatentSize)
	for i := range z.Data {
		z.Data[i] = gen.Gen()
	}

	return z
}

func randomImages(t *testing.T, batch, res int) *tensor.Tensor {
	t.Helper()

	gen := initializers.Uniform().Bounds(-1, 1).Seed(uint64(batch*1000 + res))
	images := tensor.New(batch, 3, res, res)
	for i := range images.Data {
		images.Data[i] = gen.Gen()
	}

	return images
}

func TestDiscriminatorScoresAreDistributions(t *testing.T) {
	d, err := NewDiscriminator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	for _, reparam := range []bool{false, true} {
		scores, err := d.Forward(randomImages(t, 3, 8), layers.Eval, reparam)
		if err != nil {
			t.Fatal(err)
		}

		if scores.Dim(0) != 3 || scores.Dim(1) != d.Config().NumOutcomes {
			t.Fatalf("score shape is %v, want [3 %d]", scores.Dims, d.Config().NumOutcomes)
		}

		for b := 0; b < 3; b++ {
			var sum float64
			for _, v := range scores.Row(b) {
				if v < 0 {
					t.Fatalf("reparam=%v: negative probability %v", reparam, v)
				}
				sum += v
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("reparam=%v: row %d sums to %v, want 1", reparam, b, sum)
			}
		}
	}
}

func TestDiscriminatorAcceptsEveryCascadeResolution(t *testing.T) {
	d, err := NewDiscriminator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	for _, res := range []int{4, 8} {
		scores, err := d.Forward(randomImages(t, 2, res), layers.Eval, false)
		if err != nil {
			t.Fatalf("resolution %d: %v", res, err)
		}
		if scores.Dim(0) != 2 {
			t.Fatalf("resolution %d score shape is %v", res, scores.Dims)
		}
	}
}

func TestDiscriminatorRejectsMalformedImages(t *testing.T) {
	d, err := NewDiscriminator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.Forward(tensor.New(1, 3, 6, 6), layers.Eval, false); err == nil {
		t.Error("resolution outside the cascade accepted")
	}
	if _, err := d.Forward(tensor.New(1, 4, 8, 8), layers.Eval, false); err == nil {
		t.Error("four-channel image accepted")
	}
}

func TestDiscriminatorBackwardShapes(t *testing.T) {
	d, err := NewDiscriminator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	images := randomImages(t, 2, 8)
	scores, err := d.Forward(images, layers.Train, true)
	if err != nil {
		t.Fatal(err)
	}

	grad := d.Backward(scores.Clone())
	for i := range images.Dims {
		if grad.Dim(i) != images.Dim(i) {
			t.Fatalf("image gradient shape is %v, want %v", grad.Dims, images.Dims)
		}
	}

	params, grads := d.Params(), d.Grads()
	if len(params) != len(grads) {
		t.Fatalf("%d parameter groups but %d gradient groups", len(params), len(grads))
	}
	for i := range params {
		if len(params[i]) != len(grads[i]) {
			t.Fatalf("group %d: %d parameters but %d gradients", i, len(params[i]), len(grads[i]))
		}
	}
}

func TestDiscriminatorDirectModeIsDeterministic(t *testing.T) {
	d, err := NewDiscriminator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	images := randomImages(t, 2, 8)
	a, err := d.Forward(images, layers.Eval, false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.Forward(images, layers.Eval, false)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("score %d differs across identical direct-mode forwards (%v != %v)", i, a.Data[i], b.Data[i])
		}
	}
}
