package realness

import (
	"testing"

	"github.com/t-ae/realness-gan/layers"
)

func TestGeneratorOutputShapeAndRange(t *testing.T) {
	g, err := NewGenerator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	out := g.Forward(randomLatents(t, g.Config(), 3), layers.Train)
	if out.Dim(0) != 3 || out.Dim(1) != 3 || out.Dim(2) != 8 || out.Dim(3) != 8 {
		t.Fatalf("output shape is %v, want [3 3 8 8]", out.Dims)
	}

	for i, v := range out.Data {
		if v < -1 || v > 1 {
			t.Fatalf("pixel %d is %v, outside [-1, 1]", i, v)
		}
	}
}

func TestGeneratorForwardAtEveryResolution(t *testing.T) {
	g, err := NewGenerator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	latents := randomLatents(t, g.Config(), 2)
	for _, res := range []int{4, 8} {
		out, err := g.ForwardAt(latents, res, layers.Eval)
		if err != nil {
			t.Fatalf("resolution %d: %v", res, err)
		}
		if out.Dim(2) != res || out.Dim(3) != res {
			t.Fatalf("resolution %d output shape is %v", res, out.Dims)
		}
	}

	if _, err := g.ForwardAt(latents, 6, layers.Eval); err == nil {
		t.Error("unsupported resolution 6 accepted")
	}
	if _, err := g.ForwardAt(latents, 16, layers.Eval); err == nil {
		t.Error("resolution above ImageSize accepted")
	}
}

func TestGeneratorBackwardReturnsLatentGradient(t *testing.T) {
	g, err := NewGenerator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	latents := randomLatents(t, g.Config(), 2)
	out := g.Forward(latents, layers.Train)

	grad := g.Backward(out.Clone())
	if grad.Dim(0) != 2 || grad.Dim(1) != g.Config().LatentSize {
		t.Fatalf("latent gradient shape is %v, want [2 %d]", grad.Dims, g.Config().LatentSize)
	}

	params, grads := g.Params(), g.Grads()
	if len(params) != len(grads) {
		t.Fatalf("%d parameter groups but %d gradient groups", len(params), len(grads))
	}
	for i := range params {
		if len(params[i]) != len(grads[i]) {
			t.Fatalf("group %d: %d parameters but %d gradients", i, len(params[i]), len(grads[i]))
		}
	}
}

func TestGeneratorSampleChunkingIsInvisible(t *testing.T) {
	g, err := NewGenerator(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	latents := randomLatents(t, g.Config(), 5)
	whole := g.Sample(latents, 0)
	chunked := g.Sample(latents, 2)

	if whole.Dim(0) != 5 || chunked.Dim(0) != 5 {
		t.Fatalf("sample counts are %d and %d, want 5", whole.Dim(0), chunked.Dim(0))
	}
	for i := range whole.Data {
		if whole.Data[i] != chunked.Data[i] {
			t.Fatalf("pixel %d differs between chunk sizes (%v != %v)", i, whole.Data[i], chunked.Data[i])
		}
	}
}
