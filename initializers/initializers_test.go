package initializers

import (
	"math"
	"testing"
)

func TestUniformStaysInBounds(t *testing.T) {
	gen := Uniform().Bounds(-0.5, 0.5).Seed(1)
	for i := 0; i < 1000; i++ {
		if v := gen.Gen(); v < -0.5 || v > 0.5 {
			t.Fatalf("draw %d is %v, outside [-0.5, 0.5]", i, v)
		}
	}
}

func TestNormalSeedReproduces(t *testing.T) {
	a := Normal().Seed(7)
	b := Normal().Seed(7)
	for i := 0; i < 100; i++ {
		if a.Gen() != b.Gen() {
			t.Fatalf("draw %d differs between identically seeded generators", i)
		}
	}
}

func TestHeNormalSpread(t *testing.T) {
	const fanIn = 50
	gen := HeNormal(fanIn).Seed(11)

	var sumSq float64
	const n = 20000
	for i := 0; i < n; i++ {
		v := gen.Gen()
		sumSq += v * v
	}

	sd := math.Sqrt(sumSq / n)
	want := math.Sqrt(2.0 / fanIn)
	if math.Abs(sd-want) > 0.1*want {
		t.Fatalf("sample standard deviation is %v, want about %v", sd, want)
	}
}

func TestTruncNormalCutsTails(t *testing.T) {
	gen := TruncNormal()
	gen.Seed(13)
	for i := 0; i < 5000; i++ {
		if v := gen.Gen(); v < -2 || v > 2 {
			t.Fatalf("draw %d is %v, outside the 2-sigma truncation", i, v)
		}
	}
}

func TestSetDefault(t *testing.T) {
	if err := SetDefault("no-such-value", 1); err == nil {
		t.Error("unknown default name accepted")
	}
	if err := SetDefault("normal-sd", math.NaN()); err == nil {
		t.Error("NaN default accepted")
	}

	if err := SetDefault("normal-sd", 3); err != nil {
		t.Fatal(err)
	}
	defer SetDefault("normal-sd", 1)

	if got := Normal().dist.Sigma; got != 3 {
		t.Fatalf("new normal has sigma %v after SetDefault, want 3", got)
	}
}
