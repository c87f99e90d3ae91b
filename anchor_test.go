package realness

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestBuildAnchorIsNormalized(t *testing.T) {
	a, err := BuildAnchor(51, 1, 1000, rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}

	if a.Len() != 51 {
		t.Fatalf("anchor has %d outcomes, want 51", a.Len())
	}

	var sum float64
	for i := 0; i < a.Len(); i++ {
		if a.Prob(i) < 0 {
			t.Fatalf("outcome %d has negative mass %v", i, a.Prob(i))
		}
		sum += a.Prob(i)
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("anchor mass sums to %v, want 1", sum)
	}
}

func TestBuildAnchorMassFollowsCenter(t *testing.T) {
	upperMass := func(a AnchorDistribution) float64 {
		var m float64
		for i := a.Len() / 2; i < a.Len(); i++ {
			m += a.Prob(i)
		}
		return m
	}

	realAnchor, err := BuildAnchor(20, 1, 1000, rand.NewSource(2))
	if err != nil {
		t.Fatal(err)
	}
	fakeAnchor, err := BuildAnchor(20, -1, 1000, rand.NewSource(2))
	if err != nil {
		t.Fatal(err)
	}

	if m := upperMass(realAnchor); m < 0.7 {
		t.Errorf("real anchor puts %v mass above center, want most of it", m)
	}
	if m := upperMass(fakeAnchor); m > 0.3 {
		t.Errorf("fake anchor puts %v mass above center, want little of it", m)
	}
}

func TestBuildAnchorReproducible(t *testing.T) {
	a, err := BuildAnchor(16, 0.5, 500, rand.NewSource(3))
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildAnchor(16, 0.5, 500, rand.NewSource(3))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < a.Len(); i++ {
		if a.Prob(i) != b.Prob(i) {
			t.Fatalf("outcome %d differs between identically seeded builds (%v != %v)", i, a.Prob(i), b.Prob(i))
		}
	}
}

func TestBuildAnchorRejectsBadArguments(t *testing.T) {
	if _, err := BuildAnchor(1, 0, 100, rand.NewSource(4)); err == nil {
		t.Error("single-outcome anchor built without error")
	}
	if _, err := BuildAnchor(8, 0, 0, rand.NewSource(4)); err == nil {
		t.Error("sample-free anchor built without error")
	}
}
