package realness

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pkg/errors"

	"github.com/t-ae/realness-gan/tensor"
)

// anchorRange is the fixed outcome range the bins span; samples falling
// outside are counted into the boundary bins.
const anchorRange = 2.0

// AnchorDistribution is a fixed discrete probability distribution over the
// realness outcomes, used as a constant training target. It is built once
// per polarity at the start of a run and read-only thereafter.
type AnchorDistribution struct {
	probs *tensor.Tensor // [1, N]
}

// BuildAnchor bins 'samples' standard-normal draws, shifted by center, into
// numOutcomes equal-width bins over [-2, 2] and normalizes the counts into
// a distribution. The draw is the only source of nondeterminism; passing
// the same src reproduces the anchor exactly.
func BuildAnchor(numOutcomes int, center float64, samples int, src rand.Source) (AnchorDistribution, error) {
	if numOutcomes < 2 {
		return AnchorDistribution{}, errors.Errorf("Anchor must have >= 2 outcomes (%d)", numOutcomes)
	} else if samples < 1 {
		return AnchorDistribution{}, errors.Errorf("Anchor needs >= 1 samples (%d)", samples)
	}

	dist := distuv.Normal{Mu: center, Sigma: 1, Src: src}
	counts := tensor.New(1, numOutcomes)
	binWidth := 2 * anchorRange / float64(numOutcomes)

	for s := 0; s < samples; s++ {
		v := dist.Rand()

		bin := int((v + anchorRange) / binWidth)
		if bin < 0 {
			bin = 0
		} else if bin >= numOutcomes {
			bin = numOutcomes - 1
		}

		counts.Data[bin]++
	}

	floats.Scale(1/floats.Sum(counts.Data), counts.Data)
	return AnchorDistribution{probs: counts}, nil
}

// Len returns the number of outcomes.
func (a AnchorDistribution) Len() int {
	return a.probs.Dim(1)
}

// Prob returns the probability mass of outcome i.
func (a AnchorDistribution) Prob(i int) float64 {
	return a.probs.Data[i]
}

// Row returns the distribution as a [1, N] tensor suitable for
// broadcasting across a score batch. The returned tensor is the anchor's
// own storage and must be treated as a constant.
func (a AnchorDistribution) Row() *tensor.Tensor {
	return a.probs
}
