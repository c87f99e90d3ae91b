package realness

import (
	"fmt"
)

// Config is the immutable hyperparameter record for one training run. It is
// read once at construction of the networks and the Trainer and never
// mutated afterwards; Validate reports the first problem it finds so that a
// malformed configuration fails before any training happens.
type Config struct {
	// ImageSize is the final output resolution. It must be a power of two,
	// at least 8; the networks grow one doubling stage per power of two
	// above the fixed 4×4 base.
	ImageSize int

	// LatentSize is the length of the generator's input noise vector.
	LatentSize int

	// NumOutcomes is the number of discrete realness outcomes the
	// discriminator distributes probability mass over.
	NumOutcomes int

	BatchSize int

	// BaseChannels is the feature width at the final resolution; widths
	// double with every halving of resolution, capped at MaxChannels.
	BaseChannels int
	MaxChannels  int

	// PowerIterations is the number of spectral-norm power iterations each
	// discriminator convolution runs per forward pass.
	PowerIterations int

	// ResidualBlocks adds a 1×1 shortcut path to every discriminator block.
	ResidualBlocks bool

	// ReparamInGTraining selects the discriminator output mode used during
	// the generator's sub-step; the discriminator's own sub-step always
	// reparameterizes.
	ReparamInGTraining bool

	LeakySlope float64

	LearningRateG float64
	LearningRateD float64
	Beta1         float64
	Beta2         float64

	// EMABeta is the decay of the averaged generator snapshot:
	// avg = beta*avg + (1-beta)*current.
	EMABeta float64

	// RealAnchorCenter and FakeAnchorCenter position the two target
	// distributions on the fixed [-2, 2] outcome range.
	RealAnchorCenter float64
	FakeAnchorCenter float64

	// AnchorSamples is the number of Gaussian draws binned into each anchor.
	AnchorSamples int

	// Seed feeds every random source the run owns: anchors, latent noise,
	// reparameterization noise and the data shuffle.
	Seed uint64
}

// DefaultConfig returns the configuration the original training runs used,
// at the given resolution.
func DefaultConfig(imageSize int) Config {
	return Config{
		ImageSize:          imageSize,
		LatentSize:         128,
		NumOutcomes:        51,
		BatchSize:          32,
		BaseChannels:       16,
		MaxChannels:        256,
		PowerIterations:    1,
		ResidualBlocks:     true,
		ReparamInGTraining: false,
		LeakySlope:         0.2,
		LearningRateG:      2e-4,
		LearningRateD:      2e-4,
		Beta1:              0.5,
		Beta2:              0.999,
		EMABeta:            0.99,
		RealAnchorCenter:   1,
		FakeAnchorCenter:   -1,
		AnchorSamples:      1000,
		Seed:               1,
	}
}

// Validate returns a ConfigError for the first malformed field.
func (c Config) Validate() error {
	if c.ImageSize < 8 || c.ImageSize&(c.ImageSize-1) != 0 {
		return ConfigError{"ImageSize", fmt.Sprintf("must be a power of two >= 8 (%d)", c.ImageSize)}
	}
	if c.LatentSize < 1 {
		return ConfigError{"LatentSize", fmt.Sprintf("must be >= 1 (%d)", c.LatentSize)}
	}
	if c.NumOutcomes < 2 {
		return ConfigError{"NumOutcomes", fmt.Sprintf("must be >= 2 (%d)", c.NumOutcomes)}
	}
	if c.BatchSize < 1 {
		return ConfigError{"BatchSize", fmt.Sprintf("must be >= 1 (%d)", c.BatchSize)}
	}
	if c.BaseChannels < 1 {
		return ConfigError{"BaseChannels", fmt.Sprintf("must be >= 1 (%d)", c.BaseChannels)}
	}
	if c.MaxChannels < c.BaseChannels {
		return ConfigError{"MaxChannels", fmt.Sprintf("must be >= BaseChannels (%d < %d)", c.MaxChannels, c.BaseChannels)}
	}
	if c.PowerIterations < 1 {
		return ConfigError{"PowerIterations", fmt.Sprintf("must be >= 1 (%d)", c.PowerIterations)}
	}
	if c.LeakySlope < 0 || c.LeakySlope >= 1 {
		return ConfigError{"LeakySlope", fmt.Sprintf("must be in [0, 1) (%v)", c.LeakySlope)}
	}
	if c.LearningRateG <= 0 || c.LearningRateD <= 0 {
		return ConfigError{"LearningRate", fmt.Sprintf("must be > 0 (%v, %v)", c.LearningRateG, c.LearningRateD)}
	}
	if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 {
		return ConfigError{"Betas", fmt.Sprintf("must be in [0, 1) (%v, %v)", c.Beta1, c.Beta2)}
	}
	if c.EMABeta < 0 || c.EMABeta >= 1 {
		return ConfigError{"EMABeta", fmt.Sprintf("must be in [0, 1) (%v)", c.EMABeta)}
	}
	if c.AnchorSamples < 1 {
		return ConfigError{"AnchorSamples", fmt.Sprintf("must be >= 1 (%d)", c.AnchorSamples)}
	}

	return nil
}

// channelsAt gives the feature width shared by the generator's and the
// discriminator's blocks at a resolution: BaseChannels at the final
// resolution, doubling with each halving, capped at MaxChannels.
func (c Config) channelsAt(res int) int {
	ch := c.BaseChannels
	for r := res; r < c.ImageSize; r *= 2 {
		ch *= 2
		if ch >= c.MaxChannels {
			return c.MaxChannels
		}
	}

	return ch
}

// resolutions lists the supported resolutions in ascending order, from the
// 4×4 base to ImageSize.
func (c Config) resolutions() []int {
	var rs []int
	for r := 4; r <= c.ImageSize; r *= 2 {
		rs = append(rs, r)
	}

	return rs
}
