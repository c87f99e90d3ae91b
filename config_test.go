package realness

import (
	"testing"
)

// testConfig is the shared small topology the package tests run on: two
// resolutions (4 and 8), narrow feature widths, tiny batches.
func testConfig() Config {
	cfg := DefaultConfig(8)
	cfg.LatentSize = 6
	cfg.NumOutcomes = 5
	cfg.BatchSize = 2
	cfg.BaseChannels = 4
	cfg.MaxChannels = 8
	cfg.AnchorSamples = 200
	cfg.Seed = 7

	return cfg
}

func TestDefaultConfigIsValid(t *testing.T) {
	for _, size := range []int{8, 32, 128} {
		if err := DefaultConfig(size).Validate(); err != nil {
			t.Errorf("default config at %d does not validate: %v", size, err)
		}
	}
}

func TestValidateRejectsMalformedFields(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*Config)
	}{
		{"ImageSize", func(c *Config) { c.ImageSize = 12 }},
		{"ImageSize", func(c *Config) { c.ImageSize = 4 }},
		{"LatentSize", func(c *Config) { c.LatentSize = 0 }},
		{"NumOutcomes", func(c *Config) { c.NumOutcomes = 1 }},
		{"BatchSize", func(c *Config) { c.BatchSize = 0 }},
		{"MaxChannels", func(c *Config) { c.MaxChannels = c.BaseChannels - 1 }},
		{"PowerIterations", func(c *Config) { c.PowerIterations = 0 }},
		{"LeakySlope", func(c *Config) { c.LeakySlope = 1 }},
		{"LearningRate", func(c *Config) { c.LearningRateD = 0 }},
		{"Betas", func(c *Config) { c.Beta2 = 1 }},
		{"EMABeta", func(c *Config) { c.EMABeta = -0.1 }},
		{"AnchorSamples", func(c *Config) { c.AnchorSamples = 0 }},
	}

	for _, cs := range cases {
		cfg := DefaultConfig(32)
		cs.mutate(&cfg)

		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: malformed config validated", cs.field)
			continue
		}

		ce, ok := err.(ConfigError)
		if !ok {
			t.Errorf("%s: error is %T, want ConfigError", cs.field, err)
		} else if ce.Field != cs.field {
			t.Errorf("error names field %q, want %q", ce.Field, cs.field)
		}
	}
}

func TestChannelPlan(t *testing.T) {
	cfg := DefaultConfig(64)
	cfg.BaseChannels = 16
	cfg.MaxChannels = 256

	cases := []struct{ res, want int }{
		{64, 16},
		{32, 32},
		{16, 64},
		{8, 128},
		{4, 256},
	}
	for _, cs := range cases {
		if got := cfg.channelsAt(cs.res); got != cs.want {
			t.Errorf("channelsAt(%d) = %d, want %d", cs.res, got, cs.want)
		}
	}
}

func TestResolutions(t *testing.T) {
	got := DefaultConfig(32).resolutions()
	want := []int{4, 8, 16, 32}
	if len(got) != len(want) {
		t.Fatalf("resolutions are %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resolutions are %v, want %v", got, want)
		}
	}
}
