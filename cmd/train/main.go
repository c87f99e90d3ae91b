// Command train runs a short demonstration training loop on a synthetic
// dataset of colored gradients. It exists to exercise the full pipeline
// end to end; replace makeDataset and the configuration to train on real
// images.
package main

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/exp/rand"

	realness "github.com/t-ae/realness-gan"
	"github.com/t-ae/realness-gan/tensor"
)

const (
	datasetSize = 256
	totalSteps  = 200
)

// makeDataset fills [count, 3, size, size] with smooth two-axis gradients
// in randomized colors, values in [0, 1]. Cheap to generate and easy for
// a small model to start fitting.
func makeDataset(count, size int, seed uint64) *tensor.Tensor {
	rng := rand.New(rand.NewSource(seed))
	images := tensor.New(count, 3, size, size)

	for n := 0; n < count; n++ {
		phase := rng.Float64() * 2 * math.Pi
		for c := 0; c < 3; c++ {
			weight := 0.5 + 0.5*math.Sin(phase+float64(c)*2*math.Pi/3)
			for y := 0; y < size; y++ {
				for x := 0; x < size; x++ {
					v := weight * (float64(x+y) / float64(2*size-2))
					images.Set(v, n, c, y, x)
				}
			}
		}
	}

	return images
}

// stdoutSink prints scalar metrics and acknowledges sample grids.
type stdoutSink struct{}

func (stdoutSink) Scalar(tag string, value float64, step int) {
	fmt.Printf("step %6d  %-20s %.5f\n", step, tag, value)
}

func (stdoutSink) Images(tag string, batch *tensor.Tensor, step int) {
	fmt.Printf("step %6d  %-20s grid of %d images\n", step, tag, batch.Dim(0))
}

func (stdoutSink) Flush() error { return nil }

func main() {
	cfg := realness.DefaultConfig(32)
	cfg.BatchSize = 16
	cfg.BaseChannels = 8
	cfg.MaxChannels = 64
	cfg.Seed = 42

	g, err := realness.NewGenerator(cfg)
	exitIf(err)

	d, err := realness.NewDiscriminator(cfg)
	exitIf(err)

	t, err := realness.NewTrainer(g, d)
	exitIf(err)

	data, err := realness.NewTensorSource(makeDataset(datasetSize, cfg.ImageSize, cfg.Seed), cfg.Seed)
	exitIf(err)

	err = t.Train(realness.TrainArgs{
		Data:         data,
		RunCondition: func(step int) bool { return step < totalSteps },
		Metrics:      stdoutSink{},
		LogEvery:     10,
		SampleEvery:  50,
		SampleCount:  8,
	})
	exitIf(err)

	fmt.Printf("finished after %d steps\n", t.Step())
}

func exitIf(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
