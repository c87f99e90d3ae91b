package realness

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/t-ae/realness-gan/layers"
	"github.com/t-ae/realness-gan/optimizers"
	"github.com/t-ae/realness-gan/tensor"
)

// Trainer drives the alternating optimization of one generator and one
// discriminator: a discriminator step matching real and fake outcome
// distributions to their anchors, then a generator step pulling the fake
// score distribution toward the real one and away from the fake anchor,
// then an EMA snapshot of the generator. The two sub-steps are strictly
// sequential; the generator step reads the discriminator parameters the
// first sub-step just wrote.
type Trainer struct {
	cfg Config

	g   *Generator
	d   *Discriminator
	ema *EMAGenerator

	optG optimizers.Optimizer
	optD optimizers.Optimizer

	realAnchor AnchorDistribution
	fakeAnchor AnchorDistribution

	latentNoise distuv.Normal
	step        int
}

// NewTrainer wires a training run together: both anchors are built once
// here and stay constant for the life of the run. The generator and
// discriminator must have been built from the same Config.
func NewTrainer(g *Generator, d *Discriminator) (*Trainer, error) {
	if g == nil {
		return nil, NilArgError{"Generator"}
	} else if d == nil {
		return nil, NilArgError{"Discriminator"}
	} else if g.Config() != d.Config() {
		return nil, errors.Errorf("Generator and Discriminator configs differ")
	}

	cfg := g.Config()
	anchorSrc := rand.NewSource(cfg.Seed)

	realAnchor, err := BuildAnchor(cfg.NumOutcomes, cfg.RealAnchorCenter, cfg.AnchorSamples, anchorSrc)
	if err != nil {
		return nil, errors.Wrapf(err, "Building real anchor failed")
	}

	fakeAnchor, err := BuildAnchor(cfg.NumOutcomes, cfg.FakeAnchorCenter, cfg.AnchorSamples, anchorSrc)
	if err != nil {
		return nil, errors.Wrapf(err, "Building fake anchor failed")
	}

	ema, err := NewEMAGenerator(g, cfg.EMABeta)
	if err != nil {
		return nil, errors.Wrapf(err, "Building EMA generator failed")
	}

	return &Trainer{
		cfg:         cfg,
		g:           g,
		d:           d,
		ema:         ema,
		optG:        optimizers.Adam().LearningRate(cfg.LearningRateG).Betas(cfg.Beta1, cfg.Beta2),
		optD:        optimizers.Adam().LearningRate(cfg.LearningRateD).Betas(cfg.Beta1, cfg.Beta2),
		realAnchor:  realAnchor,
		fakeAnchor:  fakeAnchor,
		latentNoise: distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(cfg.Seed + 1)},
	}, nil
}

// RealAnchor returns the constant target distribution for real images.
func (t *Trainer) RealAnchor() AnchorDistribution { return t.realAnchor }

// FakeAnchor returns the constant target distribution for generated images.
func (t *Trainer) FakeAnchor() AnchorDistribution { return t.fakeAnchor }

// EMA returns the averaged generator snapshot.
func (t *Trainer) EMA() *EMAGenerator { return t.ema }

// Step returns the number of completed training steps.
func (t *Trainer) Step() int { return t.step }

// SampleLatents draws a [batch, LatentSize] matrix of standard-normal
// latent vectors from the trainer's own seeded source.
func (t *Trainer) SampleLatents(batch int) *tensor.Tensor {
	z := tensor.New(batch, t.cfg.LatentSize)
	for i := range z.Data {
		z.Data[i] = t.latentNoise.Rand()
	}

	return z
}

// Result reports the losses of one completed training step.
type Result struct {
	Step  int
	DLoss float64
	GLoss float64
}

// scoreBoth runs real and generated images through the discriminator as
// one concatenated batch, so each sub-step costs exactly one power
// iteration and leaves one cached activation set for its single backward
// pass, and splits the scores back apart.
func (t *Trainer) scoreBoth(reals, fakes *tensor.Tensor, mode layers.Mode, reparam bool) (scores, realScores, fakeScores *tensor.Tensor, err error) {
	batch := reals.Dim(0)
	scores, err = t.d.Forward(tensor.Concat(reals, fakes), mode, reparam)
	if err != nil {
		return nil, nil, nil, err
	}

	return scores, scores.SplitRows(0, batch), scores.SplitRows(batch, 2*batch), nil
}

// RunStep performs one full training step on a batch of real images in
// [-1, 1]: discriminator update, generator update against the updated
// discriminator, EMA snapshot. The same latent batch feeds both sub-steps.
func (t *Trainer) RunStep(reals *tensor.Tensor) (Result, error) {
	if reals == nil {
		return Result{}, NilArgError{"reals"}
	}

	batch := reals.Dim(0)
	latents := t.SampleLatents(batch)

	// Discriminator sub-step: always reparameterized. Pull the real scores
	// toward the real anchor and the fake scores toward the fake anchor.
	fakes := t.g.Forward(latents, layers.Train)
	_, realScores, fakeScores, err := t.scoreBoth(reals, fakes, layers.Train, true)
	if err != nil {
		return Result{}, errors.Wrapf(err, "Discriminator sub-step of step %d failed", t.step)
	}

	dLoss := KLDivergence(t.realAnchor.Row(), realScores) +
		KLDivergence(t.fakeAnchor.Row(), fakeScores)

	_, gradReal := KLDivergenceGrads(t.realAnchor.Row(), realScores)
	_, gradFake := KLDivergenceGrads(t.fakeAnchor.Row(), fakeScores)
	t.d.Backward(tensor.Concat(gradReal, gradFake))
	if err := t.optD.Step(t.d.Params(), t.d.Grads()); err != nil {
		return Result{}, errors.Wrapf(err, "Discriminator update of step %d failed", t.step)
	}

	// Generator sub-step: the discriminator's mode follows the run
	// configuration here, and its scores are recomputed against its
	// just-updated parameters. Pull the fake scores toward the real ones
	// and away from the fake anchor; only the generator is updated.
	fakes = t.g.Forward(latents, layers.Train)
	_, realScores, fakeScores, err = t.scoreBoth(reals, fakes, layers.Train, t.cfg.ReparamInGTraining)
	if err != nil {
		return Result{}, errors.Wrapf(err, "Generator sub-step of step %d failed", t.step)
	}

	gLoss := KLDivergence(realScores, fakeScores) -
		KLDivergence(t.fakeAnchor.Row(), fakeScores)

	// The loss gradient reaches the generator only through the fake
	// scores; the real rows get zero gradient, so the backward pass
	// through the discriminator leaves the real images' path out of the
	// generator update entirely.
	_, gradVsReal := KLDivergenceGrads(realScores, fakeScores)
	_, gradVsAnchor := KLDivergenceGrads(t.fakeAnchor.Row(), fakeScores)
	gradFakeScores := tensor.New(fakeScores.Dims...)
	for i := range gradFakeScores.Data {
		gradFakeScores.Data[i] = gradVsReal.Data[i] - gradVsAnchor.Data[i]
	}

	gradScores := tensor.New(batch*2, t.cfg.NumOutcomes)
	copy(gradScores.Data[batch*t.cfg.NumOutcomes:], gradFakeScores.Data)

	gradImages := t.d.Backward(gradScores)
	t.g.Backward(gradImages.SplitRows(batch, 2*batch))
	if err := t.optG.Step(t.g.Params(), t.g.Grads()); err != nil {
		return Result{}, errors.Wrapf(err, "Generator update of step %d failed", t.step)
	}

	t.ema.Update(t.g)
	t.step++

	return Result{Step: t.step, DLoss: dLoss, GLoss: gLoss}, nil
}

// DiscriminatorLoss computes the discriminator objective for the given
// batches without updating anything: evaluation mode, so no spectral-norm
// state is persisted and no batch statistics move. With reparam false the
// result is a pure function of the inputs and parameters.
func (t *Trainer) DiscriminatorLoss(reals, latents *tensor.Tensor, reparam bool) (float64, error) {
	fakes := t.g.Forward(latents, layers.Eval)
	_, realScores, fakeScores, err := t.scoreBoth(reals, fakes, layers.Eval, reparam)
	if err != nil {
		return 0, err
	}

	return KLDivergence(t.realAnchor.Row(), realScores) +
		KLDivergence(t.fakeAnchor.Row(), fakeScores), nil
}

// GeneratorLoss computes the generator objective without updating
// anything, in evaluation mode.
func (t *Trainer) GeneratorLoss(reals, latents *tensor.Tensor, reparam bool) (float64, error) {
	fakes := t.g.Forward(latents, layers.Eval)
	_, realScores, fakeScores, err := t.scoreBoth(reals, fakes, layers.Eval, reparam)
	if err != nil {
		return 0, err
	}

	return KLDivergence(realScores, fakeScores) -
		KLDivergence(t.fakeAnchor.Row(), fakeScores), nil
}

// TrainArgs carries the options for a training run.
type TrainArgs struct {
	// Data supplies real images in [0, 1]; it is shuffled once per epoch
	// and must hold at least one full batch.
	Data ImageSource

	// RunCondition is called before every step and stops the run when it
	// returns false.
	RunCondition func(step int) bool

	// Metrics receives loss curves and periodic EMA sample grids. It can
	// be nil to disable reporting.
	Metrics MetricsSink

	// LogEvery is the scalar reporting period in steps. Defaults to 50.
	LogEvery int

	// SampleEvery is the sample-grid period in steps; 0 disables sample
	// logging. Sampling runs the EMA generator in evaluation mode and has
	// no effect on training.
	SampleEvery int

	// SampleCount is the number of images per logged grid. Defaults to 16.
	SampleCount int

	// Update is called after every step with that step's Result. It can be
	// left nil.
	Update func(Result)
}

// Train runs steps until RunCondition returns false, pulling batches from
// the image source epoch by epoch. Errors are fatal; there is no retry.
func (t *Trainer) Train(args TrainArgs) error {
	// handle error cases and set defaults
	{
		if args.Data == nil {
			return NilArgError{"TrainArgs.Data"}
		}

		if args.Data.Count() == 0 {
			return ErrEmptySource
		} else if args.Data.Count() < t.cfg.BatchSize {
			return errors.Errorf("Image source holds fewer images than one batch (%d < %d)",
				args.Data.Count(), t.cfg.BatchSize)
		}

		if args.RunCondition == nil {
			return NilArgError{"TrainArgs.RunCondition"}
		}

		if args.Update == nil {
			args.Update = func(Result) {}
		}

		if args.LogEvery < 1 {
			args.LogEvery = 50
		}

		if args.SampleCount < 1 {
			args.SampleCount = 16
		}
	}

	// a fixed latent batch keeps successive sample grids comparable
	sampleLatents := t.SampleLatents(args.SampleCount)

	var dWindow, gWindow []float64
	for {
		args.Data.Shuffle()
		it := args.Data.Iterate(t.cfg.BatchSize)

		for {
			reals, ok := it.Next()
			if !ok {
				break
			}

			if !args.RunCondition(t.step) {
				return t.finish(args)
			}

			// sources hand out [0, 1]; the networks live in [-1, 1]
			for i, v := range reals.Data {
				reals.Data[i] = 2*v - 1
			}

			res, err := t.RunStep(reals)
			if err != nil {
				return errors.Wrapf(err, "Training step %d failed", t.step)
			}

			dWindow = append(dWindow, res.DLoss)
			gWindow = append(gWindow, res.GLoss)

			if args.Metrics != nil && res.Step%args.LogEvery == 0 {
				args.Metrics.Scalar("loss/discriminator", stat.Mean(dWindow, nil), res.Step)
				args.Metrics.Scalar("loss/generator", stat.Mean(gWindow, nil), res.Step)
				dWindow, gWindow = dWindow[:0], gWindow[:0]
			}

			if args.Metrics != nil && args.SampleEvery > 0 && res.Step%args.SampleEvery == 0 {
				grid := t.ema.Generator().Sample(sampleLatents, t.cfg.BatchSize)
				args.Metrics.Images("samples/ema", grid, res.Step)
			}

			args.Update(res)
		}
	}
}

func (t *Trainer) finish(args TrainArgs) error {
	if args.Metrics == nil {
		return nil
	}

	if err := args.Metrics.Flush(); err != nil {
		return errors.Wrapf(err, "Flushing metrics failed")
	}

	return nil
}
