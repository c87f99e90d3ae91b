package realness

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/t-ae/realness-gan/layers"
	"github.com/t-ae/realness-gan/tensor"
)

// discStage halves the working resolution once: two spectrally normalized
// convolutions with leaky activations, then average pooling, with an
// optional 1×1 shortcut path summed in.
type discStage struct {
	res int // resolution this stage consumes

	conv1 *layers.Conv2D
	act1  *layers.LeakyReLU2D
	conv2 *layers.Conv2D
	act2  *layers.LeakyReLU2D
	pool  *layers.AvgPool2D

	shortConv *layers.Conv2D // nil when the block is not residual
	shortPool *layers.AvgPool2D
}

func (s *discStage) forward(x *tensor.Tensor, mode layers.Mode) *tensor.Tensor {
	main := s.act1.Forward(s.conv1.Forward(x, mode), mode)
	main = s.act2.Forward(s.conv2.Forward(main, mode), mode)
	main = s.pool.Forward(main, mode)

	if s.shortConv == nil {
		return main
	}

	short := s.shortPool.Forward(s.shortConv.Forward(x, mode), mode)
	out := main.Clone()
	for i := range out.Data {
		out.Data[i] += short.Data[i]
	}

	return out
}

func (s *discStage) backward(grad *tensor.Tensor) *tensor.Tensor {
	gradIn := s.conv1.Backward(s.act1.Backward(
		s.conv2.Backward(s.act2.Backward(s.pool.Backward(grad)))))

	if s.shortConv != nil {
		short := s.shortConv.Backward(s.shortPool.Backward(grad))
		for i := range gradIn.Data {
			gradIn.Data[i] += short.Data[i]
		}
	}

	return gradIn
}

func (s *discStage) layers() []layers.Layer {
	ls := []layers.Layer{s.conv1, s.act1, s.conv2, s.act2, s.pool}
	if s.shortConv != nil {
		ls = append(ls, s.shortConv, s.shortPool)
	}

	return ls
}

// rgbEntry is the per-resolution input projection, symmetric to the
// generator's per-resolution RGB heads.
type rgbEntry struct {
	conv *layers.Conv2D
	act  *layers.LeakyReLU2D
}

// Discriminator maps an image to a probability distribution over the
// discrete realness outcomes. Every convolution and dense layer is
// spectrally normalized. The output mode — reparameterized or direct — is
// chosen per call, never stored, so the two sub-steps of a training step
// cannot leak state into each other.
type Discriminator struct {
	cfg Config

	entries []*rgbEntry  // parallel to cfg.resolutions()
	stages  []*discStage // stages[i] consumes cfg.resolutions()[i+1]

	trunk      *layers.Dense
	trunkAct   *layers.LeakyReLU2D
	meanHead   *layers.Dense
	logVarHead *layers.Dense
	softmax    *layers.Softmax2D

	noise distuv.Normal

	// cached by Forward for Backward
	lastEntry   int
	lastReparam bool
	lastLogVar  *tensor.Tensor
	lastNoise   *tensor.Tensor
}

// NewDiscriminator builds a discriminator for the given configuration,
// validating it first. Only the blocks at and below ImageSize exist; there
// are no zero-width placeholders for higher resolutions.
func NewDiscriminator(cfg Config) (*Discriminator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sn := cfg.PowerIterations
	baseCh := cfg.channelsAt(4)

	d := &Discriminator{
		cfg:        cfg,
		trunk:      layers.NewDense(baseCh*4*4, baseCh).SpectralNorm(sn),
		trunkAct:   layers.LeakyReLU(cfg.LeakySlope),
		meanHead:   layers.NewDense(baseCh, cfg.NumOutcomes).SpectralNorm(sn),
		logVarHead: layers.NewDense(baseCh, cfg.NumOutcomes).SpectralNorm(sn),
		softmax:    layers.Softmax(),
		noise:      distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(cfg.Seed)},
	}

	for _, res := range cfg.resolutions() {
		d.entries = append(d.entries, &rgbEntry{
			conv: layers.Conv(3, cfg.channelsAt(res), 3).Pad(1).SpectralNorm(sn),
			act:  layers.LeakyReLU(cfg.LeakySlope),
		})

		if res > 4 {
			inCh, outCh := cfg.channelsAt(res), cfg.channelsAt(res/2)
			stage := &discStage{
				res:   res,
				conv1: layers.Conv(inCh, outCh, 3).Pad(1).SpectralNorm(sn),
				act1:  layers.LeakyReLU(cfg.LeakySlope),
				conv2: layers.Conv(outCh, outCh, 3).Pad(1).SpectralNorm(sn),
				act2:  layers.LeakyReLU(cfg.LeakySlope),
				pool:  layers.AvgPool(),
			}
			if cfg.ResidualBlocks {
				stage.shortConv = layers.Conv(inCh, outCh, 1).NoBias().SpectralNorm(sn)
				stage.shortPool = layers.AvgPool()
			}

			d.stages = append(d.stages, stage)
		}
	}

	return d, nil
}

// Forward scores a batch of images, shape [B, 3, res, res] for any
// supported resolution, entering the cascade at that resolution. With
// reparam the outcome logits are sampled as mean + exp(0.5*logVar)*noise
// with fresh Gaussian noise; without it the mean is used directly. Either
// way the rows of the returned [B, NumOutcomes] matrix sum to 1.
func (d *Discriminator) Forward(images *tensor.Tensor, mode layers.Mode, reparam bool) (*tensor.Tensor, error) {
	res := images.Dim(2)
	entry := -1
	for i, r := range d.cfg.resolutions() {
		if r == res {
			entry = i
			break
		}
	}
	if entry == -1 {
		return nil, errors.Errorf("Resolution %d is not in the discriminator's cascade (max %d)", res, d.cfg.ImageSize)
	} else if images.Dim(1) != 3 || images.Dim(3) != res {
		return nil, errors.Errorf("Images must be [B, 3, %d, %d] (got [%d, %d, %d, %d])",
			res, res, images.Dim(0), images.Dim(1), images.Dim(2), images.Dim(3))
	}

	x := d.entries[entry].act.Forward(d.entries[entry].conv.Forward(images, mode), mode)
	for i := entry - 1; i >= 0; i-- {
		x = d.stages[i].forward(x, mode)
	}

	batch := x.Dim(0)
	feat := d.trunkAct.Forward(d.trunk.Forward(x.Reshape(batch, x.Elems()/batch), mode), mode)

	mean := d.meanHead.Forward(feat, mode)
	logVar := d.logVarHead.Forward(feat, mode)

	logits := mean
	d.lastEntry = entry
	d.lastReparam = reparam
	d.lastLogVar = logVar
	d.lastNoise = nil

	if reparam {
		noise := tensor.New(logVar.Dims...)
		for i := range noise.Data {
			noise.Data[i] = d.noise.Rand()
		}

		logits = tensor.New(mean.Dims...)
		for i := range logits.Data {
			logits.Data[i] = mean.Data[i] + math.Exp(0.5*logVar.Data[i])*noise.Data[i]
		}

		d.lastNoise = noise
	}

	return d.softmax.Forward(logits, mode), nil
}

// Backward pushes the score gradient back to the input images, filling
// parameter gradients along the way. In direct mode the log-variance head
// still took part in the forward pass, so it is backpropagated with a zero
// gradient to keep its parameter gradients in step.
func (d *Discriminator) Backward(grad *tensor.Tensor) *tensor.Tensor {
	dLogits := d.softmax.Backward(grad)

	dLogVar := tensor.New(d.lastLogVar.Dims...)
	if d.lastReparam {
		for i := range dLogVar.Data {
			dLogVar.Data[i] = dLogits.Data[i] * 0.5 * math.Exp(0.5*d.lastLogVar.Data[i]) * d.lastNoise.Data[i]
		}
	}

	gFeat := d.meanHead.Backward(dLogits)
	gFeatVar := d.logVarHead.Backward(dLogVar)
	for i := range gFeat.Data {
		gFeat.Data[i] += gFeatVar.Data[i]
	}

	gx := d.trunk.Backward(d.trunkAct.Backward(gFeat))
	batch := gx.Dim(0)
	baseCh := d.cfg.channelsAt(4)
	gmap := gx.Reshape(batch, baseCh, 4, 4)

	for i := 0; i < d.lastEntry; i++ {
		gmap = d.stages[i].backward(gmap)
	}

	e := d.entries[d.lastEntry]
	return e.conv.Backward(e.act.Backward(gmap))
}

// Config returns the configuration the discriminator was built from.
func (d *Discriminator) Config() Config {
	return d.cfg
}

func (d *Discriminator) allLayers() []layers.Layer {
	ls := []layers.Layer{}
	for _, e := range d.entries {
		ls = append(ls, e.conv, e.act)
	}
	for _, s := range d.stages {
		ls = append(ls, s.layers()...)
	}

	return append(ls, d.trunk, d.trunkAct, d.meanHead, d.logVarHead, d.softmax)
}

// Params returns every trainable parameter group in a fixed order shared
// with Grads.
func (d *Discriminator) Params() [][]float64 {
	var ps [][]float64
	for _, l := range d.allLayers() {
		ps = append(ps, l.Params()...)
	}

	return ps
}

func (d *Discriminator) Grads() [][]float64 {
	var gs [][]float64
	for _, l := range d.allLayers() {
		gs = append(gs, l.Grads()...)
	}

	return gs
}
