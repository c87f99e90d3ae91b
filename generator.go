package realness

import (
	"github.com/pkg/errors"

	"github.com/t-ae/realness-gan/layers"
	"github.com/t-ae/realness-gan/tensor"
)

// genStage doubles the working resolution once: upsample, then two
// convolution/normalization/activation pairs at the stage's feature width.
type genStage struct {
	res int // resolution this stage produces

	up    *layers.Upsample2D
	conv1 *layers.Conv2D
	bn1   *layers.BatchNorm2D
	act1  *layers.ReLU2D
	conv2 *layers.Conv2D
	bn2   *layers.BatchNorm2D
	act2  *layers.ReLU2D
}

func (s *genStage) forward(x *tensor.Tensor, mode layers.Mode) *tensor.Tensor {
	x = s.up.Forward(x, mode)
	x = s.act1.Forward(s.bn1.Forward(s.conv1.Forward(x, mode), mode), mode)
	x = s.act2.Forward(s.bn2.Forward(s.conv2.Forward(x, mode), mode), mode)
	return x
}

func (s *genStage) backward(grad *tensor.Tensor) *tensor.Tensor {
	grad = s.conv2.Backward(s.bn2.Backward(s.act2.Backward(grad)))
	grad = s.conv1.Backward(s.bn1.Backward(s.act1.Backward(grad)))
	return s.up.Backward(grad)
}

func (s *genStage) layers() []layers.Layer {
	return []layers.Layer{s.up, s.conv1, s.bn1, s.act1, s.conv2, s.bn2, s.act2}
}

// rgbHead projects a stage's feature maps to a 3-channel image in [-1, 1].
// Every supported resolution owns its own head, which is what makes each
// resolution's output independently retrievable.
type rgbHead struct {
	conv *layers.Conv2D
	tanh *layers.Tanh2D
}

// Generator maps latent vectors to images through a cascade of upsampling
// stages. The topology is fixed by the Config: a dense expansion of the
// latent to a 4×4 base map, one doubling stage per power of two up to
// ImageSize, and a per-resolution RGB projection.
type Generator struct {
	cfg Config

	project *layers.Dense
	bn0     *layers.BatchNorm2D
	act0    *layers.ReLU2D
	stages  []*genStage
	heads   []*rgbHead // parallel to cfg.resolutions()

	// route taken by the last Forward, for Backward
	lastStages int
	lastHead   *rgbHead
}

// NewGenerator builds a generator for the given configuration. The
// configuration is validated first; construction is the last point at
// which a malformed one can be caught.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseCh := cfg.channelsAt(4)
	g := &Generator{
		cfg:     cfg,
		project: layers.NewDense(cfg.LatentSize, baseCh*4*4),
		bn0:     layers.BatchNorm(baseCh),
		act0:    layers.ReLU(),
	}

	for _, res := range cfg.resolutions() {
		if res > 4 {
			inCh, outCh := cfg.channelsAt(res/2), cfg.channelsAt(res)
			g.stages = append(g.stages, &genStage{
				res:   res,
				up:    layers.Upsample(2),
				conv1: layers.Conv(inCh, outCh, 3).Pad(1),
				bn1:   layers.BatchNorm(outCh),
				act1:  layers.ReLU(),
				conv2: layers.Conv(outCh, outCh, 3).Pad(1),
				bn2:   layers.BatchNorm(outCh),
				act2:  layers.ReLU(),
			})
		}

		g.heads = append(g.heads, &rgbHead{
			conv: layers.Conv(cfg.channelsAt(res), 3, 3).Pad(1),
			tanh: layers.Tanh(),
		})
	}

	return g, nil
}

// Forward generates images at the configured final resolution.
func (g *Generator) Forward(latents *tensor.Tensor, mode layers.Mode) *tensor.Tensor {
	out, err := g.ForwardAt(latents, g.cfg.ImageSize, mode)
	if err != nil {
		// the final resolution always exists; anything else is a caller bug
		panic(err.Error())
	}

	return out
}

// ForwardAt generates images at any supported intermediate resolution,
// running only the stages up to it and that resolution's own RGB head.
// latents is [B, LatentSize]; the result is [B, 3, res, res] in [-1, 1].
func (g *Generator) ForwardAt(latents *tensor.Tensor, res int, mode layers.Mode) (*tensor.Tensor, error) {
	head := -1
	for i, r := range g.cfg.resolutions() {
		if r == res {
			head = i
			break
		}
	}
	if head == -1 {
		return nil, errors.Errorf("Resolution %d is not in the generator's cascade (max %d)", res, g.cfg.ImageSize)
	}

	batch := latents.Dim(0)
	baseCh := g.cfg.channelsAt(4)

	x := g.project.Forward(latents, mode).Reshape(batch, baseCh, 4, 4)
	x = g.act0.Forward(g.bn0.Forward(x, mode), mode)

	for _, s := range g.stages[:head] {
		x = s.forward(x, mode)
	}

	g.lastStages = head
	g.lastHead = g.heads[head]

	return g.lastHead.tanh.Forward(g.lastHead.conv.Forward(x, mode), mode), nil
}

// Backward pushes the image gradient back along the route the last Forward
// took, filling the parameter gradients of every layer on it. The returned
// latent gradient is rarely useful but completes the contract.
func (g *Generator) Backward(grad *tensor.Tensor) *tensor.Tensor {
	if g.lastHead == nil {
		panic("Generator Backward without Forward")
	}

	grad = g.lastHead.conv.Backward(g.lastHead.tanh.Backward(grad))
	for i := g.lastStages - 1; i >= 0; i-- {
		grad = g.stages[i].backward(grad)
	}

	grad = g.bn0.Backward(g.act0.Backward(grad))
	batch := grad.Dim(0)
	return g.project.Backward(grad.Reshape(batch, grad.Elems()/batch))
}

// Sample generates images at the final resolution in evaluation mode,
// processing the latents in sub-batches of chunkSize to bound memory, and
// concatenates the results.
func (g *Generator) Sample(latents *tensor.Tensor, chunkSize int) *tensor.Tensor {
	if chunkSize < 1 {
		chunkSize = latents.Dim(0)
	}

	var outs []*tensor.Tensor
	for from := 0; from < latents.Dim(0); from += chunkSize {
		to := from + chunkSize
		if to > latents.Dim(0) {
			to = latents.Dim(0)
		}

		outs = append(outs, g.Forward(latents.SplitRows(from, to), layers.Eval))
	}

	return tensor.Concat(outs...)
}

// Config returns the configuration the generator was built from.
func (g *Generator) Config() Config {
	return g.cfg
}

func (g *Generator) allLayers() []layers.Layer {
	ls := []layers.Layer{g.project, g.bn0, g.act0}
	for _, s := range g.stages {
		ls = append(ls, s.layers()...)
	}
	for _, h := range g.heads {
		ls = append(ls, h.conv, h.tanh)
	}

	return ls
}

// Params returns every trainable parameter group, in a fixed order shared
// with Grads and with any other Generator built from the same Config.
func (g *Generator) Params() [][]float64 {
	var ps [][]float64
	for _, l := range g.allLayers() {
		ps = append(ps, l.Params()...)
	}

	return ps
}

func (g *Generator) Grads() [][]float64 {
	var gs [][]float64
	for _, l := range g.allLayers() {
		gs = append(gs, l.Grads()...)
	}

	return gs
}

// RunningStats returns the live batch-normalization statistics slices, in
// the same fixed order for structurally identical generators. They carry
// no gradients; the EMA snapshot copies them verbatim.
func (g *Generator) RunningStats() [][]float64 {
	var ss [][]float64
	for _, l := range g.allLayers() {
		if bn, ok := l.(*layers.BatchNorm2D); ok {
			mean, variance := bn.RunningStats()
			ss = append(ss, mean, variance)
		}
	}

	return ss
}
