package realness

// EMAGenerator maintains an exponential moving average of a generator's
// parameters: avg = beta*avg + (1-beta)*current after every step. The
// averaged copy never receives gradients; it exists to give inference and
// sample logging a smoother model than the raw training weights.
type EMAGenerator struct {
	beta float64
	avg  *Generator
}

// NewEMAGenerator builds the averaged copy from the generator's own
// configuration and initializes it to the generator's current parameters.
func NewEMAGenerator(g *Generator, beta float64) (*EMAGenerator, error) {
	if g == nil {
		return nil, NilArgError{"Generator"}
	}

	avg, err := NewGenerator(g.Config())
	if err != nil {
		return nil, err
	}

	e := &EMAGenerator{beta: beta, avg: avg}
	copyGroups(avg.Params(), g.Params())
	copyGroups(avg.RunningStats(), g.RunningStats())

	return e, nil
}

// Update folds the generator's current parameters into the average. Batch
// normalization running statistics carry no gradient and are copied
// verbatim rather than averaged.
func (e *EMAGenerator) Update(g *Generator) {
	avgParams := e.avg.Params()
	curParams := g.Params()
	for i := range avgParams {
		for j := range avgParams[i] {
			avgParams[i][j] = e.beta*avgParams[i][j] + (1-e.beta)*curParams[i][j]
		}
	}

	copyGroups(e.avg.RunningStats(), g.RunningStats())
}

// Generator returns the averaged model. It shares no storage with the
// trained generator and is safe to run in evaluation mode at any time.
func (e *EMAGenerator) Generator() *Generator {
	return e.avg
}

func copyGroups(dst, src [][]float64) {
	for i := range dst {
		copy(dst[i], src[i])
	}
}
