package optimizers

import (
	"math"

	"github.com/pkg/errors"
)

type adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64

	iter int
	m    [][]float64
	v    [][]float64
}

// Adam returns the Adam update rule with learning rate 0.001 and betas
// (0.9, 0.999); all three can be set by the chained setters. Moment state
// is allocated lazily on the first Step and is shaped by it, so one Adam
// instance serves exactly one network.
func Adam() *adam {
	return &adam{
		lr:      0.001,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-8,
	}
}

// LearningRate sets the step size.
func (a *adam) LearningRate(lr float64) *adam {
	a.lr = lr
	return a
}

// Betas sets the exponential decay rates of the first and second moment
// estimates.
func (a *adam) Betas(beta1, beta2 float64) *adam {
	a.beta1 = beta1
	a.beta2 = beta2
	return a
}

// Epsilon sets the denominator guard.
func (a *adam) Epsilon(eps float64) *adam {
	a.epsilon = eps
	return a
}

func (a *adam) Step(params, grads [][]float64) error {
	if len(params) != len(grads) {
		return errors.Errorf("Number of parameter groups does not match gradients (%d != %d)", len(params), len(grads))
	}

	if a.m == nil {
		a.m = make([][]float64, len(params))
		a.v = make([][]float64, len(params))
		for g := range params {
			a.m[g] = make([]float64, len(params[g]))
			a.v[g] = make([]float64, len(params[g]))
		}
	} else if len(a.m) != len(params) {
		return errors.Errorf("Optimizer is bound to %d parameter groups, given %d", len(a.m), len(params))
	}

	a.iter++
	c1 := 1 - math.Pow(a.beta1, float64(a.iter))
	c2 := 1 - math.Pow(a.beta2, float64(a.iter))

	for g := range params {
		if len(params[g]) != len(grads[g]) {
			return errors.Errorf("Size of parameter group %d does not match its gradients (%d != %d)", g, len(params[g]), len(grads[g]))
		} else if len(params[g]) != len(a.m[g]) {
			return errors.Errorf("Size of parameter group %d changed since first Step (%d != %d)", g, len(params[g]), len(a.m[g]))
		}

		for i := range params[g] {
			gr := grads[g][i]
			a.m[g][i] = a.beta1*a.m[g][i] + (1-a.beta1)*gr
			a.v[g][i] = a.beta2*a.v[g][i] + (1-a.beta2)*gr*gr

			mHat := a.m[g][i] / c1
			vHat := a.v[g][i] / c2
			params[g][i] -= a.lr * mHat / (math.Sqrt(vHat) + a.epsilon)
		}
	}

	return nil
}
