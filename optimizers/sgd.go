package optimizers

import (
	"github.com/pkg/errors"
)

type sgd struct {
	lr float64
}

const defaultLearningRate = 0.01

// SGD returns plain stochastic gradient descent. The learning rate defaults
// to 0.01 and can be set by LearningRate.
func SGD() *sgd {
	return &sgd{lr: defaultLearningRate}
}

// LearningRate sets the step size.
func (s *sgd) LearningRate(lr float64) *sgd {
	s.lr = lr
	return s
}

func (s *sgd) Step(params, grads [][]float64) error {
	if len(params) != len(grads) {
		return errors.Errorf("Number of parameter groups does not match gradients (%d != %d)", len(params), len(grads))
	}

	for g := range params {
		if len(params[g]) != len(grads[g]) {
			return errors.Errorf("Size of parameter group %d does not match its gradients (%d != %d)", g, len(params[g]), len(grads[g]))
		}

		for i := range params[g] {
			params[g][i] -= s.lr * grads[g][i]
		}
	}

	return nil
}
