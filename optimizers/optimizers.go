// Package optimizers provides the gradient-descent rules used to update
// network parameters. An Optimizer owns whatever per-parameter state its
// rule needs; parameter and gradient groups are passed as parallel slices
// of live float64 slices, so an optimizer instance must stay paired with
// one network.
package optimizers

// Optimizer applies one update to the given parameter groups from the
// matching gradient groups.
type Optimizer interface {
	Step(params, grads [][]float64) error
}
