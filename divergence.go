package realness

import (
	"math"

	"github.com/pkg/errors"

	"github.com/t-ae/realness-gan/tensor"
)

// klEpsilon guards the logarithm's ratio on both sides. It is the only
// numerical-stability measure the objective takes; collapsing
// distributions are allowed to surface as extreme loss values.
const klEpsilon = 1e-8

// KLDivergence computes the Kullback-Leibler divergence
//
//	mean over the batch of Σ_i p_i * log((p_i+ε)/(q_i+ε))
//
// q is a per-sample [B, N] batch of distributions; p is either a matching
// batch or a single [1, N] distribution broadcast across it. The
// divergence is not symmetric: argument order encodes the direction of
// approximation.
func KLDivergence(p, q *tensor.Tensor) float64 {
	batch := q.Dim(0)
	checkOperands(p, q)

	var total float64
	for b := 0; b < batch; b++ {
		pr := p.Row(broadcastRow(p, b))
		qr := q.Row(b)

		for i := range qr {
			total += pr[i] * math.Log((pr[i]+klEpsilon)/(qr[i]+klEpsilon))
		}
	}

	return total / float64(batch)
}

// KLDivergenceGrads returns the gradients of KLDivergence with respect to
// both operands, shaped like them. Both directions matter: the generator
// loss feeds discriminator outputs in as p, so the objective must be
// differentiable through either side. A broadcast p accumulates its
// gradient over the batch into its single row.
func KLDivergenceGrads(p, q *tensor.Tensor) (gradP, gradQ *tensor.Tensor) {
	batch := q.Dim(0)
	checkOperands(p, q)

	gradP = tensor.New(p.Dims...)
	gradQ = tensor.New(q.Dims...)
	inv := 1 / float64(batch)

	for b := 0; b < batch; b++ {
		row := broadcastRow(p, b)
		pr := p.Row(row)
		qr := q.Row(b)
		gp := gradP.Row(row)
		gq := gradQ.Row(b)

		for i := range qr {
			ratio := (pr[i] + klEpsilon) / (qr[i] + klEpsilon)
			gp[i] += inv * (math.Log(ratio) + pr[i]/(pr[i]+klEpsilon))
			gq[i] = -inv * pr[i] / (qr[i] + klEpsilon)
		}
	}

	return gradP, gradQ
}

func broadcastRow(p *tensor.Tensor, b int) int {
	if p.Dim(0) == 1 {
		return 0
	}

	return b
}

func checkOperands(p, q *tensor.Tensor) {
	if p.RowSize() != q.RowSize() {
		panic(errors.Errorf("KL operands have different outcome counts (%d != %d)", p.RowSize(), q.RowSize()).Error())
	} else if p.Dim(0) != 1 && p.Dim(0) != q.Dim(0) {
		panic(errors.Errorf("KL operand p must have 1 or %d rows (%d)", q.Dim(0), p.Dim(0)).Error())
	}
}
