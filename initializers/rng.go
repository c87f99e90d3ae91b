package initializers

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// RNG needs no explanation
type RNG interface {
	Gen() float64
}

type uniform struct {
	dist distuv.Uniform
}

// Uniform returns an RNG that gives values uniformly spread between its
// bounds, which can be set by Bounds.
func Uniform() *uniform {
	return &uniform{distuv.Uniform{
		Min: defaultValue["uniform-lower"],
		Max: defaultValue["uniform-upper"],
	}}
}

// Bounds sets the range of a Uniform RNG, returning it.
func (u *uniform) Bounds(lower, upper float64) *uniform {
	u.dist.Min = lower
	u.dist.Max = upper
	return u
}

// Seed gives the RNG its own seeded source, detaching it from the shared
// global source.
func (u *uniform) Seed(seed uint64) *uniform {
	u.dist.Src = rand.NewSource(seed)
	return u
}

// Gen is the implementation of RNG for Uniform. It returns a random number.
func (u *uniform) Gen() float64 {
	return u.dist.Rand()
}

type normal struct {
	dist distuv.Normal
}

// Normal returns an RNG that gives values within a normal distribution. The
// center and standard deviation can be set by Mean and SD, respectively.
//
// Default centers and standard deviations can be set by SetDefault for
// "normal-mean" and "normal-sd".
func Normal() *normal {
	return &normal{distuv.Normal{
		Mu:    defaultValue["normal-mean"],
		Sigma: defaultValue["normal-sd"],
	}}
}

// SD sets the value of the standard deviation of the normal distribution.
func (n *normal) SD(sd float64) *normal {
	n.dist.Sigma = sd
	return n
}

// Mean sets the center of the normal distribution.
func (n *normal) Mean(mean float64) *normal {
	n.dist.Mu = mean
	return n
}

// Seed gives the RNG its own seeded source.
func (n *normal) Seed(seed uint64) *normal {
	n.dist.Src = rand.NewSource(seed)
	return n
}

// Gen is the implementation of RNG for Normal. It returns a random number.
func (n *normal) Gen() float64 {
	return n.dist.Rand()
}

type truncNormal struct {
	*normal
	trunc float64
}

const defaultTrunc float64 = 2.0

// TruncNormal returns an RNG that gives values within a truncated normal
// distribution, cut off at 2 standard deviations by default. The center and
// standard deviation are set the same way as Normal, which is embedded.
//
// The number of standard deviations to truncate at can be set by Trunc.
func TruncNormal() *truncNormal {
	return &truncNormal{Normal(), defaultTrunc}
}

// Trunc sets the number of standard deviations to keep on either side.
// Trunc will panic if given sds <= 0.
func (t *truncNormal) Trunc(sds float64) *truncNormal {
	if sds <= 0 {
		panic("given number of standard deviations to truncate after is <= 0")
	}

	t.trunc = sds
	return t
}

// Gen is the implementation of RNG for TruncNormal. It returns a random
// number by rejection sampling on the embedded Normal.
func (t *truncNormal) Gen() float64 {
	mu, sd := t.dist.Mu, t.dist.Sigma
	for {
		v := (t.dist.Rand() - mu) / sd
		if v < -t.trunc || v > t.trunc {
			continue
		}

		return v*sd + mu
	}
}
