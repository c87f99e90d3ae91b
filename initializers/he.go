package initializers

import (
	"math"
)

// HeNormal returns an RNG suited to initializing the weights of a layer with
// rectified activations: zero-centered normal with standard deviation
// sqrt(factor/fanIn). The factor defaults to 2 and can be set by SetDefault
// for "he-factor".
func HeNormal(fanIn int) *normal {
	return Normal().SD(math.Sqrt(defaultValue["he-factor"] / float64(fanIn)))
}
