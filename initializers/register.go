package initializers

import (
	"math"

	"github.com/pkg/errors"
)

// default values, because 'default' is a keyword
var defaultValue map[string]float64

func init() {
	defaultValue = map[string]float64{
		"uniform-lower": -1,
		"uniform-upper": 1,
		"normal-mean":   0,
		"normal-sd":     1,
		"he-factor":     2,
	}
}

// SetDefault overrides the package-level default named by 'name', returning
// error if the name is not recognized or the value is NaN/Inf.
func SetDefault(name string, value float64) error {
	if _, ok := defaultValue[name]; !ok {
		return errors.Errorf("Value with name %q does not exist", name)
	} else if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.Errorf("Value is invalid (%v)", value)
	}

	defaultValue[name] = value
	return nil
}
