package realness

// Error is a wrapper for specific types of errors for which there is no
// additional information necessary. These errors are defined as global
// variables.
type Error struct{ string }

func (err Error) Error() string {
	return err.string
}

// These are the global errors that may be returned or panicked.
var (
	ErrEmptySource = Error{"Image source has no images"}
)

// NilArgError documents errors resulting from certain arguments provided to
// a function being nil.
type NilArgError struct{ string }

func (err NilArgError) Error() string {
	return err.string + " is nil"
}

// ConfigError documents an invalid hyperparameter, reported at construction
// time so that a malformed configuration never reaches training.
type ConfigError struct {
	Field   string
	Problem string
}

func (err ConfigError) Error() string {
	return "invalid config: " + err.Field + " " + err.Problem
}
