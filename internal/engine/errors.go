package engine

import "errors"

var (
	// ErrNoLibDeps means the project has no .pio/libdeps directory, i.e.
	// dependencies have not been installed yet. Callers treat it as
	// informational.
	ErrNoLibDeps = errors.New("no .pio/libdeps directory")

	// ErrInvalidTrigger is returned for an unknown ir.Trigger.
	ErrInvalidTrigger = errors.New("invalid trigger")
)

// IsNoLibDeps reports whether err is or wraps ErrNoLibDeps.
func IsNoLibDeps(err error) bool {
	return errors.Is(err, ErrNoLibDeps)
}
