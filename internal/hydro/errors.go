package hydro

import (
	"errors"
	"fmt"
)

// Domain errors for grid setup and evolution.
var (
	// ErrGridDimensions indicates a lattice with non-positive extents or spacings.
	ErrGridDimensions = errors.New("hydro: grid dimensions must be positive")

	// ErrDimensionMismatch indicates two grids (or a grid and a profile) of different extents.
	ErrDimensionMismatch = errors.New("hydro: grid dimension mismatch")

	// ErrUnstable indicates the weird-case fraction exceeded the configured sanity threshold.
	ErrUnstable = errors.New("hydro: evolution unstable (too many weird cases)")

	// ErrInvalidConfig indicates an out-of-range or unknown configuration value.
	ErrInvalidConfig = errors.New("hydro: invalid configuration")
)

// StepError wraps an error with proper-time loop context.
type StepError struct {
	Step    int
	Tau     float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (tau=%.4f fm): %v", e.Step, e.Tau, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
