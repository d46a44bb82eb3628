package hydro

import "math"

const (
	// HbarC converts between GeV and fm⁻¹.
	HbarC = 0.19733

	// EpsilonFloor keeps equation-of-state lookups well defined.
	EpsilonFloor = 1e-11
)

// Cell is the fluid state of one lattice site.
type Cell struct {
	Epsilon float64
	RhoB    float64
	U       [4]float64
	Wmunu   [10]float64
	PiBulk  float64
	Qmu     [4]float64
}

// AtRest returns a static cell with the given energy and baryon densities.
func AtRest(epsilon, rhob float64) Cell {
	return Cell{
		Epsilon: math.Max(epsilon, EpsilonFloor),
		RhoB:    rhob,
		U:       [4]float64{1, 0, 0, 0},
	}
}

// IsValid reports whether every field is finite.
func (c *Cell) IsValid() bool {
	if !finite(c.Epsilon) || !finite(c.RhoB) || !finite(c.PiBulk) {
		return false
	}
	for _, v := range c.U {
		if !finite(v) {
			return false
		}
	}
	for _, v := range c.Wmunu {
		if !finite(v) {
			return false
		}
	}
	for _, v := range c.Qmu {
		if !finite(v) {
			return false
		}
	}
	return true
}

// Velocity returns the three-velocity v^i = u^i/u^τ.
func (c *Cell) Velocity() [3]float64 {
	return [3]float64{c.U[1] / c.U[0], c.U[2] / c.U[0], c.U[3] / c.U[0]}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
