// Package source defines dynamical energy-momentum and baryon injection into
// the fluid, added to the right-hand side of the conservation equations.
package source

// HydroSource returns source densities J^ν (fm⁻⁵) and ρ_B (fm⁻⁴) at a
// space-time point, in the same orthonormal frame as the fluid fields.
// Implementations must be safe for concurrent use.
type HydroSource interface {
	EnergyMomentum(tau, x, y, eta float64) [4]float64
	Baryon(tau, x, y, eta float64) float64
}

// None injects nothing.
type None struct{}

func (None) EnergyMomentum(_, _, _, _ float64) [4]float64 { return [4]float64{} }
func (None) Baryon(_, _, _, _ float64) float64             { return 0 }

// Constant injects a uniform source between TauStart and TauEnd.
type Constant struct {
	Density          [4]float64
	RhoB             float64
	TauStart, TauEnd float64
}

func (c Constant) active(tau float64) bool {
	return tau >= c.TauStart && tau < c.TauEnd
}

func (c Constant) EnergyMomentum(tau, _, _, _ float64) [4]float64 {
	if !c.active(tau) {
		return [4]float64{}
	}
	return c.Density
}

func (c Constant) Baryon(tau, _, _, _ float64) float64 {
	if !c.active(tau) {
		return 0
	}
	return c.RhoB
}
