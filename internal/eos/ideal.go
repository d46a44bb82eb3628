package eos

import "math"

// DefaultDegeneracy counts gluons plus three massless quark flavours.
const DefaultDegeneracy = 2*8 + 7.0/8.0*2*2*3*3

// Ideal is a conformal massless gas, p = ε/3. Baryon density does not
// contribute to the pressure.
type Ideal struct {
	a float64
}

// NewIdeal returns a conformal gas with g internal degrees of freedom.
func NewIdeal(g float64) *Ideal {
	return &Ideal{a: g * math.Pi * math.Pi / 90}
}

func (e *Ideal) Pressure(eps, _ float64) float64 {
	return math.Max(eps, 0) / 3
}

func (e *Ideal) Temperature(eps, _ float64) float64 {
	return math.Pow(math.Max(eps, 0)/(3*e.a), 0.25)
}

func (e *Ideal) Entropy(eps, rhob float64) float64 {
	t := e.Temperature(eps, rhob)
	return 4 * e.a * t * t * t
}

func (e *Ideal) EnergyFromEntropy(s, _ float64) float64 {
	t := math.Cbrt(math.Max(s, 0) / (4 * e.a))
	return 3 * e.a * t * t * t * t
}

func (e *Ideal) SoundSpeed2(_, _ float64) float64 { return 1.0 / 3.0 }

func (e *Ideal) ChemicalPotential(_, _ float64) float64 { return 0 }
