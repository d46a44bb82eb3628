// Package eos provides equations of state mapping (ε, n_B) to pressure,
// temperature, entropy density and sound speed. All quantities are in fm
// units: ε and p in fm⁻⁴, T and μ_B in fm⁻¹, s and n_B in fm⁻³.
package eos

import (
	"fmt"
	"strings"
)

// EquationOfState is consumed by primitive recovery, the regularizer and
// the initial-condition stage.
type EquationOfState interface {
	Pressure(eps, rhob float64) float64
	Temperature(eps, rhob float64) float64
	Entropy(eps, rhob float64) float64
	EnergyFromEntropy(s, rhob float64) float64
	SoundSpeed2(eps, rhob float64) float64
	ChemicalPotential(eps, rhob float64) float64
}

// New resolves an EOS by name. path is only used by the tabulated EOS.
func New(kind, path string) (EquationOfState, error) {
	switch strings.ToLower(kind) {
	case "", "ideal":
		return NewIdeal(DefaultDegeneracy), nil
	case "table":
		if path == "" {
			return nil, fmt.Errorf("eos: table EOS needs a file path")
		}
		return LoadTable(path)
	}
	return nil, fmt.Errorf("eos: unknown equation of state %q", kind)
}
