// Package metrics reduces a fluid grid to scalar observables once per step.
package metrics

import (
	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

type Metric interface {
	Name() string
	Observe(g *hydro.Grid, tau float64)
	Value() float64
	Reset()
}

// Standard returns the observables recorded for every run. epsMin is the
// lowest freeze-out threshold in fm⁻⁴.
func Standard(e eos.EquationOfState, coords hydro.Coordinates, epsMin float64) []Metric {
	return []Metric{
		NewTotalEnergy(e, coords),
		NewEnergyDrift(e, coords),
		NewMaxEpsilon(),
		NewMaxTemperature(e),
		NewMeanTransverseFlow(),
		NewFrozenFraction(epsMin),
		NewStability(),
	}
}

// column gathers one value per cell into buf.
func column(buf []float64, g *hydro.Grid, fn func(c *hydro.Cell) float64) []float64 {
	buf = buf[:0]
	for i := range g.Cells {
		buf = append(buf, fn(&g.Cells[i]))
	}
	return buf
}
