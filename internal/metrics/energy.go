package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

// labEnergy returns τT^{ττ} summed over the grid times the cell volume:
// the energy per unit rapidity in Milne coordinates, the total energy in
// Cartesian ones.
func labEnergy(buf []float64, e eos.EquationOfState, coords hydro.Coordinates, g *hydro.Grid, tau float64) ([]float64, float64) {
	buf = column(buf, g, func(c *hydro.Cell) float64 {
		p := e.Pressure(c.Epsilon, c.RhoB)
		u0 := c.U[0]
		return (c.Epsilon+p+c.PiBulk)*u0*u0 - p - c.PiBulk + c.Wmunu[0]
	})
	return buf, coords.TauFactor(tau) * g.CellVolume() * floats.Sum(buf)
}

type TotalEnergy struct {
	name   string
	eos    eos.EquationOfState
	coords hydro.Coordinates
	buf    []float64
	value  float64
}

func NewTotalEnergy(e eos.EquationOfState, coords hydro.Coordinates) *TotalEnergy {
	return &TotalEnergy{name: "total_energy", eos: e, coords: coords}
}

func (m *TotalEnergy) Name() string { return m.name }

func (m *TotalEnergy) Observe(g *hydro.Grid, tau float64) {
	m.buf, m.value = labEnergy(m.buf, m.eos, m.coords, g, tau)
}

func (m *TotalEnergy) Value() float64 { return m.value }

func (m *TotalEnergy) Reset() { m.value = 0 }

// EnergyDrift tracks the largest relative departure of the total energy from
// its first observation. Only Cartesian runs without outflow conserve it.
type EnergyDrift struct {
	name          string
	eos           eos.EquationOfState
	coords        hydro.Coordinates
	buf           []float64
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(e eos.EquationOfState, coords hydro.Coordinates) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", eos: e, coords: coords}
}

func (m *EnergyDrift) Name() string { return m.name }

func (m *EnergyDrift) Observe(g *hydro.Grid, tau float64) {
	var energy float64
	m.buf, energy = labEnergy(m.buf, m.eos, m.coords, g, tau)
	if m.samples == 0 {
		m.initialEnergy = energy
	}
	m.samples++

	if m.initialEnergy != 0 {
		drift := math.Abs(energy-m.initialEnergy) / math.Abs(m.initialEnergy)
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *EnergyDrift) Value() float64 { return m.maxDrift }

func (m *EnergyDrift) Reset() {
	m.initialEnergy = 0
	m.maxDrift = 0
	m.samples = 0
}
