package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

// MaxEpsilon reports the peak energy density in GeV/fm³.
type MaxEpsilon struct {
	name  string
	buf   []float64
	value float64
}

func NewMaxEpsilon() *MaxEpsilon { return &MaxEpsilon{name: "max_epsilon"} }

func (m *MaxEpsilon) Name() string { return m.name }

func (m *MaxEpsilon) Observe(g *hydro.Grid, _ float64) {
	m.buf = column(m.buf, g, func(c *hydro.Cell) float64 { return c.Epsilon })
	m.value = floats.Max(m.buf) * hydro.HbarC
}

func (m *MaxEpsilon) Value() float64 { return m.value }

func (m *MaxEpsilon) Reset() { m.value = 0 }

// MaxTemperature reports the peak temperature in GeV.
type MaxTemperature struct {
	name  string
	eos   eos.EquationOfState
	buf   []float64
	value float64
}

func NewMaxTemperature(e eos.EquationOfState) *MaxTemperature {
	return &MaxTemperature{name: "max_temperature", eos: e}
}

func (m *MaxTemperature) Name() string { return m.name }

func (m *MaxTemperature) Observe(g *hydro.Grid, _ float64) {
	m.buf = column(m.buf, g, func(c *hydro.Cell) float64 {
		return m.eos.Temperature(c.Epsilon, c.RhoB)
	})
	m.value = floats.Max(m.buf) * hydro.HbarC
}

func (m *MaxTemperature) Value() float64 { return m.value }

func (m *MaxTemperature) Reset() { m.value = 0 }
