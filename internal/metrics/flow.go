package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/relhydro/internal/hydro"
)

// MeanTransverseFlow is the energy-weighted mean of |v_T| = √(v_x²+v_y²).
type MeanTransverseFlow struct {
	name    string
	weights []float64
	speeds  []float64
	value   float64
}

func NewMeanTransverseFlow() *MeanTransverseFlow {
	return &MeanTransverseFlow{name: "mean_vt"}
}

func (m *MeanTransverseFlow) Name() string { return m.name }

func (m *MeanTransverseFlow) Observe(g *hydro.Grid, _ float64) {
	m.weights = column(m.weights, g, func(c *hydro.Cell) float64 { return c.Epsilon })
	m.speeds = column(m.speeds, g, func(c *hydro.Cell) float64 {
		v := c.Velocity()
		return math.Hypot(v[0], v[1])
	})
	total := floats.Sum(m.weights)
	if total <= 0 {
		m.value = 0
		return
	}
	m.value = floats.Dot(m.weights, m.speeds) / total
}

func (m *MeanTransverseFlow) Value() float64 { return m.value }

func (m *MeanTransverseFlow) Reset() { m.value = 0 }

// FrozenFraction is the fraction of cells below the lowest freeze-out
// threshold.
type FrozenFraction struct {
	name      string
	threshold float64
	value     float64
}

func NewFrozenFraction(threshold float64) *FrozenFraction {
	return &FrozenFraction{name: "frozen_fraction", threshold: threshold}
}

func (m *FrozenFraction) Name() string { return m.name }

func (m *FrozenFraction) Observe(g *hydro.Grid, _ float64) {
	frozen := 0
	for i := range g.Cells {
		if g.Cells[i].Epsilon < m.threshold {
			frozen++
		}
	}
	m.value = float64(frozen) / float64(len(g.Cells))
}

func (m *FrozenFraction) Value() float64 { return m.value }

func (m *FrozenFraction) Reset() { m.value = 0 }
