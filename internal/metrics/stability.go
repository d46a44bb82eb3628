package metrics

import "github.com/san-kum/relhydro/internal/hydro"

// Stability is the fraction of observed steps whose grid was entirely finite.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(g *hydro.Grid, _ float64) {
	s.samples++
	for i := range g.Cells {
		if !g.Cells[i].IsValid() {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
