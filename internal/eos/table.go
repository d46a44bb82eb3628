package eos

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/relhydro/internal/hydro"
)

// Table is a tabulated μ_B = 0 equation of state interpolated piecewise
// linearly in ε. Outside the table the conformal scaling of the nearest
// endpoint is used.
type Table struct {
	eps, p, s, t  []float64
	pOf, sOf, tOf interp.PiecewiseLinear
	epsOfS        interp.PiecewiseLinear
}

// NewTable builds a table from strictly increasing energy densities.
func NewTable(eps, p, s, t []float64) (*Table, error) {
	n := len(eps)
	if n < 2 || len(p) != n || len(s) != n || len(t) != n {
		return nil, fmt.Errorf("eos: table columns must have equal length >= 2")
	}
	tab := &Table{eps: eps, p: p, s: s, t: t}
	if err := tab.pOf.Fit(eps, p); err != nil {
		return nil, fmt.Errorf("eos: pressure column: %w", err)
	}
	if err := tab.sOf.Fit(eps, s); err != nil {
		return nil, fmt.Errorf("eos: entropy column: %w", err)
	}
	if err := tab.tOf.Fit(eps, t); err != nil {
		return nil, fmt.Errorf("eos: temperature column: %w", err)
	}
	if err := tab.epsOfS.Fit(s, eps); err != nil {
		return nil, fmt.Errorf("eos: entropy must increase with energy density: %w", err)
	}
	return tab, nil
}

// LoadTable reads whitespace separated columns e[GeV/fm³] p[GeV/fm³]
// s[fm⁻³] T[GeV]. Lines starting with '#' are skipped.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eos: %w", err)
	}
	defer f.Close()

	var eps, p, s, t []float64
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 4 {
			return nil, fmt.Errorf("eos: %s:%d: expected 4 columns, got %d", path, line, len(fields))
		}
		var row [4]float64
		for i := 0; i < 4; i++ {
			row[i], err = strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("eos: %s:%d: %w", path, line, err)
			}
		}
		eps = append(eps, row[0]/hydro.HbarC)
		p = append(p, row[1]/hydro.HbarC)
		s = append(s, row[2])
		t = append(t, row[3]/hydro.HbarC)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("eos: %w", err)
	}
	return NewTable(eps, p, s, t)
}

func (tab *Table) lo() float64 { return tab.eps[0] }
func (tab *Table) hi() float64 { return tab.eps[len(tab.eps)-1] }

func (tab *Table) Pressure(eps, _ float64) float64 {
	switch {
	case eps <= 0:
		return 0
	case eps < tab.lo():
		return tab.p[0] * eps / tab.lo()
	case eps > tab.hi():
		return tab.p[len(tab.p)-1] * eps / tab.hi()
	}
	return tab.pOf.Predict(eps)
}

func (tab *Table) Temperature(eps, _ float64) float64 {
	switch {
	case eps <= 0:
		return 0
	case eps < tab.lo():
		return tab.t[0] * math.Pow(eps/tab.lo(), 0.25)
	case eps > tab.hi():
		return tab.t[len(tab.t)-1] * math.Pow(eps/tab.hi(), 0.25)
	}
	return tab.tOf.Predict(eps)
}

func (tab *Table) Entropy(eps, _ float64) float64 {
	switch {
	case eps <= 0:
		return 0
	case eps < tab.lo():
		return tab.s[0] * math.Pow(eps/tab.lo(), 0.75)
	case eps > tab.hi():
		return tab.s[len(tab.s)-1] * math.Pow(eps/tab.hi(), 0.75)
	}
	return tab.sOf.Predict(eps)
}

func (tab *Table) EnergyFromEntropy(s, _ float64) float64 {
	s0, s1 := tab.s[0], tab.s[len(tab.s)-1]
	switch {
	case s <= 0:
		return 0
	case s < s0:
		return tab.lo() * math.Pow(s/s0, 4.0/3.0)
	case s > s1:
		return tab.hi() * math.Pow(s/s1, 4.0/3.0)
	}
	return tab.epsOfS.Predict(s)
}

// SoundSpeed2 returns dp/dε from the bracketing table segment.
func (tab *Table) SoundSpeed2(eps, _ float64) float64 {
	n := len(tab.eps)
	if eps <= tab.lo() {
		return tab.p[0] / tab.lo()
	}
	if eps >= tab.hi() {
		return tab.p[n-1] / tab.hi()
	}
	i := sort.SearchFloat64s(tab.eps, eps) - 1
	cs2 := (tab.p[i+1] - tab.p[i]) / (tab.eps[i+1] - tab.eps[i])
	return math.Min(math.Max(cs2, 0.01), 1.0/3.0)
}

func (tab *Table) ChemicalPotential(_, _ float64) float64 { return 0 }
