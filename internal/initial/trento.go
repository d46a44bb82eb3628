package initial

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

// loadTrento reads a TRENTo entropy grid: one row per y, one column per x,
// '#' header lines ignored. Each entry is an entropy density in GeV/fm³
// units, converted to ε through the equation of state.
func loadTrento(p Profile, g *hydro.Grid, e eos.EquationOfState) error {
	f, err := os.Open(p.Path)
	if err != nil {
		return fmt.Errorf("initial: open trento profile: %w", err)
	}
	defer f.Close()

	scale := p.Scale
	if scale == 0 {
		scale = 1
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	iy := 0
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != g.NX {
			return fmt.Errorf("%w: trento line %d has %d columns, grid nx is %d",
				hydro.ErrDimensionMismatch, line, len(fields), g.NX)
		}
		if iy >= g.NY {
			return fmt.Errorf("%w: trento profile has more than %d rows", hydro.ErrDimensionMismatch, g.NY)
		}
		for ix, field := range fields {
			s, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return fmt.Errorf("initial: trento line %d column %d: %w", line, ix+1, err)
			}
			for ie := 0; ie < g.NEta; ie++ {
				env := envelope(p, g.Eta(ie))
				eps := e.EnergyFromEntropy(scale*s*env/hydro.HbarC, 0)
				*g.At(ix, iy, ie) = hydro.AtRest(eps, 0)
			}
		}
		iy++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("initial: read trento profile: %w", err)
	}
	if iy != g.NY {
		return fmt.Errorf("%w: trento profile has %d rows, grid ny is %d", hydro.ErrDimensionMismatch, iy, g.NY)
	}
	return nil
}
