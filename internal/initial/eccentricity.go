package initial

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

// Eccentricity is the n-th spatial anisotropy of the energy density and its
// participant-plane angle.
type Eccentricity struct {
	N         int
	Magnitude float64
	Angle     float64
}

// Eccentricities returns ε_1..ε_nmax of T^{ττ} on one η slice, about its
// centre of energy. ε_1 uses the r³ weight.
func Eccentricities(g *hydro.Grid, e eos.EquationOfState, ieta, nmax int) []Eccentricity {
	weights := make([]float64, 0, g.NX*g.NY)
	var total, cx, cy float64
	for iy := 0; iy < g.NY; iy++ {
		for ix := 0; ix < g.NX; ix++ {
			c := g.At(ix, iy, ieta)
			p := e.Pressure(c.Epsilon, c.RhoB)
			w := (c.Epsilon+p)*c.U[0]*c.U[0] - p + c.Wmunu[0]
			weights = append(weights, w)
			total += w
			cx += w * g.X(ix)
			cy += w * g.Y(iy)
		}
	}
	if total <= 0 {
		return nil
	}
	cx /= total
	cy /= total

	out := make([]Eccentricity, 0, nmax)
	for n := 1; n <= nmax; n++ {
		power := float64(n)
		if n == 1 {
			power = 3
		}
		var num complex128
		den := 0.0
		for iy := 0; iy < g.NY; iy++ {
			for ix := 0; ix < g.NX; ix++ {
				w := weights[ix+iy*g.NX]
				z := complex(g.X(ix)-cx, g.Y(iy)-cy)
				r := cmplx.Abs(z)
				if r == 0 {
					continue
				}
				rn := math.Pow(r, power)
				num += complex(w*rn, 0) * cmplx.Exp(complex(0, float64(n)*cmplx.Phase(z)))
				den += w * rn
			}
		}
		ecc := Eccentricity{N: n}
		if den > 0 {
			ecc.Magnitude = cmplx.Abs(num) / den
			ecc.Angle = (cmplx.Phase(num) + math.Pi) / float64(n)
		}
		out = append(out, ecc)
	}
	return out
}
