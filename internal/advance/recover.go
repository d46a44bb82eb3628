package advance

import (
	"math"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

const (
	recoverTolerance = 1e-12
	recoverMaxIter   = 100

	// Below this M/E the correction M²/E is within a few ulps of E and the
	// bracket degenerates; ε follows from a single pressure evaluation.
	recoverSlowFlow = 1e-6
)

// Primitive is the ideal-fluid part of a cell.
type Primitive struct {
	Epsilon float64
	RhoB    float64
	U       [4]float64
}

// failed is returned for unphysical input: floor energy density, no flow.
func failed(jtau float64) Primitive {
	if math.IsNaN(jtau) || math.IsInf(jtau, 0) {
		jtau = 0
	}
	return Primitive{Epsilon: hydro.EpsilonFloor, RhoB: jtau, U: [4]float64{1, 0, 0, 0}}
}

// Recover inverts the ideal parts T^{τν} and J^τ to (ε, n_B, u^μ). It
// brackets ε in [E - M²/E, E] and solves ε = E - M²/(E + p) with the
// Illinois variant of false position; nearly static input, where the
// bracket is narrower than round-off, is solved directly. ok is false when the input is
// unphysical or the iteration fails; the result is then a floor cell at rest.
func Recover(e eos.EquationOfState, t0 [4]float64, jtau float64) (Primitive, bool) {
	energy := t0[0]
	m2 := t0[1]*t0[1] + t0[2]*t0[2] + t0[3]*t0[3]
	m := math.Sqrt(m2)
	if math.IsNaN(energy) || math.IsNaN(m) || math.IsNaN(jtau) || math.IsInf(energy, 0) {
		return failed(jtau), false
	}
	if energy <= 0 || m >= energy {
		return failed(jtau), false
	}
	if m == 0 {
		return Primitive{
			Epsilon: math.Max(energy, hydro.EpsilonFloor),
			RhoB:    jtau,
			U:       [4]float64{1, 0, 0, 0},
		}, true
	}

	// Rest-frame density consistent with a trial ε.
	density := func(eps float64) float64 {
		v := m / (energy + e.Pressure(eps, jtau))
		return jtau * math.Sqrt(math.Max(1-v*v, 0))
	}
	residual := func(eps float64) float64 {
		return eps - energy + m2/(energy+e.Pressure(eps, density(eps)))
	}

	lo, hi := energy-m2/energy, energy
	eps, converged := lo, false
	var flo, fhi float64
	if m < recoverSlowFlow*energy || lo >= hi {
		eps = energy - m2/(energy+e.Pressure(energy, jtau))
		converged = true
	} else {
		flo, fhi = residual(lo), residual(hi)
		switch {
		case flo == 0:
			converged = true
		case fhi == 0:
			eps, converged = hi, true
		case flo*fhi > 0:
			return failed(jtau), false
		}
	}

	side := 0
	prev := math.Inf(1)
	for i := 0; i < recoverMaxIter && !converged; i++ {
		eps = (lo*fhi - hi*flo) / (fhi - flo)
		f := residual(eps)
		if f == 0 || math.Abs(eps-prev) <= recoverTolerance*eps {
			converged = true
			break
		}
		prev = eps
		if f*fhi > 0 {
			hi, fhi = eps, f
			if side == -1 {
				flo /= 2
			}
			side = -1
		} else {
			lo, flo = eps, f
			if side == 1 {
				fhi /= 2
			}
			side = 1
		}
	}
	if !converged || math.IsNaN(eps) {
		return failed(jtau), false
	}

	n := density(eps)
	h := energy + e.Pressure(eps, n)
	v := m / h
	if v >= 1 {
		return failed(jtau), false
	}
	gamma := 1 / math.Sqrt(1-v*v)
	return Primitive{
		Epsilon: math.Max(eps, hydro.EpsilonFloor),
		RhoB:    jtau / gamma,
		U:       [4]float64{gamma, gamma * t0[1] / h, gamma * t0[2] / h, gamma * t0[3] / h},
	}, true
}
