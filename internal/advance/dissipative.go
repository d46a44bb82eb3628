package advance

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/relhydro/internal/hydro"
)

// gradients collects the first derivatives the relaxation equations need at
// one cell. du[μ][ν] = ∇_μ u^ν in the orthonormal frame.
type gradients struct {
	du     [4][4]float64
	theta  float64
	dAlpha [4]float64
	advW   [10]float64
	advPi  float64
	advQ   [4]float64
}

func (a *Advancer) alpha(c *hydro.Cell) float64 {
	t := a.eos.Temperature(c.Epsilon, c.RhoB)
	if t <= 0 {
		return 0
	}
	return a.eos.ChemicalPotential(c.Epsilon, c.RhoB) / t
}

// gradientsAt uses a backward difference in τ and central differences in
// space. Advective terms u^i∂_i are returned separately from ∇_μ u^ν.
func (a *Advancer) gradientsAt(sc *StageContext, ix, iy, ie int, tau float64) gradients {
	g := sc.In
	c := g.At(ix, iy, ie)
	old := sc.Older.At(ix, iy, ie)
	tf := a.params.Coordinates.TauFactor(tau)
	diffusion := a.params.KappaCoeff > 0

	var gr gradients
	for nu := 0; nu < 4; nu++ {
		gr.du[0][nu] = (c.U[nu] - old.U[nu]) / sc.DTau
	}
	if diffusion {
		gr.dAlpha[0] = (a.alpha(c) - a.alpha(old)) / sc.DTau
	}

	pos := [3]int{ix, iy, ie}
	ext := [3]int{g.NX, g.NY, g.NEta}
	spacing := [3]float64{g.DX, g.DY, tf * g.DEta}
	for d := 0; d < 3; d++ {
		if ext[d] == 1 {
			continue
		}
		at := pos
		at[d] = a.params.Boundary.Wrap(pos[d]-1, ext[d])
		lo := g.At(at[0], at[1], at[2])
		at[d] = a.params.Boundary.Wrap(pos[d]+1, ext[d])
		hi := g.At(at[0], at[1], at[2])

		inv := 1 / (2 * spacing[d])
		ud := c.U[d+1]
		for nu := 0; nu < 4; nu++ {
			gr.du[d+1][nu] = (hi.U[nu] - lo.U[nu]) * inv
		}
		for k := range gr.advW {
			gr.advW[k] += ud * (hi.Wmunu[k] - lo.Wmunu[k]) * inv
		}
		gr.advPi += ud * (hi.PiBulk - lo.PiBulk) * inv
		if diffusion {
			for mu := range gr.advQ {
				gr.advQ[mu] += ud * (hi.Qmu[mu] - lo.Qmu[mu]) * inv
			}
			gr.dAlpha[d+1] = (a.alpha(hi) - a.alpha(lo)) * inv
		}
	}

	if a.params.Coordinates == hydro.Milne {
		gr.du[3][0] += c.U[3] / tau
		gr.du[3][3] += c.U[0] / tau
	}
	gr.theta = gr.du[0][0] + gr.du[1][1] + gr.du[2][2] + gr.du[3][3]
	return gr
}

func dense(m [4][4]float64) *mat.Dense {
	d := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		d.SetRow(i, m[i][:])
	}
	return d
}

// ShearTensor returns σ^{μν} = Δ^μ_α Δ^ν_β ∇^{(α}u^{β)} - ⅓θΔ^{μν}.
func ShearTensor(u [4]float64, du [4][4]float64, theta float64) [10]float64 {
	sym := mat.NewSymDense(4, nil)
	for al := 0; al < 4; al++ {
		for be := al; be < 4; be++ {
			sym.SetSym(al, be, 0.5*(hydro.Metric[al]*du[al][be]+hydro.Metric[be]*du[be][al]))
		}
	}

	proj := dense(hydro.MixedProjector(u))
	var tmp, out mat.Dense
	tmp.Mul(proj, sym)
	out.Mul(&tmp, proj.T())

	delta := hydro.Projector(u)
	var s [4][4]float64
	for mu := 0; mu < 4; mu++ {
		for nu := 0; nu < 4; nu++ {
			s[mu][nu] = out.At(mu, nu) - theta/3*delta[mu][nu]
		}
	}
	return hydro.Pack(s)
}

// relaxation returns ∂_τ W^{μν}, ∂_τ Π and ∂_τ q^μ from the relaxation
// equations written as u^τ∂_τ X = D X - u^i∂_i X - connection terms.
func (a *Advancer) relaxation(sc *StageContext, ix, iy, ie int, tau float64) (dW [10]float64, dPi float64, dQ [4]float64) {
	shear, bulk, diffusion := a.params.EtaOverS > 0, a.params.ZetaOverS > 0, a.params.KappaCoeff > 0
	if !shear && !bulk && !diffusion {
		return dW, dPi, dQ
	}

	c := sc.In.At(ix, iy, ie)
	gr := a.gradientsAt(sc, ix, iy, ie, tau)
	p := a.eos.Pressure(c.Epsilon, c.RhoB)
	s := a.eos.Entropy(c.Epsilon, c.RhoB)
	enthalpy := math.Max(c.Epsilon+p, hydro.EpsilonFloor)
	floor := 3 * sc.DTau
	milne := a.params.Coordinates == hydro.Milne
	ueta := c.U[3] / tau

	if shear {
		eta := a.params.EtaOverS * s
		tauPi := math.Max(5*eta/enthalpy, floor)
		sigma := ShearTensor(c.U, gr.du, gr.theta)
		w := hydro.Unpack(c.Wmunu)
		for mu := 0; mu < 4; mu++ {
			for nu := mu; nu < 4; nu++ {
				k := hydro.ShearIdx(mu, nu)
				rhs := -(c.Wmunu[k]-2*eta*sigma[k])/tauPi - 4.0/3.0*c.Wmunu[k]*gr.theta
				if milne {
					rhs -= ueta * shearConnection(&w, mu, nu)
				}
				dW[k] = (rhs - gr.advW[k]) / c.U[0]
			}
		}
	}

	if bulk {
		zeta := a.params.ZetaOverS * s
		tauBulk := math.Max(5*zeta/enthalpy, floor)
		rhs := -(c.PiBulk+zeta*gr.theta)/tauBulk - 2.0/3.0*c.PiBulk*gr.theta
		dPi = (rhs - gr.advPi) / c.U[0]
	}

	if diffusion {
		t := a.eos.Temperature(c.Epsilon, c.RhoB)
		if t > 0 {
			kappa := a.params.KappaCoeff * c.RhoB / t
			tauQ := math.Max(0.2/t, floor)
			delta := hydro.Projector(c.U)
			for mu := 0; mu < 4; mu++ {
				grad := 0.0
				for nu := 0; nu < 4; nu++ {
					grad += delta[mu][nu] * gr.dAlpha[nu]
				}
				rhs := -(c.Qmu[mu] - kappa*grad) / tauQ
				if milne {
					switch mu {
					case 0:
						rhs -= ueta * c.Qmu[3]
					case 3:
						rhs -= ueta * c.Qmu[0]
					}
				}
				dQ[mu] = (rhs - gr.advQ[mu]) / c.U[0]
			}
		}
	}
	return dW, dPi, dQ
}

// shearConnection is the Milne Christoffel contribution to D W^{μν}, per
// unit u^η/τ, for orthonormal components.
func shearConnection(w *[4][4]float64, mu, nu int) float64 {
	c := 0.0
	if mu == 0 {
		c += w[3][nu]
	}
	if mu == 3 {
		c += w[0][nu]
	}
	if nu == 0 {
		c += w[mu][3]
	}
	if nu == 3 {
		c += w[mu][0]
	}
	return c
}
