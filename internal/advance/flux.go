package advance

import (
	"math"

	"github.com/san-kum/relhydro/internal/hydro"
)

// Reconstructed primitive fields, in slot order.
const (
	pEps = iota
	pRhoB
	pUx
	pUy
	pUeta
	pBulk
	pShear
	pDiff = pShear + 10
	nPrim = pDiff + 4
)

// nCons counts τT^{τν} and τJ^τ.
const nCons = 5

type prim [nPrim]float64

func primOf(c *hydro.Cell) prim {
	var p prim
	p[pEps] = c.Epsilon
	p[pRhoB] = c.RhoB
	p[pUx], p[pUy], p[pUeta] = c.U[1], c.U[2], c.U[3]
	p[pBulk] = c.PiBulk
	copy(p[pShear:pDiff], c.Wmunu[:])
	copy(p[pDiff:], c.Qmu[:])
	return p
}

func (p *prim) cell() hydro.Cell {
	c := hydro.Cell{
		Epsilon: math.Max(p[pEps], hydro.EpsilonFloor),
		RhoB:    p[pRhoB],
		U:       hydro.Normalize([4]float64{0, p[pUx], p[pUy], p[pUeta]}),
		PiBulk:  p[pBulk],
	}
	copy(c.Wmunu[:], p[pShear:pDiff])
	copy(c.Qmu[:], p[pDiff:])
	return c
}

func minmod(a, b, c float64) float64 {
	switch {
	case a > 0 && b > 0 && c > 0:
		return math.Min(a, math.Min(b, c))
	case a < 0 && b < 0 && c < 0:
		return math.Max(a, math.Max(b, c))
	}
	return 0
}

// halfSlope returns half the limited slope of m given its neighbours.
func (a *Advancer) halfSlope(l, m, r *prim) prim {
	th := a.params.FluxLimiter
	var s prim
	for k := range s {
		s[k] = 0.5 * minmod(th*(m[k]-l[k]), 0.5*(r[k]-l[k]), th*(r[k]-m[k]))
	}
	return s
}

type face struct {
	flux, cons [nCons]float64
	speed      float64
}

// faceOf evaluates the flux along spatial axis dir (1..3) of a reconstructed state.
func (a *Advancer) faceOf(p *prim, dir int, tf float64) face {
	c := p.cell()
	pr := a.eos.Pressure(c.Epsilon, c.RhoB)
	t, j := Stress(&c, pr)

	var f face
	for nu := 0; nu < 4; nu++ {
		f.flux[nu] = tf * t[dir][nu]
		f.cons[nu] = tf * t[0][nu]
	}
	f.flux[4] = tf * j[dir]
	f.cons[4] = tf * j[0]

	v := math.Abs(c.U[dir] / c.U[0])
	cs := math.Sqrt(math.Max(a.eos.SoundSpeed2(c.Epsilon, c.RhoB), 0))
	f.speed = (v + cs) / (1 + v*cs)
	return f
}

// ktFlux returns the Kurganov-Tadmor flux through the interface between
// line[1] and line[2] of a four-cell stencil.
func (a *Advancer) ktFlux(line *[4]prim, dir int, tf float64) [nCons]float64 {
	left, right := line[1], line[2]
	sl := a.halfSlope(&line[0], &line[1], &line[2])
	sr := a.halfSlope(&line[1], &line[2], &line[3])
	for k := range left {
		left[k] += sl[k]
		right[k] -= sr[k]
	}

	fl := a.faceOf(&left, dir, tf)
	fr := a.faceOf(&right, dir, tf)
	speed := math.Max(fl.speed, fr.speed)

	var h [nCons]float64
	for k := range h {
		h[k] = 0.5*(fl.flux[k]+fr.flux[k]) - 0.5*speed*(fr.cons[k]-fl.cons[k])
	}
	return h
}

// divergence returns -Σ_i ∂_i(τT^{iν}) and -Σ_i ∂_i(τJ^i) at one cell.
// Axes of extent one carry no flux.
func (a *Advancer) divergence(g *hydro.Grid, ix, iy, ie int, tau float64) [nCons]float64 {
	tf := a.params.Coordinates.TauFactor(tau)
	pos := [3]int{ix, iy, ie}
	ext := [3]int{g.NX, g.NY, g.NEta}
	spacing := [3]float64{g.DX, g.DY, tf * g.DEta}

	var div [nCons]float64
	var stencil [5]prim
	for d := 0; d < 3; d++ {
		if ext[d] == 1 {
			continue
		}
		at := pos
		for k := -2; k <= 2; k++ {
			at[d] = a.params.Boundary.Wrap(pos[d]+k, ext[d])
			stencil[k+2] = primOf(g.At(at[0], at[1], at[2]))
		}
		minus := a.ktFlux((*[4]prim)(stencil[0:4]), d+1, tf)
		plus := a.ktFlux((*[4]prim)(stencil[1:5]), d+1, tf)
		for k := range div {
			div[k] -= (plus[k] - minus[k]) / spacing[d]
		}
	}
	return div
}
