// Package regulate keeps dissipative currents inside the physically allowed
// subspace: W^{μν} symmetric, traceless and orthogonal to u^μ, q^μ
// orthogonal to u^μ, and all magnitudes bounded by a local scale.
package regulate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/relhydro/internal/hydro"
)

// slack keeps a current sitting exactly on its bound from being rescaled
// again. Round-off in the boosted components grows like γ⁴·1e-16.
const slack = 1e-8

// Regulator caps ‖W‖ ≤ MaxShearRatio·(ε+p), |Π| ≤ MaxBulkRatio·(ε+p) and
// ‖q‖ ≤ MaxDiffusionRatio·|n_B|. A non-positive ratio disables that cap but
// keeps the projection.
type Regulator struct {
	MaxShearRatio     float64
	MaxBulkRatio      float64
	MaxDiffusionRatio float64
}

// New returns a regulator with the given bound constants.
func New(shear, bulk, diffusion float64) *Regulator {
	return &Regulator{MaxShearRatio: shear, MaxBulkRatio: bulk, MaxDiffusionRatio: diffusion}
}

func mixedProjector(u [4]float64) *mat.Dense {
	d := hydro.MixedProjector(u)
	p := mat.NewDense(4, 4, nil)
	for mu := 0; mu < 4; mu++ {
		p.SetRow(mu, d[mu][:])
	}
	return p
}

// restFrameNorm returns sqrt(W^{μν}W_{μν}) of a transverse tensor as the
// Frobenius norm of its spatial block in the rest frame of u. Unlike the
// lab-frame contraction it has no γ⁴ cancellation.
func restFrameNorm(u [4]float64, t *[4][4]float64) float64 {
	boost := mat.NewDense(4, 4, nil)
	boost.Set(0, 0, u[0])
	for i := 1; i < 4; i++ {
		boost.Set(0, i, -u[i])
		boost.Set(i, 0, -u[i])
		for j := 1; j < 4; j++ {
			v := u[i] * u[j] / (1 + u[0])
			if i == j {
				v++
			}
			boost.Set(i, j, v)
		}
	}
	data := make([]float64, 0, 16)
	for mu := 0; mu < 4; mu++ {
		data = append(data, t[mu][:]...)
	}
	var tmp, rest mat.Dense
	tmp.Mul(boost, mat.NewDense(4, 4, data))
	rest.Mul(&tmp, boost)
	return mat.Norm(rest.Slice(1, 4, 1, 4), 2)
}

// Shear projects w and rescales it uniformly if it exceeds the bound.
func (r *Regulator) Shear(u [4]float64, w [10]float64, eps, p float64, tally *hydro.Tally) [10]float64 {
	full := hydro.Unpack(w)
	data := make([]float64, 0, 16)
	for mu := 0; mu < 4; mu++ {
		data = append(data, full[mu][:]...)
	}

	proj := mixedProjector(u)
	var tmp, out mat.Dense
	tmp.Mul(proj, mat.NewDense(4, 4, data))
	out.Mul(&tmp, proj.T())

	var t [4][4]float64
	trace := 0.0
	for mu := 0; mu < 4; mu++ {
		for nu := 0; nu < 4; nu++ {
			t[mu][nu] = out.At(mu, nu)
		}
		trace += hydro.Metric[mu] * t[mu][mu]
	}
	delta := hydro.Projector(u)
	for mu := 0; mu < 4; mu++ {
		for nu := 0; nu < 4; nu++ {
			t[mu][nu] -= delta[mu][nu] * trace / 3
		}
	}
	reg := hydro.Pack(t)

	if r.MaxShearRatio <= 0 {
		return reg
	}
	norm := restFrameNorm(u, &t)
	bound := r.MaxShearRatio * math.Max(eps+p, 0)
	if norm > bound*(1+slack) {
		scale := 0.0
		if norm > 0 {
			scale = bound / norm
		}
		for i := range reg {
			reg[i] *= scale
		}
		tally.Regularizations++
	}
	return reg
}

// Bulk rescales Π to |Π| ≤ MaxBulkRatio·(ε+p).
func (r *Regulator) Bulk(pi, eps, p float64, tally *hydro.Tally) float64 {
	if r.MaxBulkRatio <= 0 {
		return pi
	}
	bound := r.MaxBulkRatio * math.Max(eps+p, 0)
	if math.Abs(pi) > bound*(1+slack) {
		tally.Regularizations++
		return math.Copysign(bound, pi)
	}
	return pi
}

// Diffusion projects q onto the local rest frame and caps its magnitude.
func (r *Regulator) Diffusion(u, q [4]float64, rhob float64, tally *hydro.Tally) [4]float64 {
	proj := mixedProjector(u)
	var qv mat.VecDense
	qv.MulVec(proj, mat.NewVecDense(4, q[:]))

	var reg [4]float64
	for mu := 0; mu < 4; mu++ {
		reg[mu] = qv.AtVec(mu)
	}

	if r.MaxDiffusionRatio <= 0 {
		return reg
	}
	norm := math.Sqrt(math.Max(-hydro.Dot(reg, reg), 0))
	bound := r.MaxDiffusionRatio * math.Abs(rhob)
	if norm > bound*(1+slack) {
		scale := 0.0
		if norm > 0 {
			scale = bound / norm
		}
		for mu := range reg {
			reg[mu] *= scale
		}
		tally.Regularizations++
	}
	return reg
}

// Cell regularizes every dissipative current of c in place. p is the
// equilibrium pressure at (c.Epsilon, c.RhoB).
func (r *Regulator) Cell(c *hydro.Cell, p float64, tally *hydro.Tally) {
	c.Wmunu = r.Shear(c.U, c.Wmunu, c.Epsilon, p, tally)
	c.PiBulk = r.Bulk(c.PiBulk, c.Epsilon, p, tally)
	c.Qmu = r.Diffusion(c.U, c.Qmu, c.RhoB, tally)
}
