package hydro

import "math"

// Metric is the diagonal of g_{μν} in the orthonormal frame.
var Metric = [4]float64{1, -1, -1, -1}

var shearIndex = [4][4]int{
	{0, 1, 2, 3},
	{1, 4, 5, 6},
	{2, 5, 7, 8},
	{3, 6, 8, 9},
}

// ShearIdx maps a (μ, ν) pair to its slot in the packed shear array.
func ShearIdx(mu, nu int) int {
	return shearIndex[mu][nu]
}

// Unpack expands a packed symmetric tensor.
func Unpack(w [10]float64) [4][4]float64 {
	var t [4][4]float64
	for mu := 0; mu < 4; mu++ {
		for nu := 0; nu < 4; nu++ {
			t[mu][nu] = w[shearIndex[mu][nu]]
		}
	}
	return t
}

// Pack stores the symmetric part of t.
func Pack(t [4][4]float64) [10]float64 {
	var w [10]float64
	for mu := 0; mu < 4; mu++ {
		for nu := mu; nu < 4; nu++ {
			w[shearIndex[mu][nu]] = 0.5 * (t[mu][nu] + t[nu][mu])
		}
	}
	return w
}

// Lower returns v_μ.
func Lower(v [4]float64) [4]float64 {
	return [4]float64{v[0], -v[1], -v[2], -v[3]}
}

// Dot returns a^μ b_μ.
func Dot(a, b [4]float64) float64 {
	return a[0]*b[0] - a[1]*b[1] - a[2]*b[2] - a[3]*b[3]
}

// Projector returns Δ^{μν} = g^{μν} - u^μ u^ν.
func Projector(u [4]float64) [4][4]float64 {
	var d [4][4]float64
	for mu := 0; mu < 4; mu++ {
		for nu := 0; nu < 4; nu++ {
			d[mu][nu] = -u[mu] * u[nu]
		}
		d[mu][mu] += Metric[mu]
	}
	return d
}

// Trace returns W^μ_μ.
func Trace(w [10]float64) float64 {
	return w[0] - w[4] - w[7] - w[9]
}

// Contract returns W^{μν} u_ν.
func Contract(w [10]float64, u [4]float64) [4]float64 {
	ul := Lower(u)
	var out [4]float64
	for mu := 0; mu < 4; mu++ {
		for nu := 0; nu < 4; nu++ {
			out[mu] += w[shearIndex[mu][nu]] * ul[nu]
		}
	}
	return out
}

// Norm2 returns W^{μν} W_{μν}.
func Norm2(w [10]float64) float64 {
	sum := 0.0
	for mu := 0; mu < 4; mu++ {
		for nu := 0; nu < 4; nu++ {
			v := w[shearIndex[mu][nu]]
			sum += Metric[mu] * Metric[nu] * v * v
		}
	}
	return sum
}

// Normalize recomputes u^τ from the spatial components so that u·u = 1.
func Normalize(u [4]float64) [4]float64 {
	u[0] = math.Sqrt(1 + u[1]*u[1] + u[2]*u[2] + u[3]*u[3])
	return u
}

// MixedProjector returns Δ^μ_ν = δ^μ_ν - u^μ u_ν.
func MixedProjector(u [4]float64) [4][4]float64 {
	ul := Lower(u)
	var d [4][4]float64
	for mu := 0; mu < 4; mu++ {
		for nu := 0; nu < 4; nu++ {
			d[mu][nu] = -u[mu] * ul[nu]
		}
		d[mu][mu]++
	}
	return d
}
