package regulate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/san-kum/relhydro/internal/hydro"
)

const tol = 1e-10

func movingVelocity() [4]float64 {
	return hydro.Normalize([4]float64{0, 0.4, -0.3, 0.2})
}

func rawShear() [10]float64 {
	var w [10]float64
	for i := range w {
		w[i] = 0.1 * float64(i+1) * math.Pow(-1, float64(i))
	}
	return w
}

func assertShearInvariants(t *testing.T, u [4]float64, w [10]float64) {
	t.Helper()
	assert.InDelta(t, 0, hydro.Trace(w), tol, "trace")
	for mu, v := range hydro.Contract(w, u) {
		assert.InDelta(t, 0, v, tol, "W^{%d ν}u_ν", mu)
	}
}

func TestShearProjection(t *testing.T) {
	r := New(0, 0, 0)
	u := movingVelocity()
	var tally hydro.Tally

	w := r.Shear(u, rawShear(), 10, 10.0/3, &tally)

	assertShearInvariants(t, u, w)
	assert.Zero(t, tally.Regularizations)
}

func TestShearRescalePreservesDirection(t *testing.T) {
	r := New(0.1, 0, 0)
	u := movingVelocity()
	eps, p := 1.0, 1.0/3
	var tally hydro.Tally

	unbounded := New(0, 0, 0).Shear(u, rawShear(), eps, p, &tally)
	w := r.Shear(u, rawShear(), eps, p, &tally)

	assert.Equal(t, int64(1), tally.Regularizations)
	assertShearInvariants(t, u, w)
	assert.InDelta(t, 0.1*(eps+p), math.Sqrt(hydro.Norm2(w)), 1e-12)

	ratio := w[1] / unbounded[1]
	for i := range w {
		assert.InDelta(t, ratio*unbounded[i], w[i], 1e-12, "component %d", i)
	}
}

func TestShearIdempotent(t *testing.T) {
	tests := []struct {
		name string
		u    [4]float64
	}{
		{"slow", movingVelocity()},
		{"gamma 5", hydro.Normalize([4]float64{0, 3.5, -2.8, 1.4})},
		{"gamma 10", hydro.Normalize([4]float64{0, -6.2, 5.1, 5.4})},
		{"gamma 18", hydro.Normalize([4]float64{0, 12, 10, -9})},
	}

	r := New(0.1, 0, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tally hydro.Tally
			once := r.Shear(tt.u, rawShear(), 2, 2.0/3, &tally)
			assert.Equal(t, int64(1), tally.Regularizations)

			twice := r.Shear(tt.u, once, 2, 2.0/3, &tally)

			assert.Equal(t, int64(1), tally.Regularizations, "compliant shear must not be rescaled again")
			scale := 0.0
			for _, v := range once {
				scale = math.Max(scale, math.Abs(v))
			}
			for i := range once {
				assert.InDelta(t, once[i], twice[i], 1e-10*scale, "component %d", i)
			}
		})
	}
}

func TestBulkCap(t *testing.T) {
	r := New(0, 0.25, 0)
	var tally hydro.Tally

	assert.Equal(t, 0.1, r.Bulk(0.1, 3, 1, &tally))
	assert.Equal(t, -1.0, r.Bulk(-5, 3, 1, &tally))
	assert.Equal(t, int64(1), tally.Regularizations)
	assert.Equal(t, -1.0, r.Bulk(-1.0, 3, 1, &tally))
	assert.Equal(t, int64(1), tally.Regularizations)
}

func TestDiffusionProjectionAndCap(t *testing.T) {
	r := New(0, 0, 0.5)
	u := movingVelocity()
	q := [4]float64{0.3, 0.2, 0.1, -0.4}
	var tally hydro.Tally

	reg := r.Diffusion(u, q, 0.2, &tally)
	assert.InDelta(t, 0, hydro.Dot(reg, u), tol)
	assert.InDelta(t, 0.1, math.Sqrt(-hydro.Dot(reg, reg)), 1e-12)
	assert.Equal(t, int64(1), tally.Regularizations)

	again := r.Diffusion(u, reg, 0.2, &tally)
	assert.Equal(t, int64(1), tally.Regularizations)
	for mu := range reg {
		assert.InDelta(t, reg[mu], again[mu], 1e-12)
	}
}

func TestDiffusionVanishesWithoutBaryons(t *testing.T) {
	r := New(0, 0, 1)
	var tally hydro.Tally
	reg := r.Diffusion([4]float64{1, 0, 0, 0}, [4]float64{0, 0.1, 0, 0}, 0, &tally)
	assert.Equal(t, [4]float64{}, reg)
}

func TestCellRegularization(t *testing.T) {
	r := New(1, 0.25, 1)
	c := hydro.AtRest(4, 0.1)
	c.U = movingVelocity()
	c.Wmunu = rawShear()
	c.PiBulk = 100
	var tally hydro.Tally

	r.Cell(&c, 4.0/3, &tally)

	assertShearInvariants(t, c.U, c.Wmunu)
	assert.InDelta(t, 0.25*(4+4.0/3), c.PiBulk, 1e-12)
}
