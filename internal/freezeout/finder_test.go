package freezeout

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

var cubeLattice = hydro.Lattice{NX: 2, NY: 2, NEta: 2, DX: 0.5, DY: 0.4, DEta: 0.3}

func newTestFinder(t *testing.T, cfg Config) *Finder {
	t.Helper()
	if cfg.FacX == 0 {
		cfg.FacX, cfg.FacY, cfg.FacEta = 1, 1, 1
	}
	f, err := NewFinder(cfg, eos.NewIdeal(eos.DefaultDegeneracy), log.New(io.Discard))
	require.NoError(t, err)
	return f
}

func uniformGrid(t *testing.T, l hydro.Lattice, eps float64) *hydro.Grid {
	t.Helper()
	g, err := hydro.NewGrid(l)
	require.NoError(t, err)
	g.Fill(hydro.Cell{Epsilon: eps, U: [4]float64{1, 0, 0, 0}})
	return g
}

func TestKuhnTriangulation(t *testing.T) {
	for _, d := range []int{3, 4} {
		s := simplices[d]
		want := 1
		for i := 2; i <= d; i++ {
			want *= i
		}
		require.Len(t, s, want)
		seen := make(map[[5]int]bool)
		for _, simplex := range s {
			require.Len(t, simplex, d+1)
			assert.Equal(t, 0, simplex[0])
			assert.Equal(t, 1<<d-1, simplex[d])
			var key [5]int
			copy(key[:], simplex)
			assert.False(t, seen[key], "duplicate simplex %v", simplex)
			seen[key] = true
		}
	}
}

func TestPlanarSurfaceInTime(t *testing.T) {
	tests := []struct {
		name   string
		coords hydro.Coordinates
		tauLo  float64
	}{
		{"cartesian", hydro.Cartesian, 0.5},
		{"milne", hydro.Milne, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFinder(t, Config{Coordinates: tt.coords})
			lo := uniformGrid(t, cubeLattice, 2)
			hi := uniformGrid(t, cubeLattice, 0)

			els, err := f.Find(lo, hi, tt.tauLo, tt.tauLo+0.1, 1, nil)
			require.NoError(t, err)
			require.Len(t, els, 1)

			el := els[0]
			tau := tt.tauLo + 0.05
			assert.InDelta(t, tau, el.Tau, 1e-12)
			assert.InDelta(t, 0, el.X, 1e-12)
			assert.InDelta(t, 0, el.Y, 1e-12)
			assert.InDelta(t, 0, el.Eta, 1e-12)

			want := 0.5 * 0.4 * 0.3 * tt.coords.TauFactor(tau)
			assert.InDelta(t, want, el.DSigma[0], 1e-12)
			for k := 1; k < 4; k++ {
				assert.InDelta(t, 0, el.DSigma[k], 1e-12)
			}
			assert.InDelta(t, 1, el.Epsilon, 1e-12)
			assert.InDelta(t, 1, el.U[0], 1e-15)
		})
	}
}

func TestHotCornerNormal(t *testing.T) {
	f := newTestFinder(t, Config{Coordinates: hydro.Cartesian})
	lo := uniformGrid(t, cubeLattice, 0)
	hi := uniformGrid(t, cubeLattice, 0)
	lo.At(0, 0, 0).Epsilon = 2

	els, err := f.Find(lo, hi, 1, 1.1, 1, nil)
	require.NoError(t, err)
	require.Len(t, els, 1, "one connected surface piece")

	// The region above threshold is the cube [0, Δ/2]^4; its surface is the
	// four inner faces.
	half := [4]float64{0.05, 0.25, 0.2, 0.15}
	for mu := 0; mu < 4; mu++ {
		want := 1.0
		for nu := 0; nu < 4; nu++ {
			if nu != mu {
				want *= half[nu]
			}
		}
		assert.InDelta(t, want, els[0].DSigma[mu], 1e-12, "dΣ_%d", mu)
	}
	assert.Greater(t, els[0].Tau, 1.0)
	assert.Less(t, els[0].Tau, 1.05)
}

func TestBoostInvariantHotSpot(t *testing.T) {
	l := hydro.Lattice{NX: 11, NY: 11, NEta: 1, DX: 0.3, DY: 0.3, DEta: 0.1}
	f := newTestFinder(t, Config{BoostInvariant: true, Coordinates: hydro.Milne, Workers: 3})
	lo := uniformGrid(t, l, 0)
	hi := uniformGrid(t, l, 0)
	for idx := range lo.Cells {
		ix, iy, _ := lo.Coords(idx)
		r2 := l.X(ix)*l.X(ix) + l.Y(iy)*l.Y(iy)
		lo.Cells[idx].Epsilon = 2 * math.Exp(-r2)
		hi.Cells[idx].Epsilon = 1.8 * math.Exp(-r2)
	}

	els, err := f.Find(lo, hi, 1, 1.2, 1, nil)
	require.NoError(t, err)
	require.NotEmpty(t, els)

	for i, el := range els {
		assert.Zero(t, el.DSigma[3])
		assert.Zero(t, el.Eta)
		assert.GreaterOrEqual(t, el.DSigma[1]*el.X+el.DSigma[2]*el.Y, -1e-12, "element %d points inwards", i)
		if i > 0 {
			assert.GreaterOrEqual(t, el.Tau, els[i-1].Tau)
		}
	}
}

func TestDegenerateAndTrivialCubes(t *testing.T) {
	f := newTestFinder(t, Config{Coordinates: hydro.Cartesian})

	var counters hydro.Counters
	at := uniformGrid(t, cubeLattice, 1)
	els, err := f.Find(at, at, 1, 1.1, 1, &counters)
	require.NoError(t, err)
	assert.Empty(t, els)
	assert.Equal(t, int64(1), counters.Snapshot().Warnings)

	above := uniformGrid(t, cubeLattice, 3)
	below := uniformGrid(t, cubeLattice, 0.5)
	for _, pair := range [][2]*hydro.Grid{{above, above}, {below, below}} {
		els, err := f.Find(pair[0], pair[1], 1, 1.1, 1, &counters)
		require.NoError(t, err)
		assert.Empty(t, els)
	}
	assert.Equal(t, int64(1), counters.Snapshot().Warnings)
}

func TestFindErrors(t *testing.T) {
	f := newTestFinder(t, Config{})
	flat := uniformGrid(t, hydro.Lattice{NX: 2, NY: 2, NEta: 1, DX: 1, DY: 1, DEta: 1}, 1)
	_, err := f.Find(flat, flat, 1, 2, 0.5, nil)
	assert.ErrorIs(t, err, hydro.ErrInvalidConfig)

	cube := uniformGrid(t, cubeLattice, 1)
	_, err = f.Find(cube, flat, 1, 2, 0.5, nil)
	assert.ErrorIs(t, err, hydro.ErrDimensionMismatch)

	_, err = f.Find(cube, cube, 2, 1, 0.5, nil)
	assert.ErrorIs(t, err, hydro.ErrInvalidConfig)

	bad := uniformGrid(t, cubeLattice, 1)
	bad.At(1, 1, 1).Epsilon = math.NaN()
	_, err = f.Find(cube, bad, 1, 2, 0.5, nil)
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = NewFinder(Config{FacX: 0, FacY: 1, FacEta: 1}, eos.NewIdeal(eos.DefaultDegeneracy), nil)
	assert.ErrorIs(t, err, hydro.ErrInvalidConfig)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(dir, 0.18)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "surface_eps_0.1800.dat"), w.Path())

	els := []Element{
		{Tau: 1, X: 0.5, DSigma: [4]float64{0.1, -0.2, 0, 1e-300}, U: [4]float64{1, 0, 0, 0}, Epsilon: 0.9},
		{Tau: 1.5, Y: -3, Eta: 0.2, U: [4]float64{1.2, 0.3, 0.1, 0.6}, Wmunu: [10]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			PiBulk: -0.01, Qmu: [4]float64{0, 1e-5, 0, 0}, Temperature: 0.7, MuB: 0.1, EnthalpyOverT: 12.5},
	}
	require.NoError(t, w.Write(els))
	assert.Equal(t, 2, w.Count())
	require.NoError(t, w.Close())

	got, err := ReadAll(w.Path())
	require.NoError(t, err)
	assert.Equal(t, els, got)

	info, err := os.Stat(w.Path())
	require.NoError(t, err)
	assert.Equal(t, int64(2*RecordLen*8), info.Size())
}

func TestReadAllTruncated(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(dir, 0.1)
	require.NoError(t, err)
	require.NoError(t, w.Write([]Element{{Tau: 1}, {Tau: 2}}))
	require.NoError(t, w.Close())
	require.NoError(t, os.Truncate(w.Path(), RecordLen*8+17))

	got, err := ReadAll(w.Path())
	assert.ErrorIs(t, err, ErrShortRecord)
	assert.Len(t, got, 1)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Element{
		{Tau: 2, DSigma: [4]float64{1, 0, 0, 0}, U: [4]float64{1, 0, 0, 0}, Temperature: 1 / hydro.HbarC},
		{Tau: 1, DSigma: [4]float64{3, 0, 0, 0}, U: [4]float64{1, 0, 0, 0}, Temperature: 2 / hydro.HbarC},
	})
	assert.Equal(t, 2, s.Elements)
	assert.Equal(t, 1.0, s.TauMin)
	assert.Equal(t, 2.0, s.TauMax)
	assert.InDelta(t, 4, s.TotalVolume, 1e-12)
	assert.InDelta(t, 1.75, s.MeanT, 1e-12)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func BenchmarkFind4D(b *testing.B) {
	l := hydro.Lattice{NX: 16, NY: 16, NEta: 4, DX: 0.3, DY: 0.3, DEta: 0.3}
	f, _ := NewFinder(Config{Coordinates: hydro.Milne, FacX: 1, FacY: 1, FacEta: 1},
		eos.NewIdeal(eos.DefaultDegeneracy), log.New(io.Discard))
	lo, _ := hydro.NewGrid(l)
	hi, _ := hydro.NewGrid(l)
	for idx := range lo.Cells {
		ix, iy, _ := lo.Coords(idx)
		r2 := l.X(ix)*l.X(ix) + l.Y(iy)*l.Y(iy)
		lo.Cells[idx].Epsilon = 3 * math.Exp(-r2/4)
		hi.Cells[idx].Epsilon = 2.5 * math.Exp(-r2/4)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := f.Find(lo, hi, 1, 1.1, 1, nil); err != nil {
			b.Fatal(err)
		}
	}
}
