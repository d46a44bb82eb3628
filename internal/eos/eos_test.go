package eos

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/relhydro/internal/hydro"
)

func TestIdealThermodynamicIdentity(t *testing.T) {
	e := NewIdeal(DefaultDegeneracy)
	for _, eps := range []float64{0.01, 1, 10, 150} {
		p := e.Pressure(eps, 0)
		T := e.Temperature(eps, 0)
		s := e.Entropy(eps, 0)
		assert.InDelta(t, eps+p, T*s, 1e-9*(eps+p), "eps=%g", eps)
		assert.InDelta(t, eps, e.EnergyFromEntropy(s, 0), 1e-9*eps, "eps=%g", eps)
	}
	assert.InDelta(t, 1.0/3.0, e.SoundSpeed2(5, 0), 1e-15)
}

func TestIdealNonNegative(t *testing.T) {
	e := NewIdeal(DefaultDegeneracy)
	assert.Equal(t, 0.0, e.Pressure(-1, 0))
	assert.Equal(t, 0.0, e.Temperature(-1, 0))
}

func sampledIdeal(n int) (eps, p, s, temp []float64) {
	e := NewIdeal(DefaultDegeneracy)
	for i := 0; i < n; i++ {
		x := 0.1 * float64(i+1)
		eps = append(eps, x)
		p = append(p, e.Pressure(x, 0))
		s = append(s, e.Entropy(x, 0))
		temp = append(temp, e.Temperature(x, 0))
	}
	return
}

func TestTableInterpolatesLinearPressure(t *testing.T) {
	eps, p, s, temp := sampledIdeal(50)
	tab, err := NewTable(eps, p, s, temp)
	require.NoError(t, err)

	// p = ε/3 is linear, so interpolation is exact inside the table.
	assert.InDelta(t, 1.234/3, tab.Pressure(1.234, 0), 1e-12)
	assert.InDelta(t, 1.0/3.0, tab.SoundSpeed2(2.05, 0), 1e-9)

	// conformal extrapolation outside the table
	assert.InDelta(t, 0.01/3, tab.Pressure(0.01, 0), 1e-12)
	assert.InDelta(t, 10.0/3, tab.Pressure(10, 0), 1e-9)

	ideal := NewIdeal(DefaultDegeneracy)
	assert.InEpsilon(t, ideal.Temperature(0.01, 0), tab.Temperature(0.01, 0), 1e-9)
	assert.InEpsilon(t, 2.5, tab.EnergyFromEntropy(tab.Entropy(2.5, 0), 0), 1e-3)
}

func TestTableSoundSpeedPicksSegment(t *testing.T) {
	tab, err := NewTable(
		[]float64{1, 2, 3, 4},
		[]float64{0.3, 0.5, 0.8, 1.0},
		[]float64{1, 2, 3, 4},
		[]float64{0.1, 0.2, 0.3, 0.4},
	)
	require.NoError(t, err)

	tests := []struct {
		eps, want float64
	}{
		{1.5, 0.2},
		{2, 0.2},
		{2.5, 0.3},
		{3, 0.3},
		{3.999, 0.2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, tab.SoundSpeed2(tt.eps, 0), 1e-12, "ε=%g", tt.eps)
	}
}

func TestNewTableRejectsBadColumns(t *testing.T) {
	_, err := NewTable([]float64{1}, []float64{1}, []float64{1}, []float64{1})
	assert.Error(t, err)

	_, err = NewTable([]float64{1, 0.5}, []float64{1, 2}, []float64{1, 2}, []float64{1, 2})
	assert.Error(t, err)
}

func TestLoadTable(t *testing.T) {
	eps, p, s, temp := sampledIdeal(20)
	var b strings.Builder
	b.WriteString("# e p s T\n")
	for i := range eps {
		fmt.Fprintf(&b, "%.17g %.17g %.17g %.17g\n",
			eps[i]*hydro.HbarC, p[i]*hydro.HbarC, s[i], temp[i]*hydro.HbarC)
	}
	path := filepath.Join(t.TempDir(), "eos.dat")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	e, err := New("table", path)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, e.Pressure(1, 0), 1e-9)

	_, err = New("table", filepath.Join(t.TempDir(), "missing.dat"))
	assert.Error(t, err)
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New("bag-model", "")
	assert.Error(t, err)

	e, err := New("ideal", "")
	require.NoError(t, err)
	assert.IsType(t, &Ideal{}, e)
}
