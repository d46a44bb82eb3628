package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

func testGrid(t *testing.T, eps float64) *hydro.Grid {
	t.Helper()
	g, err := hydro.NewGrid(hydro.Lattice{NX: 2, NY: 2, NEta: 1, DX: 0.5, DY: 0.5, DEta: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	g.Fill(hydro.AtRest(eps, 0))
	return g
}

func TestTotalEnergyAtRest(t *testing.T) {
	e := eos.NewIdeal(eos.DefaultDegeneracy)
	m := NewTotalEnergy(e, hydro.Milne)
	g := testGrid(t, 3)

	m.Observe(g, 2)

	expected := 2 * 4 * 0.5 * 0.5 * 0.2 * 3.0
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("expected energy %f, got %f", expected, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	e := eos.NewIdeal(eos.DefaultDegeneracy)
	m := NewEnergyDrift(e, hydro.Cartesian)

	m.Observe(testGrid(t, 2), 1)
	m.Observe(testGrid(t, 2.2), 1.1)
	m.Observe(testGrid(t, 2.1), 1.2)

	if math.Abs(m.Value()-0.1) > 1e-12 {
		t.Errorf("expected max drift 0.1, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestExtremaAndFractions(t *testing.T) {
	e := eos.NewIdeal(eos.DefaultDegeneracy)
	g := testGrid(t, 1)
	g.Cells[3].Epsilon = 10
	g.Cells[3].U = hydro.Normalize([4]float64{0, 0.6, 0.8, 0})

	maxEps := NewMaxEpsilon()
	maxEps.Observe(g, 1)
	if math.Abs(maxEps.Value()-10*hydro.HbarC) > 1e-12 {
		t.Errorf("expected max epsilon %f, got %f", 10*hydro.HbarC, maxEps.Value())
	}

	maxT := NewMaxTemperature(e)
	maxT.Observe(g, 1)
	if want := e.Temperature(10, 0) * hydro.HbarC; math.Abs(maxT.Value()-want) > 1e-12 {
		t.Errorf("expected max temperature %f, got %f", want, maxT.Value())
	}

	frozen := NewFrozenFraction(5)
	frozen.Observe(g, 1)
	if frozen.Value() != 0.75 {
		t.Errorf("expected frozen fraction 0.75, got %f", frozen.Value())
	}

	flow := NewMeanTransverseFlow()
	flow.Observe(g, 1)
	vt := math.Hypot(0.6, 0.8) / math.Sqrt(2)
	if want := 10 * vt / 13; math.Abs(flow.Value()-want) > 1e-12 {
		t.Errorf("expected mean v_T %f, got %f", want, flow.Value())
	}
}

func TestStability(t *testing.T) {
	s := NewStability()
	if s.Value() != 1 {
		t.Error("expected stability 1 before any sample")
	}

	good := testGrid(t, 1)
	bad := testGrid(t, 1)
	bad.Cells[0].PiBulk = math.NaN()

	s.Observe(good, 1)
	s.Observe(bad, 2)
	if s.Value() != 0.5 {
		t.Errorf("expected stability 0.5, got %f", s.Value())
	}
}

func TestStandardNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Standard(eos.NewIdeal(eos.DefaultDegeneracy), hydro.Milne, 0.5) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
	}
}
