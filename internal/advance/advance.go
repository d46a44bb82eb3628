// Package advance performs one Runge-Kutta stage of the dissipative
// hydrodynamic equations on a whole grid.
package advance

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
	"github.com/san-kum/relhydro/internal/regulate"
	"github.com/san-kum/relhydro/internal/source"
)

// Params holds the numerical and transport settings of the stage update.
// A non-positive transport coefficient switches that current off.
type Params struct {
	Coordinates hydro.Coordinates
	Boundary    hydro.Boundary
	FluxLimiter float64
	EtaOverS    float64
	ZetaOverS   float64
	KappaCoeff  float64
	Workers     int
}

// Validate checks the numerical settings.
func (p Params) Validate() error {
	if p.FluxLimiter < 1 || p.FluxLimiter > 2 {
		return fmt.Errorf("%w: flux limiter %.3f outside [1, 2]", hydro.ErrInvalidConfig, p.FluxLimiter)
	}
	if p.EtaOverS < 0 || p.ZetaOverS < 0 || p.KappaCoeff < 0 {
		return fmt.Errorf("%w: negative transport coefficient", hydro.ErrInvalidConfig)
	}
	return nil
}

// Advancer performs Runge-Kutta stages of the fluid equations on a grid.
type Advancer struct {
	params Params
	eos    eos.EquationOfState
	reg    *regulate.Regulator
	src    source.HydroSource
	log    *log.Logger
}

// New builds an advancer. A nil source injects nothing and a nil logger
// falls back to log.Default().
func New(p Params, e eos.EquationOfState, reg *regulate.Regulator, src source.HydroSource, logger *log.Logger) (*Advancer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: missing equation of state", hydro.ErrInvalidConfig)
	}
	if reg == nil {
		reg = regulate.New(0, 0, 0)
	}
	if src == nil {
		src = source.None{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Advancer{params: p, eos: e, reg: reg, src: src, log: logger}, nil
}

// Params returns the numerical parameters the advancer was built with.
func (a *Advancer) Params() Params { return a.params }

// StageContext names the buffers of one stage. Stage 0 computes
// Out = In + Δτ·f(In) with Base == In. Stage 1 computes the Heun average
// Out = ½(Base + In + Δτ·f(In)), where In is the stage-0 estimate.
// Older is the state one Δτ before In and feeds ∂_τ u^μ.
type StageContext struct {
	Index    int
	Tau      float64
	DTau     float64
	Base     *hydro.Grid
	In       *hydro.Grid
	Older    *hydro.Grid
	Out      *hydro.Grid
	Counters *hydro.Counters
}

func (sc *StageContext) inputTau() float64 {
	return sc.Tau + float64(sc.Index)*sc.DTau
}

func (sc *StageContext) validate() error {
	if sc.Index < 0 || sc.Index > 1 {
		return fmt.Errorf("%w: runge-kutta stage %d", hydro.ErrInvalidConfig, sc.Index)
	}
	if sc.DTau <= 0 || sc.Tau <= 0 {
		return fmt.Errorf("%w: tau=%g dtau=%g", hydro.ErrInvalidConfig, sc.Tau, sc.DTau)
	}
	if sc.Base == nil || sc.In == nil || sc.Older == nil || sc.Out == nil {
		return fmt.Errorf("%w: stage %d missing buffer", hydro.ErrInvalidConfig, sc.Index)
	}
	for _, g := range []*hydro.Grid{sc.In, sc.Older, sc.Out} {
		if !sc.Base.SameShape(g) {
			return fmt.Errorf("advance: stage %d: %w", sc.Index, hydro.ErrDimensionMismatch)
		}
	}
	if sc.Out == sc.In || sc.Out == sc.Base || sc.Out == sc.Older {
		return fmt.Errorf("%w: stage %d writes into an input buffer", hydro.ErrInvalidConfig, sc.Index)
	}
	return nil
}

// Stage updates every cell of sc.Out from the input buffers. Cells are
// independent: each output cell reads only input buffers.
func (a *Advancer) Stage(sc StageContext) error {
	if err := sc.validate(); err != nil {
		return err
	}

	workers := a.params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	tallies := make([]hydro.Tally, workers)

	hydro.ParallelFor(len(sc.Out.Cells), workers, func(w, start, end int) {
		t := &tallies[w]
		for idx := start; idx < end; idx++ {
			a.updateCell(&sc, idx, t)
		}
	})

	var total hydro.Tally
	for _, t := range tallies {
		total.Add(t)
	}
	if sc.Counters != nil {
		sc.Counters.Merge(total)
	}
	if total.RecoveryFailures > 0 || total.Regularizations > 0 {
		a.log.Debug("stage corrections", "stage", sc.Index, "tau", sc.inputTau(),
			"recovery_failures", total.RecoveryFailures, "regularizations", total.Regularizations)
	}
	return nil
}

func (a *Advancer) updateCell(sc *StageContext, idx int, t *hydro.Tally) {
	ix, iy, ie := sc.Out.Coords(idx)
	tauIn := sc.inputTau()
	tauOut := sc.Tau + sc.DTau
	in := &sc.In.Cells[idx]
	base := &sc.Base.Cells[idx]

	rhs := a.divergence(sc.In, ix, iy, ie, tauIn)
	src := a.sources(in, sc.In, ix, iy, ie, tauIn)
	qIn := a.conserved(in, tauIn)
	qBase := qIn
	if sc.Index == 1 {
		qBase = a.conserved(base, sc.Tau)
	}

	var q [nCons]float64
	for k := range q {
		q[k] = sc.combine(qBase[k], qIn[k], rhs[k]+src[k])
	}

	var out hydro.Cell
	dW, dPi, dQ := a.relaxation(sc, ix, iy, ie, tauIn)
	if a.params.EtaOverS > 0 {
		for k := range out.Wmunu {
			out.Wmunu[k] = sc.combine(base.Wmunu[k], in.Wmunu[k], dW[k])
		}
	}
	if a.params.ZetaOverS > 0 {
		out.PiBulk = sc.combine(base.PiBulk, in.PiBulk, dPi)
	}
	if a.params.KappaCoeff > 0 {
		for mu := range out.Qmu {
			out.Qmu[mu] = sc.combine(base.Qmu[mu], in.Qmu[mu], dQ[mu])
		}
	}

	tf := a.params.Coordinates.TauFactor(tauOut)
	var tid [4]float64
	for nu := 0; nu < 4; nu++ {
		g := 0.0
		if nu == 0 {
			g = 1
		}
		tid[nu] = q[nu]/tf - out.Wmunu[hydro.ShearIdx(0, nu)] - out.PiBulk*(in.U[0]*in.U[nu]-g)
	}
	jid := q[4]/tf - out.Qmu[0]

	prim, ok := Recover(a.eos, tid, jid)
	if !ok {
		t.RecoveryFailures++
	}
	out.Epsilon, out.RhoB, out.U = prim.Epsilon, prim.RhoB, prim.U

	if !out.IsValid() {
		out = hydro.AtRest(hydro.EpsilonFloor, 0)
		t.RecoveryFailures++
	}
	a.reg.Cell(&out, a.eos.Pressure(out.Epsilon, out.RhoB), t)

	t.Cells++
	sc.Out.Cells[idx] = out
}

// combine applies the stage weights to one field with time derivative f.
func (sc *StageContext) combine(base, in, f float64) float64 {
	if sc.Index == 0 {
		return in + sc.DTau*f
	}
	return 0.5 * (base + in + sc.DTau*f)
}

// Stress returns T^{μν} and J^μ of a cell given its equilibrium pressure.
func Stress(c *hydro.Cell, p float64) (t [4][4]float64, j [4]float64) {
	h := c.Epsilon + p + c.PiBulk
	pb := p + c.PiBulk
	for mu := 0; mu < 4; mu++ {
		for nu := 0; nu < 4; nu++ {
			t[mu][nu] = h*c.U[mu]*c.U[nu] + c.Wmunu[hydro.ShearIdx(mu, nu)]
		}
		t[mu][mu] -= pb * hydro.Metric[mu]
		j[mu] = c.RhoB*c.U[mu] + c.Qmu[mu]
	}
	return t, j
}

// conserved returns τ·T^{τν} and τ·J^τ (no τ factor in Cartesian frames).
func (a *Advancer) conserved(c *hydro.Cell, tau float64) [nCons]float64 {
	tf := a.params.Coordinates.TauFactor(tau)
	t, j := Stress(c, a.eos.Pressure(c.Epsilon, c.RhoB))
	var q [nCons]float64
	for nu := 0; nu < 4; nu++ {
		q[nu] = tf * t[0][nu]
	}
	q[4] = tf * j[0]
	return q
}

// sources returns the geometric Milne terms plus external injection.
func (a *Advancer) sources(c *hydro.Cell, g *hydro.Grid, ix, iy, ie int, tau float64) [nCons]float64 {
	var s [nCons]float64
	if a.params.Coordinates == hydro.Milne {
		t, _ := Stress(c, a.eos.Pressure(c.Epsilon, c.RhoB))
		s[0] = -t[3][3]
		s[3] = -t[0][3]
	}

	tf := a.params.Coordinates.TauFactor(tau)
	x, y, eta := g.X(ix), g.Y(iy), g.Eta(ie)
	jm := a.src.EnergyMomentum(tau, x, y, eta)
	for nu := 0; nu < 4; nu++ {
		s[nu] += tf * jm[nu]
	}
	s[4] += tf * a.src.Baryon(tau, x, y, eta)
	return s
}
