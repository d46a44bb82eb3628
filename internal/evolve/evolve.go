// Package evolve runs the proper-time loop: Runge-Kutta stages, buffer
// rotation, freeze-out extraction and per-step observation.
package evolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/san-kum/relhydro/internal/advance"
	"github.com/san-kum/relhydro/internal/freezeout"
	"github.com/san-kum/relhydro/internal/hydro"
	"github.com/san-kum/relhydro/internal/metrics"
)

// Evolver runs the proper-time loop over an arena and extracts freeze-out
// surfaces.
type Evolver struct {
	params    Params
	adv       *advance.Advancer
	finder    *freezeout.Finder
	metrics   []metrics.Metric
	observers []Observer
	counters  *hydro.Counters
	log       *log.Logger
}

// New builds an evolver. finder may be nil only when no thresholds are set.
func New(p Params, adv *advance.Advancer, finder *freezeout.Finder, logger *log.Logger) (*Evolver, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if adv == nil {
		return nil, fmt.Errorf("%w: missing advancer", hydro.ErrInvalidConfig)
	}
	if finder == nil && len(p.Thresholds) > 0 {
		return nil, fmt.Errorf("%w: freeze-out thresholds without a surface finder", hydro.ErrInvalidConfig)
	}
	if logger == nil {
		logger = log.Default()
	}
	p.Thresholds = slices.Clone(p.Thresholds)
	return &Evolver{
		params:   p,
		adv:      adv,
		finder:   finder,
		counters: &hydro.Counters{},
		log:      logger,
	}, nil
}

func (p Params) validate() error {
	switch {
	case p.Tau0 <= 0:
		return fmt.Errorf("%w: tau0 must be positive, got %g", hydro.ErrInvalidConfig, p.Tau0)
	case p.TauMax <= p.Tau0:
		return fmt.Errorf("%w: tau_max %g must exceed tau0 %g", hydro.ErrInvalidConfig, p.TauMax, p.Tau0)
	case p.DTau <= 0:
		return fmt.Errorf("%w: dtau must be positive, got %g", hydro.ErrInvalidConfig, p.DTau)
	case p.RKOrder != 1 && p.RKOrder != 2:
		return fmt.Errorf("%w: rk order must be 1 or 2, got %d", hydro.ErrInvalidConfig, p.RKOrder)
	case len(p.Thresholds) > 0 && p.FacTau < 1:
		return fmt.Errorf("%w: fac_tau must be >= 1", hydro.ErrInvalidConfig)
	}
	for _, e := range p.Thresholds {
		if e <= 0 || math.IsNaN(e) {
			return fmt.Errorf("%w: freeze-out threshold %g", hydro.ErrInvalidConfig, e)
		}
	}
	return nil
}

func (e *Evolver) AddMetric(m metrics.Metric) { e.metrics = append(e.metrics, m) }
func (e *Evolver) AddObserver(o Observer)     { e.observers = append(e.observers, o) }

// Counters exposes the run diagnostics; they keep accumulating across runs.
func (e *Evolver) Counters() *hydro.Counters { return e.counters }

// surfaceSink pairs a threshold with its output stream.
type surfaceSink struct {
	eps    float64
	writer *freezeout.Writer
}

func (e *Evolver) openSinks() ([]surfaceSink, error) {
	sinks := make([]surfaceSink, 0, len(e.params.Thresholds))
	for _, eps := range e.params.Thresholds {
		var w *freezeout.Writer
		if e.params.OutputDir == "" {
			w = freezeout.NewWriter(io.Discard)
		} else {
			var err error
			w, err = freezeout.Create(e.params.OutputDir, eps*hydro.HbarC)
			if err != nil {
				closeSinks(sinks)
				return nil, err
			}
		}
		sinks = append(sinks, surfaceSink{eps: eps, writer: w})
	}
	return sinks, nil
}

func closeSinks(sinks []surfaceSink) error {
	var errs []error
	for _, s := range sinks {
		errs = append(errs, s.writer.Close())
	}
	return errors.Join(errs...)
}

// EvolveIt advances arena from Tau0. Prev and Current must already hold the
// initial state. The loop ends at TauMax, once every cell has dropped below
// the lowest threshold, or when ctx is cancelled; surface files are closed
// on every path.
func (e *Evolver) EvolveIt(ctx context.Context, arena *hydro.Arena) (res *Result, err error) {
	p := e.params
	sinks, err := e.openSinks()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closeSinks(sinks); cerr != nil && err == nil {
			err = cerr
		}
		if res != nil {
			res.Surfaces = surfaces(sinks)
			res.Diagnostics = e.counters.Snapshot()
		}
	}()

	for _, m := range e.metrics {
		m.Reset()
	}
	res = &Result{Tau: p.Tau0, Series: make(map[string][]float64, len(e.metrics))}

	if err := arena.SnapshotForFreezeout(); err != nil {
		return nil, err
	}
	freezeTau := p.Tau0
	lowest := math.Inf(-1)
	if len(p.Thresholds) > 0 {
		lowest = slices.Min(p.Thresholds)
	}

	nSteps := int(math.Ceil((p.TauMax-p.Tau0)/p.DTau - 1e-9))
	e.log.Info("evolution started", "tau0", p.Tau0, "tau_max", p.TauMax, "dtau", p.DTau,
		"steps", nSteps, "rk_order", p.RKOrder, "thresholds", len(p.Thresholds))
	e.observe(res, sinks, arena, 0, p.Tau0)

	res.Reason = ReachedTauMax
	for step := 1; step <= nSteps; step++ {
		select {
		case <-ctx.Done():
			res.Reason = Cancelled
			e.log.Warn("evolution cancelled", "step", res.Steps, "tau", res.Tau)
			return res, ctx.Err()
		default:
		}

		tau := p.Tau0 + float64(step-1)*p.DTau
		if err := e.step(arena, tau); err != nil {
			return res, &hydro.StepError{Step: step, Tau: tau, Wrapped: err}
		}
		tau = p.Tau0 + float64(step)*p.DTau
		res.Steps, res.Tau = step, tau

		if d := e.counters.Snapshot(); p.MaxWeirdFraction > 0 && d.WeirdFraction() > p.MaxWeirdFraction {
			return res, &hydro.StepError{Step: step, Tau: tau, Wrapped: fmt.Errorf(
				"%w: %d of %d cells corrected", hydro.ErrUnstable, d.WeirdCases(), d.Cells)}
		}

		frozen := len(sinks) > 0 && arena.Current.MaxEpsilon() < lowest
		if len(sinks) > 0 && (step%p.FacTau == 0 || frozen || step == nSteps) {
			if err := e.extract(sinks, arena, freezeTau, tau); err != nil {
				return res, &hydro.StepError{Step: step, Tau: tau, Wrapped: err}
			}
			freezeTau = tau
		}

		e.observe(res, sinks, arena, step, tau)

		if frozen {
			res.Reason = FrozenOut
			break
		}
	}

	e.log.Info("evolution finished", "reason", res.Reason, "steps", res.Steps, "tau", res.Tau)
	return res, nil
}

// step runs one Euler or Heun step from Current at tau and rotates.
func (e *Evolver) step(a *hydro.Arena, tau float64) error {
	p := e.params
	if p.RKOrder == 1 {
		if err := e.adv.Stage(advance.StageContext{
			Index: 0, Tau: tau, DTau: p.DTau,
			Base: a.Current, In: a.Current, Older: a.Prev, Out: a.Future, Counters: e.counters,
		}); err != nil {
			return err
		}
		a.Rotate()
		return nil
	}

	if err := e.adv.Stage(advance.StageContext{
		Index: 0, Tau: tau, DTau: p.DTau,
		Base: a.Current, In: a.Current, Older: a.Prev, Out: a.Stage, Counters: e.counters,
	}); err != nil {
		return err
	}
	if err := e.adv.Stage(advance.StageContext{
		Index: 1, Tau: tau, DTau: p.DTau,
		Base: a.Current, In: a.Stage, Older: a.Current, Out: a.Future, Counters: e.counters,
	}); err != nil {
		return err
	}
	a.Rotate()
	return nil
}

// extract writes the surface pieces between the freeze-out snapshot and
// Current for every threshold the two slices span, then re-snapshots.
func (e *Evolver) extract(sinks []surfaceSink, a *hydro.Arena, tauLo, tauHi float64) error {
	for _, s := range sinks {
		if !spans(a.Freeze, a.Current, s.eps) {
			continue
		}
		els, err := e.finder.Find(a.Freeze, a.Current, tauLo, tauHi, s.eps, e.counters)
		if err != nil {
			return err
		}
		if err := s.writer.Write(els); err != nil {
			return err
		}
		e.log.Debug("freeze-out surface", "eps_fo", s.eps*hydro.HbarC, "tau", tauHi, "elements", len(els))
	}
	return a.SnapshotForFreezeout()
}

// spans reports whether the two slices hold values on both sides of eps.
// A cell changing side is one case; a front sitting between neighbours
// that both keep their side is another, and still bounds a surface piece.
func spans(lo, hi *hydro.Grid, eps float64) bool {
	above, below := false, false
	for _, g := range []*hydro.Grid{lo, hi} {
		for i := range g.Cells {
			if g.Cells[i].Epsilon >= eps {
				above = true
			} else {
				below = true
			}
			if above && below {
				return true
			}
		}
	}
	return false
}

func (e *Evolver) observe(res *Result, sinks []surfaceSink, a *hydro.Arena, step int, tau float64) {
	values := make(map[string]float64, len(e.metrics))
	for _, m := range e.metrics {
		m.Observe(a.Current, tau)
		values[m.Name()] = m.Value()
		res.Series[m.Name()] = append(res.Series[m.Name()], m.Value())
	}
	res.Times = append(res.Times, tau)

	if len(e.observers) == 0 {
		return
	}
	elements := 0
	for _, s := range sinks {
		elements += s.writer.Count()
	}
	info := StepInfo{
		Step:        step,
		Tau:         tau,
		TauMax:      e.params.TauMax,
		MaxEpsilon:  a.Current.MaxEpsilon() * hydro.HbarC,
		Elements:    elements,
		Metrics:     values,
		Diagnostics: e.counters.Snapshot(),
	}
	for _, o := range e.observers {
		o.OnStep(info)
	}
}

func surfaces(sinks []surfaceSink) []Surface {
	out := make([]Surface, len(sinks))
	for i, s := range sinks {
		out[i] = Surface{EpsilonFO: s.eps * hydro.HbarC, Path: s.writer.Path(), Elements: s.writer.Count()}
	}
	return out
}
