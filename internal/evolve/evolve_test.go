package evolve_test

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/relhydro/internal/advance"
	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/evolve"
	"github.com/san-kum/relhydro/internal/freezeout"
	"github.com/san-kum/relhydro/internal/hydro"
	"github.com/san-kum/relhydro/internal/initial"
	"github.com/san-kum/relhydro/internal/metrics"
	"github.com/san-kum/relhydro/internal/regulate"
)

var quiet = log.New(io.Discard)

func newArena(l hydro.Lattice, p initial.Profile, e eos.EquationOfState) *hydro.Arena {
	a, err := hydro.NewArena(l)
	Expect(err).NotTo(HaveOccurred())
	Expect(initial.Populate(p, a, e)).To(Succeed())
	return a
}

func newAdvancer(p advance.Params, e eos.EquationOfState) *advance.Advancer {
	if p.FluxLimiter == 0 {
		p.FluxLimiter = 1.8
	}
	a, err := advance.New(p, e, regulate.New(1, 0.25, 1), nil, quiet)
	Expect(err).NotTo(HaveOccurred())
	return a
}

func newFinder(coords hydro.Coordinates, e eos.EquationOfState) *freezeout.Finder {
	f, err := freezeout.NewFinder(freezeout.Config{
		BoostInvariant: true, Coordinates: coords, FacX: 1, FacY: 1, FacEta: 1,
	}, e, quiet)
	Expect(err).NotTo(HaveOccurred())
	return f
}

func gev(eps ...float64) []float64 {
	out := make([]float64, len(eps))
	for i, e := range eps {
		out[i] = e / hydro.HbarC
	}
	return out
}

var _ = Describe("EvolveIt", func() {
	var (
		ideal *eos.Ideal
		ctx   context.Context
	)

	BeforeEach(func() {
		ideal = eos.NewIdeal(eos.DefaultDegeneracy)
		ctx = context.Background()
	})

	Context("with a static uniform state in Cartesian coordinates", func() {
		It("leaves every cell untouched", func() {
			l := hydro.Lattice{NX: 6, NY: 6, NEta: 1, DX: 0.5, DY: 0.5, DEta: 0.5}
			arena := newArena(l, initial.Profile{Kind: initial.Uniform, Epsilon0: 2.0}, ideal)
			adv := newAdvancer(advance.Params{Coordinates: hydro.Cartesian, Boundary: hydro.Periodic}, ideal)

			ev, err := evolve.New(evolve.Params{Tau0: 1, TauMax: 1.5, DTau: 0.05, RKOrder: 2}, adv, nil, quiet)
			Expect(err).NotTo(HaveOccurred())

			res, err := ev.EvolveIt(ctx, arena)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(10))
			Expect(res.Reason).To(Equal(evolve.ReachedTauMax))
			Expect(res.Tau).To(BeNumerically("~", 1.5, 1e-12))

			want := 2.0 / hydro.HbarC
			for i := range arena.Current.Cells {
				c := &arena.Current.Cells[i]
				Expect(c.Epsilon).To(BeNumerically("~", want, 1e-12*want))
				Expect(c.U[0]).To(BeNumerically("~", 1, 1e-14))
			}
		})
	})

	Context("with periodic boundaries", func() {
		It("conserves the total energy of a Gaussian bump", func() {
			l := hydro.Lattice{NX: 16, NY: 16, NEta: 1, DX: 0.4, DY: 0.4, DEta: 0.4}
			arena := newArena(l, initial.Profile{
				Kind: initial.HotSpot, Epsilon0: 3.0, Background: 0.5, Radius: 1.0,
			}, ideal)
			adv := newAdvancer(advance.Params{Coordinates: hydro.Cartesian, Boundary: hydro.Periodic}, ideal)

			ev, err := evolve.New(evolve.Params{Tau0: 1, TauMax: 2, DTau: 0.04, RKOrder: 2}, adv, nil, quiet)
			Expect(err).NotTo(HaveOccurred())
			drift := metrics.NewEnergyDrift(ideal, hydro.Cartesian)
			ev.AddMetric(drift)

			res, err := ev.EvolveIt(ctx, arena)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Series["energy_drift"]).To(HaveLen(res.Steps + 1))
			Expect(drift.Value()).To(BeNumerically("<", 1e-8))
			Expect(res.Diagnostics.RecoveryFailures).To(BeZero())
		})
	})

	Context("with a cooling hot spot", func() {
		var (
			l       hydro.Lattice
			profile initial.Profile
			dir     string
		)

		BeforeEach(func() {
			l = hydro.Lattice{NX: 15, NY: 15, NEta: 1, DX: 0.5, DY: 0.5, DEta: 0.5}
			profile = initial.Profile{Kind: initial.HotSpot, Epsilon0: 1.0, Background: 0.1, Radius: 1.5}
			dir = GinkgoT().TempDir()
		})

		run := func(p evolve.Params) (*evolve.Result, error) {
			arena := newArena(l, profile, ideal)
			adv := newAdvancer(advance.Params{Coordinates: hydro.Milne, Boundary: hydro.Outflow}, ideal)
			ev, err := evolve.New(p, adv, newFinder(hydro.Milne, ideal), quiet)
			Expect(err).NotTo(HaveOccurred())
			return ev.EvolveIt(ctx, arena)
		}

		It("writes surface elements and stops once frozen out", func() {
			steps := 0
			p := evolve.Params{
				Tau0: 0.6, TauMax: 3, DTau: 0.02, RKOrder: 2,
				Thresholds: gev(0.5), FacTau: 2, OutputDir: dir,
			}
			arena := newArena(l, profile, ideal)
			adv := newAdvancer(advance.Params{Coordinates: hydro.Milne}, ideal)
			ev, err := evolve.New(p, adv, newFinder(hydro.Milne, ideal), quiet)
			Expect(err).NotTo(HaveOccurred())
			ev.AddObserver(evolve.ObserverFunc(func(info evolve.StepInfo) { steps = info.Step }))

			res, err := ev.EvolveIt(ctx, arena)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(evolve.FrozenOut))
			Expect(res.Tau).To(BeNumerically("<", 3))
			Expect(steps).To(Equal(res.Steps))
			Expect(arena.Current.MaxEpsilon()).To(BeNumerically("<", 0.5/hydro.HbarC))

			Expect(res.Surfaces).To(HaveLen(1))
			surf := res.Surfaces[0]
			Expect(surf.Elements).To(BeNumerically(">", 0))
			Expect(surf.Path).To(Equal(filepath.Join(dir, freezeout.FileName(0.5))))

			els, err := freezeout.ReadAll(surf.Path)
			Expect(err).NotTo(HaveOccurred())
			Expect(els).To(HaveLen(surf.Elements))
			for _, el := range els {
				Expect(el.Tau).To(BeNumerically(">=", 0.6))
				Expect(el.Tau).To(BeNumerically("<=", res.Tau))
				Expect(el.Epsilon * hydro.HbarC).To(BeNumerically("~", 0.5, 0.25))
				Expect(el.Temperature).To(BeNumerically(">", 0))
			}
		})

		It("freezes lower thresholds later", func() {
			res, err := run(evolve.Params{
				Tau0: 0.6, TauMax: 4, DTau: 0.02, RKOrder: 2,
				Thresholds: gev(0.6, 0.3), FacTau: 2, OutputDir: dir,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Surfaces).To(HaveLen(2))

			var sums [2]freezeout.Summary
			for i, s := range res.Surfaces {
				els, err := freezeout.ReadAll(s.Path)
				Expect(err).NotTo(HaveOccurred())
				Expect(els).NotTo(BeEmpty())
				sums[i] = freezeout.Summarize(els)
			}
			Expect(sums[1].TauMax).To(BeNumerically(">", sums[0].TauMax))
			Expect(sums[1].MeanT).To(BeNumerically("<", sums[0].MeanT))
		})

		It("only counts elements without an output directory", func() {
			res, err := run(evolve.Params{
				Tau0: 0.6, TauMax: 3, DTau: 0.02, RKOrder: 1,
				Thresholds: gev(0.5), FacTau: 1,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Surfaces[0].Path).To(BeEmpty())
			Expect(res.Surfaces[0].Elements).To(BeNumerically(">", 0))
		})

		It("emits the surface between neighbours even when no cell crosses", func() {
			l = hydro.Lattice{NX: 9, NY: 9, NEta: 1, DX: 0.5, DY: 0.5, DEta: 0.5}
			profile = initial.Profile{Kind: initial.HotSpot, Epsilon0: 1.0, Background: 0.1, Radius: 0.3}

			res, err := run(evolve.Params{
				Tau0: 0.6, TauMax: 0.62, DTau: 0.02, RKOrder: 2,
				Thresholds: gev(0.5), FacTau: 4, OutputDir: dir,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(1))
			Expect(res.Reason).To(Equal(evolve.ReachedTauMax))
			Expect(res.Surfaces[0].Elements).To(BeNumerically(">", 0))

			els, err := freezeout.ReadAll(res.Surfaces[0].Path)
			Expect(err).NotTo(HaveOccurred())
			Expect(els).To(HaveLen(res.Surfaces[0].Elements))
			for _, el := range els {
				Expect(math.Hypot(el.X, el.Y)).To(BeNumerically("<", 0.75))
			}
		})

		It("closes surface files when cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			ctx = cctx

			res, err := run(evolve.Params{
				Tau0: 0.6, TauMax: 3, DTau: 0.02, RKOrder: 2,
				Thresholds: gev(0.5), FacTau: 2, OutputDir: dir,
			})
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(res.Reason).To(Equal(evolve.Cancelled))
			Expect(res.Steps).To(BeZero())

			_, statErr := os.Stat(filepath.Join(dir, freezeout.FileName(0.5)))
			Expect(statErr).NotTo(HaveOccurred())
		})
	})

	Context("when corrections dominate", func() {
		It("aborts with an unstable step error", func() {
			l := hydro.Lattice{NX: 4, NY: 4, NEta: 1, DX: 0.5, DY: 0.5, DEta: 0.5}
			arena := newArena(l, initial.Profile{Kind: initial.Uniform, Epsilon0: 2.0}, ideal)
			for _, g := range []*hydro.Grid{arena.Prev, arena.Current} {
				for i := range g.Cells {
					c := &g.Cells[i]
					big := 100 * (c.Epsilon + ideal.Pressure(c.Epsilon, 0))
					c.Wmunu[hydro.ShearIdx(1, 1)] = big
					c.Wmunu[hydro.ShearIdx(2, 2)] = -big
				}
			}
			adv := newAdvancer(advance.Params{
				Coordinates: hydro.Cartesian, Boundary: hydro.Periodic, EtaOverS: 0.2,
			}, ideal)
			ev, err := evolve.New(evolve.Params{
				Tau0: 1, TauMax: 2, DTau: 0.02, RKOrder: 2, MaxWeirdFraction: 0.01,
			}, adv, nil, quiet)
			Expect(err).NotTo(HaveOccurred())

			res, err := ev.EvolveIt(ctx, arena)
			Expect(errors.Is(err, hydro.ErrUnstable)).To(BeTrue())
			var stepErr *hydro.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(1))
			Expect(res.Diagnostics.Regularizations).To(BeNumerically(">", 0))
		})
	})

	Describe("New", func() {
		It("rejects inconsistent parameters", func() {
			adv := newAdvancer(advance.Params{}, ideal)
			bad := []evolve.Params{
				{Tau0: 0, TauMax: 1, DTau: 0.1, RKOrder: 2},
				{Tau0: 1, TauMax: 1, DTau: 0.1, RKOrder: 2},
				{Tau0: 1, TauMax: 2, DTau: 0, RKOrder: 2},
				{Tau0: 1, TauMax: 2, DTau: 0.1, RKOrder: 4},
				{Tau0: 1, TauMax: 2, DTau: 0.1, RKOrder: 2, Thresholds: gev(0.2), FacTau: 0},
				{Tau0: 1, TauMax: 2, DTau: 0.1, RKOrder: 2, Thresholds: []float64{math.NaN()}, FacTau: 1},
			}
			for _, p := range bad {
				_, err := evolve.New(p, adv, newFinder(hydro.Milne, ideal), quiet)
				Expect(errors.Is(err, hydro.ErrInvalidConfig)).To(BeTrue(), "%+v", p)
			}

			_, err := evolve.New(evolve.Params{
				Tau0: 1, TauMax: 2, DTau: 0.1, RKOrder: 2, Thresholds: gev(0.2), FacTau: 1,
			}, adv, nil, quiet)
			Expect(errors.Is(err, hydro.ErrInvalidConfig)).To(BeTrue())
		})
	})
})
