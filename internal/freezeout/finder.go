// Package freezeout extracts iso-energy-density hypersurfaces between two
// time slices of the fluid and streams them to disk.
package freezeout

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

var (
	// ErrNonFinite indicates a corner with NaN or infinite energy density.
	ErrNonFinite = errors.New("freezeout: non-finite energy density")

	// ErrShortRecord indicates a surface file truncated mid-record.
	ErrShortRecord = errors.New("freezeout: truncated surface record")
)

// Config selects the finder geometry. Strides are in lattice cells.
type Config struct {
	BoostInvariant bool
	Coordinates    hydro.Coordinates
	FacX           int
	FacY           int
	FacEta         int
	Workers        int
}

// Finder locates ε = ε_FO between two slices. It is safe for concurrent use.
type Finder struct {
	cfg Config
	eos eos.EquationOfState
	log *log.Logger
}

func NewFinder(cfg Config, e eos.EquationOfState, logger *log.Logger) (*Finder, error) {
	if cfg.FacX < 1 || cfg.FacY < 1 || cfg.FacEta < 1 {
		return nil, fmt.Errorf("%w: freeze-out strides must be >= 1", hydro.ErrInvalidConfig)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: missing equation of state", hydro.ErrInvalidConfig)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Finder{cfg: cfg, eos: e, log: logger}, nil
}

func (f *Finder) dim() int {
	if f.cfg.BoostInvariant {
		return 3
	}
	return 4
}

// Find returns the surface elements between lo (at tauLo) and hi (at tauHi)
// sorted by proper time. Degenerate cubes, with every corner exactly at
// epsFO, are skipped and counted as warnings.
func (f *Finder) Find(lo, hi *hydro.Grid, tauLo, tauHi, epsFO float64, counters *hydro.Counters) ([]Element, error) {
	if !lo.SameShape(hi) {
		return nil, fmt.Errorf("freezeout: %w", hydro.ErrDimensionMismatch)
	}
	if tauHi <= tauLo {
		return nil, fmt.Errorf("%w: freeze-out slices tau %g -> %g", hydro.ErrInvalidConfig, tauLo, tauHi)
	}
	if !f.cfg.BoostInvariant && lo.NEta <= f.cfg.FacEta {
		return nil, fmt.Errorf("%w: %d eta slices cannot form 4-d cells with stride %d",
			hydro.ErrInvalidConfig, lo.NEta, f.cfg.FacEta)
	}

	// Independent slabs: η slices in 4-d, y rows in the boost-invariant case.
	var slabs []int
	if f.cfg.BoostInvariant {
		for iy := 0; iy+f.cfg.FacY < lo.NY; iy += f.cfg.FacY {
			slabs = append(slabs, iy)
		}
	} else {
		for ie := 0; ie+f.cfg.FacEta < lo.NEta; ie += f.cfg.FacEta {
			slabs = append(slabs, ie)
		}
	}

	workers := f.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([][]Element, len(slabs))
	tallies := make([]hydro.Tally, len(slabs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, s := range slabs {
		i, s := i, s
		g.Go(func() error {
			els, err := f.slab(lo, hi, tauLo, tauHi, epsFO, s, &tallies[i])
			results[i] = els
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total hydro.Tally
	n := 0
	for i := range slabs {
		total.Add(tallies[i])
		n += len(results[i])
	}
	if counters != nil {
		counters.Merge(total)
	}
	if total.Warnings > 0 {
		f.log.Warn("degenerate freeze-out cells skipped", "count", total.Warnings, "eps_fo", epsFO*hydro.HbarC)
	}

	out := make([]Element, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	slices.SortStableFunc(out, func(a, b Element) int { return cmp.Compare(a.Tau, b.Tau) })
	return out, nil
}

// slab scans every cube whose lowest corner lies on one slab index.
func (f *Finder) slab(lo, hi *hydro.Grid, tauLo, tauHi, epsFO float64, s int, t *hydro.Tally) ([]Element, error) {
	d := f.dim()
	fx, fy, fe := f.cfg.FacX, f.cfg.FacY, f.cfg.FacEta
	spacing := [maxDim]float64{tauHi - tauLo, float64(fx) * lo.DX, float64(fy) * lo.DY, float64(fe) * lo.DEta}

	y0, y1 := 0, lo.NY-fy
	e0, e1 := s, s+1
	if f.cfg.BoostInvariant {
		y0, y1 = s, s+1
		e0 = lo.NEta / 2
		e1 = e0 + 1
	}

	var (
		out     []Element
		patches []patch
		corners [1 << maxDim]*hydro.Cell
		c       = cube{dim: d}
	)
	for v := 0; v < 1<<d; v++ {
		for k := 0; k < d; k++ {
			if v&(1<<k) != 0 {
				c.pos[v][k] = spacing[k]
			}
		}
	}

	for ie := e0; ie < e1; ie++ {
		for iy := y0; iy < y1; iy += fy {
			for ix := 0; ix+fx < lo.NX; ix += fx {
				above, below := 0, 0
				for v := 0; v < 1<<d; v++ {
					g := lo
					if v&1 != 0 {
						g = hi
					}
					cx, cy, ce := ix, iy, ie
					if v&2 != 0 {
						cx += fx
					}
					if v&4 != 0 {
						cy += fy
					}
					if d == 4 && v&8 != 0 {
						ce += fe
					}
					cell := g.At(cx, cy, ce)
					if math.IsNaN(cell.Epsilon) || math.IsInf(cell.Epsilon, 0) {
						return nil, fmt.Errorf("%w at (%d, %d, %d)", ErrNonFinite, cx, cy, ce)
					}
					corners[v] = cell
					c.values[v] = cell.Epsilon - epsFO
					switch {
					case c.values[v] > 0:
						above++
					case c.values[v] < 0:
						below++
					}
				}
				if above == 0 && below == 0 {
					t.Warnings++
					continue
				}
				if above == 0 || below == 0 {
					continue
				}

				patches = c.patches(patches[:0])
				if len(patches) == 0 {
					continue
				}
				origin := [maxDim]float64{tauLo, lo.X(ix), lo.Y(iy), 0}
				if d == 4 {
					origin[3] = lo.Eta(ie)
				}
				for _, group := range components(patches, d) {
					out = append(out, f.element(patches, group, &c, &corners, origin, spacing))
				}
			}
		}
	}
	return out, nil
}

// element sums one connected group of patches and interpolates the fluid
// to its centroid.
func (f *Finder) element(ps []patch, group []int, c *cube, corners *[1 << maxDim]*hydro.Cell,
	origin, spacing [maxDim]float64) Element {
	d := c.dim
	var dsigma, centroid, mean [maxDim]float64
	weight := 0.0
	for _, i := range group {
		p := &ps[i]
		for k := 0; k < d; k++ {
			dsigma[k] += p.normal[k]
			centroid[k] += p.volume * p.centroid[k]
			mean[k] += p.centroid[k] / float64(len(group))
		}
		weight += p.volume
	}
	if weight > 0 {
		for k := 0; k < d; k++ {
			centroid[k] /= weight
		}
	} else {
		centroid = mean
	}

	var frac [maxDim]float64
	for k := 0; k < d; k++ {
		frac[k] = centroid[k] / spacing[k]
	}

	var el Element
	el.Tau = origin[0] + centroid[0]
	el.X = origin[1] + centroid[1]
	el.Y = origin[2] + centroid[2]
	if d == 4 {
		el.Eta = origin[3] + centroid[3]
	}
	// The Milne volume factor τ cancels against the orthonormal η leg.
	tf := f.cfg.Coordinates.TauFactor(el.Tau)
	for k := 0; k < 3; k++ {
		el.DSigma[k] = tf * dsigma[k]
	}
	el.DSigma[3] = dsigma[3]

	var u [4]float64
	for v := 0; v < 1<<d; v++ {
		w := 1.0
		for k := 0; k < d; k++ {
			if v&(1<<k) != 0 {
				w *= frac[k]
			} else {
				w *= 1 - frac[k]
			}
		}
		if w == 0 {
			continue
		}
		cell := corners[v]
		el.Epsilon += w * cell.Epsilon
		el.RhoB += w * cell.RhoB
		el.PiBulk += w * cell.PiBulk
		for mu := 0; mu < 4; mu++ {
			u[mu] += w * cell.U[mu]
			el.Qmu[mu] += w * cell.Qmu[mu]
		}
		for k := range el.Wmunu {
			el.Wmunu[k] += w * cell.Wmunu[k]
		}
	}
	el.U = hydro.Normalize(u)

	el.Pressure = f.eos.Pressure(el.Epsilon, el.RhoB)
	el.Temperature = f.eos.Temperature(el.Epsilon, el.RhoB)
	el.MuB = f.eos.ChemicalPotential(el.Epsilon, el.RhoB)
	if el.Temperature > 0 {
		el.EnthalpyOverT = (el.Epsilon + el.Pressure) / el.Temperature
	}
	return el
}
