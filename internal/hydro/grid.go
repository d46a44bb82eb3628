package hydro

import (
	"fmt"
	"strings"
)

// Lattice fixes the extents and spacings of the spatial grid. DEta is a
// rapidity spacing in Milne coordinates and a length in Cartesian ones.
type Lattice struct {
	NX, NY, NEta int
	DX, DY, DEta float64
}

// Validate returns ErrGridDimensions for empty or degenerate lattices.
func (l Lattice) Validate() error {
	if l.NX <= 0 || l.NY <= 0 || l.NEta <= 0 {
		return fmt.Errorf("%w: nx=%d ny=%d neta=%d", ErrGridDimensions, l.NX, l.NY, l.NEta)
	}
	if l.DX <= 0 || l.DY <= 0 || l.DEta <= 0 {
		return fmt.Errorf("%w: dx=%g dy=%g deta=%g", ErrGridDimensions, l.DX, l.DY, l.DEta)
	}
	return nil
}

// Size returns the number of cells.
func (l Lattice) Size() int { return l.NX * l.NY * l.NEta }

// X returns the transverse coordinate of column ix, centred on the grid.
func (l Lattice) X(ix int) float64 { return (float64(ix) - float64(l.NX-1)/2) * l.DX }

// Y returns the transverse coordinate of row iy.
func (l Lattice) Y(iy int) float64 { return (float64(iy) - float64(l.NY-1)/2) * l.DY }

// Eta returns the longitudinal coordinate of slice ieta.
func (l Lattice) Eta(ieta int) float64 { return (float64(ieta) - float64(l.NEta-1)/2) * l.DEta }

// CellVolume returns dx·dy·dη.
func (l Lattice) CellVolume() float64 { return l.DX * l.DY * l.DEta }

// Grid provides an interface for reasoning over a 1D slice of cells as if it
// were a 3D lattice.
type Grid struct {
	Lattice
	Cells []Cell
	area  int
}

// NewGrid allocates a grid of static cells at the energy-density floor.
func NewGrid(l Lattice) (*Grid, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{Lattice: l, Cells: make([]Cell, l.Size()), area: l.NX * l.NY}
	g.Fill(AtRest(EpsilonFloor, 0))
	return g, nil
}

// Idx returns the cell index of (ix, iy, ieta).
func (g *Grid) Idx(ix, iy, ieta int) int {
	return ix + iy*g.NX + ieta*g.area
}

// Coords returns the lattice coordinates of a cell index.
func (g *Grid) Coords(idx int) (ix, iy, ieta int) {
	ix = idx % g.NX
	iy = (idx % g.area) / g.NX
	ieta = idx / g.area
	return ix, iy, ieta
}

// At returns the cell at (ix, iy, ieta).
func (g *Grid) At(ix, iy, ieta int) *Cell {
	return &g.Cells[g.Idx(ix, iy, ieta)]
}

// Fill overwrites every cell with c.
func (g *Grid) Fill(c Cell) {
	for i := range g.Cells {
		g.Cells[i] = c
	}
}

// SameShape reports whether two grids share extents.
func (g *Grid) SameShape(o *Grid) bool {
	return g.NX == o.NX && g.NY == o.NY && g.NEta == o.NEta
}

// CopyFrom overwrites g with the contents of src.
func (g *Grid) CopyFrom(src *Grid) error {
	if !g.SameShape(src) {
		return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", ErrDimensionMismatch,
			g.NX, g.NY, g.NEta, src.NX, src.NY, src.NEta)
	}
	ParallelFor(len(g.Cells), 0, func(_, start, end int) {
		copy(g.Cells[start:end], src.Cells[start:end])
	})
	return nil
}

// MaxEpsilon returns the largest energy density on the grid.
func (g *Grid) MaxEpsilon() float64 {
	m := 0.0
	for i := range g.Cells {
		if g.Cells[i].Epsilon > m {
			m = g.Cells[i].Epsilon
		}
	}
	return m
}

// Coordinates selects the space-time frame of the evolution.
type Coordinates int

const (
	Milne Coordinates = iota
	Cartesian
)

// ParseCoordinates resolves a configuration string.
func ParseCoordinates(s string) (Coordinates, error) {
	switch strings.ToLower(s) {
	case "", "milne":
		return Milne, nil
	case "cartesian":
		return Cartesian, nil
	}
	return 0, fmt.Errorf("%w: unknown coordinates %q", ErrInvalidConfig, s)
}

func (c Coordinates) String() string {
	if c == Cartesian {
		return "cartesian"
	}
	return "milne"
}

// TauFactor returns the Jacobian τ in Milne coordinates and 1 otherwise.
func (c Coordinates) TauFactor(tau float64) float64 {
	if c == Milne {
		return tau
	}
	return 1
}

// Boundary selects how stencils treat neighbours outside the lattice.
type Boundary int

const (
	Outflow Boundary = iota
	Periodic
)

// ParseBoundary resolves a configuration string.
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(s) {
	case "", "outflow":
		return Outflow, nil
	case "periodic":
		return Periodic, nil
	}
	return 0, fmt.Errorf("%w: unknown boundary %q", ErrInvalidConfig, s)
}

func (b Boundary) String() string {
	if b == Periodic {
		return "periodic"
	}
	return "outflow"
}

// Wrap maps a possibly out-of-range index back onto [0, n).
func (b Boundary) Wrap(i, n int) int {
	if b == Periodic {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
