package hydro

// Arena owns the buffers of the proper-time loop. Prev holds the state at
// τ-Δτ, Current the state at τ, Future the target of the step in progress
// and Stage the intermediate Runge-Kutta estimate. Freeze is the snapshot
// the surface finder compares against.
type Arena struct {
	Prev, Current, Future, Stage, Freeze *Grid
}

// NewArena allocates all buffers once with the lattice extents.
func NewArena(l Lattice) (*Arena, error) {
	grids := make([]*Grid, 5)
	for i := range grids {
		g, err := NewGrid(l)
		if err != nil {
			return nil, err
		}
		grids[i] = g
	}
	return &Arena{
		Prev:    grids[0],
		Current: grids[1],
		Future:  grids[2],
		Stage:   grids[3],
		Freeze:  grids[4],
	}, nil
}

// Lattice returns the shared lattice of every buffer.
func (a *Arena) Lattice() Lattice { return a.Current.Lattice }

// Rotate advances the buffer roles by one step without copying:
// prev ← current, current ← future, and the old prev becomes scratch.
func (a *Arena) Rotate() {
	a.Prev, a.Current, a.Future = a.Current, a.Future, a.Prev
}

// SnapshotForFreezeout copies Current into Freeze.
func (a *Arena) SnapshotForFreezeout() error {
	return a.Freeze.CopyFrom(a.Current)
}
