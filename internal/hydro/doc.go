// Package hydro provides the core data model shared by the stepping engine
// and the freeze-out surface finder.
//
// The package defines:
//
//   - [Cell]: the per-site fluid state (ε, u^μ, n_B, W^{μν}, Π, q^μ)
//   - [Grid]: a dense (x, y, η) lattice of cells addressed by index
//   - [Arena]: the named buffer roles (prev, current, future, stage, freeze)
//     rotated by pointer exchange between proper-time steps
//   - [Counters] and [Tally]: diagnostics accumulators merged across workers
//   - [ParallelFor]: the fork-join loop used by every hot kernel
//
// # Conventions
//
// Vector and tensor components are orthonormal Milne components (u^τ, u^x,
// u^y, τu^η) with metric diag(1, -1, -1, -1). In Cartesian mode the same
// arrays hold (u^t, u^x, u^y, u^z). The ten independent shear components are
// stored in the order ττ, τx, τy, τη, xx, xy, xη, yy, yη, ηη.
//
// # Thread Safety
//
// Grid and Arena are NOT safe for concurrent mutation of the same cell.
// Kernels must read from stable buffers and write only their own slot in
// the output buffer. Counters is safe for concurrent use.
package hydro
