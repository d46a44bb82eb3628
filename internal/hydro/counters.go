package hydro

import "sync/atomic"

// Tally is a per-worker diagnostics accumulator. It is not safe for
// concurrent use; merge it into a Counters at a stage barrier.
type Tally struct {
	Cells            int64
	Warnings         int64
	RecoveryFailures int64
	Regularizations  int64
}

// Add folds o into t.
func (t *Tally) Add(o Tally) {
	t.Cells += o.Cells
	t.Warnings += o.Warnings
	t.RecoveryFailures += o.RecoveryFailures
	t.Regularizations += o.Regularizations
}

// Counters accumulates diagnostics for a whole run.
type Counters struct {
	cells            atomic.Int64
	warnings         atomic.Int64
	recoveryFailures atomic.Int64
	regularizations  atomic.Int64
}

// Merge adds a worker tally.
func (c *Counters) Merge(t Tally) {
	c.cells.Add(t.Cells)
	c.warnings.Add(t.Warnings)
	c.recoveryFailures.Add(t.RecoveryFailures)
	c.regularizations.Add(t.Regularizations)
}

// Warn records a single warning.
func (c *Counters) Warn() { c.warnings.Add(1) }

// Snapshot returns the current totals.
func (c *Counters) Snapshot() Diagnostics {
	return Diagnostics{
		Cells:            c.cells.Load(),
		Warnings:         c.warnings.Load(),
		RecoveryFailures: c.recoveryFailures.Load(),
		Regularizations:  c.regularizations.Load(),
	}
}

// Diagnostics is an immutable copy of the run counters.
type Diagnostics struct {
	Cells            int64 `json:"cells"`
	Warnings         int64 `json:"warnings"`
	RecoveryFailures int64 `json:"recovery_failures"`
	Regularizations  int64 `json:"regularizations"`
}

// WeirdCases counts every numerical anomaly that was corrected in place.
func (d Diagnostics) WeirdCases() int64 {
	return d.RecoveryFailures + d.Regularizations
}

// WeirdFraction returns WeirdCases per processed cell.
func (d Diagnostics) WeirdFraction() float64 {
	if d.Cells == 0 {
		return 0
	}
	return float64(d.WeirdCases()) / float64(d.Cells)
}
