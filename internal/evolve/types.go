package evolve

import "github.com/san-kum/relhydro/internal/hydro"

// Params drives the proper-time loop. Thresholds are in fm⁻⁴; an empty
// list disables freeze-out.
type Params struct {
	Tau0             float64
	TauMax           float64
	DTau             float64
	RKOrder          int
	Thresholds       []float64
	FacTau           int
	MaxWeirdFraction float64

	// OutputDir receives one surface file per threshold. Elements are only
	// counted when it is empty.
	OutputDir string
}

// StepInfo is handed to observers after every step.
type StepInfo struct {
	Step        int
	Tau         float64
	TauMax      float64
	MaxEpsilon  float64 // GeV/fm³
	Elements    int
	Metrics     map[string]float64
	Diagnostics hydro.Diagnostics
}

type Observer interface {
	OnStep(info StepInfo)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(info StepInfo)

func (f ObserverFunc) OnStep(info StepInfo) { f(info) }

type Termination int

const (
	ReachedTauMax Termination = iota
	FrozenOut
	Cancelled
)

func (t Termination) String() string {
	switch t {
	case FrozenOut:
		return "frozen_out"
	case Cancelled:
		return "cancelled"
	}
	return "tau_max"
}

// Surface summarizes the hypersurface of one threshold.
type Surface struct {
	EpsilonFO float64 `json:"epsilon_fo"` // GeV/fm³
	Path      string  `json:"path,omitempty"`
	Elements  int     `json:"elements"`
}

type Result struct {
	Steps       int
	Tau         float64
	Reason      Termination
	Surfaces    []Surface
	Diagnostics hydro.Diagnostics
	Times       []float64
	Series      map[string][]float64
}
