// Package initial populates the first two time slices of the arena from a
// closed set of initial-condition profiles.
package initial

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/hydro"
)

type Kind int

const (
	Uniform Kind = iota
	Gaussian
	HotSpot
	Bjorken
	Trento
)

var kindNames = map[Kind]string{
	Uniform:  "uniform",
	Gaussian: "gaussian",
	HotSpot:  "hotspot",
	Bjorken:  "bjorken",
	Trento:   "trento",
}

func (k Kind) String() string { return kindNames[k] }

func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown initial profile %q", hydro.ErrInvalidConfig, s)
}

// Kinds lists every profile name.
func Kinds() []string {
	return []string{"uniform", "gaussian", "hotspot", "bjorken", "trento"}
}

// Profile describes an initial condition. Energy densities are in GeV/fm³,
// lengths in fm.
type Profile struct {
	Kind       Kind
	Epsilon0   float64
	RhoB0      float64
	Background float64
	Radius     float64
	Ecc        []float64
	Psi        []float64
	Path       string
	Scale      float64

	// Longitudinal plateau of half-width EtaFlat/2 with Gaussian tails of
	// width EtaFalloff. A zero EtaFalloff keeps the profile η independent.
	EtaFlat    float64
	EtaFalloff float64
}

// Populate fills Current and copies it into Prev so the first step sees no
// time derivative.
func Populate(p Profile, a *hydro.Arena, e eos.EquationOfState) error {
	g := a.Current
	switch p.Kind {
	case Uniform:
		fill(g, p, func(_, _ float64) float64 { return p.Epsilon0 })
	case Bjorken:
		if g.NEta != 1 {
			return fmt.Errorf("%w: bjorken profile needs a single eta slice, got %d", hydro.ErrInvalidConfig, g.NEta)
		}
		fill(g, p, func(_, _ float64) float64 { return p.Epsilon0 })
	case Gaussian:
		if p.Radius <= 0 {
			return fmt.Errorf("%w: gaussian radius must be positive", hydro.ErrInvalidConfig)
		}
		fill(g, p, func(x, y float64) float64 { return deformedGaussian(p, x, y) })
	case HotSpot:
		if p.Radius <= 0 {
			return fmt.Errorf("%w: hot spot radius must be positive", hydro.ErrInvalidConfig)
		}
		fill(g, p, func(x, y float64) float64 {
			r2 := x*x + y*y
			return p.Background + (p.Epsilon0-p.Background)*math.Exp(-r2/(2*p.Radius*p.Radius))
		})
	case Trento:
		if err := loadTrento(p, g, e); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown initial profile %d", hydro.ErrInvalidConfig, p.Kind)
	}
	return a.Prev.CopyFrom(g)
}

// fill evaluates a transverse profile in GeV/fm³ on every η slice.
func fill(g *hydro.Grid, p Profile, transverse func(x, y float64) float64) {
	for idx := range g.Cells {
		ix, iy, ie := g.Coords(idx)
		eps := transverse(g.X(ix), g.Y(iy)) * envelope(p, g.Eta(ie)) / hydro.HbarC
		g.Cells[idx] = hydro.AtRest(eps, p.RhoB0*envelope(p, g.Eta(ie)))
	}
}

func envelope(p Profile, eta float64) float64 {
	if p.EtaFalloff <= 0 {
		return 1
	}
	arg := (math.Abs(eta) - p.EtaFlat/2) / p.EtaFalloff
	if arg <= 0 {
		return 1
	}
	return math.Exp(-arg * arg / 2)
}

// deformedGaussian stretches a round Gaussian by Σ_n ecc_n cos(n(φ-ψ_n)).
func deformedGaussian(p Profile, x, y float64) float64 {
	phi := math.Atan2(y, x)
	stretch := 1.0
	for i, ecc := range p.Ecc {
		n := float64(i + 1)
		psi := 0.0
		if i < len(p.Psi) {
			psi = p.Psi[i]
		}
		stretch += ecc * math.Cos(n*(phi-psi))
	}
	r2 := x*x + y*y
	return p.Epsilon0 * math.Exp(-r2*stretch/(2*p.Radius*p.Radius))
}
