package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/relhydro/internal/advance"
	"github.com/san-kum/relhydro/internal/eos"
	"github.com/san-kum/relhydro/internal/freezeout"
	"github.com/san-kum/relhydro/internal/hydro"
	"github.com/san-kum/relhydro/internal/initial"
	"github.com/san-kum/relhydro/internal/regulate"
	"github.com/san-kum/relhydro/internal/source"
)

const (
	DefaultCells        = 61
	DefaultSpacing      = 0.3
	DefaultTau0         = 0.6
	DefaultTauMax       = 15.0
	DefaultDTau         = 0.02
	DefaultFluxLimiter  = 1.8
	DefaultEtaOverS     = 0.08
	DefaultEpsilonFO    = 0.18
	DefaultFacTau       = 5
	DefaultPeakEpsilon  = 50 * hydro.HbarC
	DefaultGaussRadius  = 3.0
	DefaultShearRatio   = 1.0
	DefaultBulkRatio    = 0.25
	DefaultDiffRatio    = 1.0
	DefaultWeirdCeiling = 0.05
)

type Config struct {
	Grid       GridConfig       `yaml:"grid" toml:"grid"`
	Evolution  EvolutionConfig  `yaml:"evolution" toml:"evolution"`
	Transport  TransportConfig  `yaml:"transport" toml:"transport"`
	Regulation RegulationConfig `yaml:"regulation" toml:"regulation"`
	FreezeOut  FreezeOutConfig  `yaml:"freeze_out" toml:"freeze_out"`
	Initial    InitialConfig    `yaml:"initial" toml:"initial"`
	EOS        EOSConfig        `yaml:"eos" toml:"eos"`
	Source     SourceConfig     `yaml:"source" toml:"source"`
}

type GridConfig struct {
	NX          int     `yaml:"nx" toml:"nx"`
	NY          int     `yaml:"ny" toml:"ny"`
	NEta        int     `yaml:"neta" toml:"neta"`
	DX          float64 `yaml:"dx" toml:"dx"`
	DY          float64 `yaml:"dy" toml:"dy"`
	DEta        float64 `yaml:"deta" toml:"deta"`
	Coordinates string  `yaml:"coordinates" toml:"coordinates"`
	Boundary    string  `yaml:"boundary" toml:"boundary"`
}

type EvolutionConfig struct {
	Tau0             float64 `yaml:"tau0" toml:"tau0"`
	TauMax           float64 `yaml:"tau_max" toml:"tau_max"`
	DTau             float64 `yaml:"dtau" toml:"dtau"`
	RKOrder          int     `yaml:"rk_order" toml:"rk_order"`
	FluxLimiter      float64 `yaml:"flux_limiter" toml:"flux_limiter"`
	Workers          int     `yaml:"workers" toml:"workers"`
	MaxWeirdFraction float64 `yaml:"max_weird_fraction" toml:"max_weird_fraction"`
}

type TransportConfig struct {
	EtaOverS   float64 `yaml:"eta_over_s" toml:"eta_over_s"`
	ZetaOverS  float64 `yaml:"zeta_over_s" toml:"zeta_over_s"`
	KappaCoeff float64 `yaml:"kappa_coeff" toml:"kappa_coeff"`
}

type RegulationConfig struct {
	MaxShearRatio     float64 `yaml:"max_shear_ratio" toml:"max_shear_ratio"`
	MaxBulkRatio      float64 `yaml:"max_bulk_ratio" toml:"max_bulk_ratio"`
	MaxDiffusionRatio float64 `yaml:"max_diffusion_ratio" toml:"max_diffusion_ratio"`
}

// FreezeOutConfig thresholds are in GeV/fm³.
type FreezeOutConfig struct {
	Enabled        bool      `yaml:"enabled" toml:"enabled"`
	Thresholds     []float64 `yaml:"thresholds" toml:"thresholds"`
	BoostInvariant bool      `yaml:"boost_invariant" toml:"boost_invariant"`
	FacTau         int       `yaml:"fac_tau" toml:"fac_tau"`
	FacX           int       `yaml:"fac_x" toml:"fac_x"`
	FacY           int       `yaml:"fac_y" toml:"fac_y"`
	FacEta         int       `yaml:"fac_eta" toml:"fac_eta"`
}

// InitialConfig energy densities are in GeV/fm³.
type InitialConfig struct {
	Profile    string    `yaml:"profile" toml:"profile"`
	Epsilon0   float64   `yaml:"epsilon0" toml:"epsilon0"`
	RhoB0      float64   `yaml:"rhob0" toml:"rhob0"`
	Background float64   `yaml:"background" toml:"background"`
	Radius     float64   `yaml:"radius" toml:"radius"`
	Ecc        []float64 `yaml:"ecc,omitempty" toml:"ecc,omitempty"`
	Psi        []float64 `yaml:"psi,omitempty" toml:"psi,omitempty"`
	Path       string    `yaml:"path,omitempty" toml:"path,omitempty"`
	Scale      float64   `yaml:"scale,omitempty" toml:"scale,omitempty"`
	EtaFlat    float64   `yaml:"eta_flat,omitempty" toml:"eta_flat,omitempty"`
	EtaFalloff float64   `yaml:"eta_falloff,omitempty" toml:"eta_falloff,omitempty"`
}

// SourceConfig injects energy (GeV/fm⁴) and baryons (fm⁻⁴) uniformly at
// rest for TauStart <= τ < TauEnd.
type SourceConfig struct {
	Enabled  bool    `yaml:"enabled" toml:"enabled"`
	Energy   float64 `yaml:"energy" toml:"energy"`
	RhoB     float64 `yaml:"rhob" toml:"rhob"`
	TauStart float64 `yaml:"tau_start" toml:"tau_start"`
	TauEnd   float64 `yaml:"tau_end" toml:"tau_end"`
}

type EOSConfig struct {
	Kind string `yaml:"kind" toml:"kind"`
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			NX: DefaultCells, NY: DefaultCells, NEta: 1,
			DX: DefaultSpacing, DY: DefaultSpacing, DEta: 0.1,
			Coordinates: "milne",
			Boundary:    "outflow",
		},
		Evolution: EvolutionConfig{
			Tau0:             DefaultTau0,
			TauMax:           DefaultTauMax,
			DTau:             DefaultDTau,
			RKOrder:          2,
			FluxLimiter:      DefaultFluxLimiter,
			MaxWeirdFraction: DefaultWeirdCeiling,
		},
		Transport: TransportConfig{EtaOverS: DefaultEtaOverS},
		Regulation: RegulationConfig{
			MaxShearRatio:     DefaultShearRatio,
			MaxBulkRatio:      DefaultBulkRatio,
			MaxDiffusionRatio: DefaultDiffRatio,
		},
		FreezeOut: FreezeOutConfig{
			Enabled:    true,
			Thresholds: []float64{DefaultEpsilonFO},
			FacTau:     DefaultFacTau,
			FacX:       1,
			FacY:       1,
			FacEta:     1,
		},
		Initial: InitialConfig{
			Profile:  "gaussian",
			Epsilon0: DefaultPeakEpsilon,
			Radius:   DefaultGaussRadius,
		},
		EOS: EOSConfig{Kind: "ideal"},
	}
}

// Load reads a YAML or, for a .toml extension, TOML file over the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		return os.WriteFile(path, buf.Bytes(), 0644)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	if _, err := c.Lattice(); err != nil {
		return err
	}
	if _, err := hydro.ParseCoordinates(c.Grid.Coordinates); err != nil {
		return err
	}
	if _, err := hydro.ParseBoundary(c.Grid.Boundary); err != nil {
		return err
	}

	ev := c.Evolution
	switch {
	case ev.Tau0 <= 0:
		return invalid("tau0 must be positive, got %g", ev.Tau0)
	case ev.TauMax <= ev.Tau0:
		return invalid("tau_max %g must exceed tau0 %g", ev.TauMax, ev.Tau0)
	case ev.DTau <= 0:
		return invalid("dtau must be positive, got %g", ev.DTau)
	case ev.RKOrder != 1 && ev.RKOrder != 2:
		return invalid("rk_order must be 1 or 2, got %d", ev.RKOrder)
	case ev.MaxWeirdFraction < 0 || ev.MaxWeirdFraction > 1:
		return invalid("max_weird_fraction must be in [0, 1], got %g", ev.MaxWeirdFraction)
	}
	if _, err := c.AdvanceParams(); err != nil {
		return err
	}

	r := c.Regulation
	if r.MaxShearRatio < 0 || r.MaxBulkRatio < 0 || r.MaxDiffusionRatio < 0 {
		return invalid("regulation ratios must be non-negative")
	}

	fo := c.FreezeOut
	if fo.Enabled {
		if len(fo.Thresholds) == 0 {
			return invalid("freeze_out.thresholds is empty")
		}
		for _, e := range fo.Thresholds {
			if e <= 0 {
				return invalid("freeze-out threshold must be positive, got %g", e)
			}
		}
		if fo.FacTau < 1 || fo.FacX < 1 || fo.FacY < 1 || fo.FacEta < 1 {
			return invalid("freeze-out strides must be >= 1")
		}
		if !c.boostInvariant() && c.Grid.NEta <= fo.FacEta {
			return invalid("4-d freeze-out needs neta > fac_eta (%d <= %d)", c.Grid.NEta, fo.FacEta)
		}
	}

	if _, err := c.Profile(); err != nil {
		return err
	}
	switch strings.ToLower(c.EOS.Kind) {
	case "", "ideal":
	case "table":
		if c.EOS.Path == "" {
			return invalid("eos.path is required for a table equation of state")
		}
	default:
		return invalid("unknown eos kind %q", c.EOS.Kind)
	}
	if src := c.Source; src.Enabled && src.TauEnd <= src.TauStart {
		return invalid("source tau_end %g must exceed tau_start %g", src.TauEnd, src.TauStart)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", hydro.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c *Config) Lattice() (hydro.Lattice, error) {
	l := hydro.Lattice{
		NX: c.Grid.NX, NY: c.Grid.NY, NEta: c.Grid.NEta,
		DX: c.Grid.DX, DY: c.Grid.DY, DEta: c.Grid.DEta,
	}
	return l, l.Validate()
}

func (c *Config) AdvanceParams() (advance.Params, error) {
	coords, err := hydro.ParseCoordinates(c.Grid.Coordinates)
	if err != nil {
		return advance.Params{}, err
	}
	boundary, err := hydro.ParseBoundary(c.Grid.Boundary)
	if err != nil {
		return advance.Params{}, err
	}
	p := advance.Params{
		Coordinates: coords,
		Boundary:    boundary,
		FluxLimiter: c.Evolution.FluxLimiter,
		EtaOverS:    c.Transport.EtaOverS,
		ZetaOverS:   c.Transport.ZetaOverS,
		KappaCoeff:  c.Transport.KappaCoeff,
		Workers:     c.Evolution.Workers,
	}
	return p, p.Validate()
}

func (c *Config) Regulator() *regulate.Regulator {
	r := c.Regulation
	return regulate.New(r.MaxShearRatio, r.MaxBulkRatio, r.MaxDiffusionRatio)
}

// boostInvariant is forced for single-slice grids.
func (c *Config) boostInvariant() bool {
	return c.FreezeOut.BoostInvariant || c.Grid.NEta == 1
}

func (c *Config) FinderConfig() (freezeout.Config, error) {
	coords, err := hydro.ParseCoordinates(c.Grid.Coordinates)
	if err != nil {
		return freezeout.Config{}, err
	}
	fo := c.FreezeOut
	return freezeout.Config{
		BoostInvariant: c.boostInvariant(),
		Coordinates:    coords,
		FacX:           fo.FacX,
		FacY:           fo.FacY,
		FacEta:         fo.FacEta,
		Workers:        c.Evolution.Workers,
	}, nil
}

func (c *Config) Profile() (initial.Profile, error) {
	in := c.Initial
	kind, err := initial.ParseKind(in.Profile)
	if err != nil {
		return initial.Profile{}, err
	}
	if kind == initial.Trento && in.Path == "" {
		return initial.Profile{}, invalid("initial.path is required for a trento profile")
	}
	if in.Epsilon0 < 0 || in.Background < 0 {
		return initial.Profile{}, invalid("initial energy densities must be non-negative")
	}
	return initial.Profile{
		Kind:       kind,
		Epsilon0:   in.Epsilon0,
		RhoB0:      in.RhoB0,
		Background: in.Background,
		Radius:     in.Radius,
		Ecc:        in.Ecc,
		Psi:        in.Psi,
		Path:       in.Path,
		Scale:      in.Scale,
		EtaFlat:    in.EtaFlat,
		EtaFalloff: in.EtaFalloff,
	}, nil
}

// HydroSource returns the configured injection, or none when disabled.
func (c *Config) HydroSource() source.HydroSource {
	src := c.Source
	if !src.Enabled {
		return source.None{}
	}
	return source.Constant{
		Density:  [4]float64{src.Energy / hydro.HbarC, 0, 0, 0},
		RhoB:     src.RhoB,
		TauStart: src.TauStart,
		TauEnd:   src.TauEnd,
	}
}

func (c *Config) EquationOfState() (eos.EquationOfState, error) {
	return eos.New(c.EOS.Kind, c.EOS.Path)
}

// ThresholdsFm4 converts the freeze-out thresholds to fm⁻⁴. A disabled
// freeze-out yields none.
func (c *Config) ThresholdsFm4() []float64 {
	if !c.FreezeOut.Enabled {
		return nil
	}
	out := make([]float64, len(c.FreezeOut.Thresholds))
	for i, e := range c.FreezeOut.Thresholds {
		out[i] = e / hydro.HbarC
	}
	return out
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.FreezeOut.Thresholds = append([]float64(nil), c.FreezeOut.Thresholds...)
	out.Initial.Ecc = append([]float64(nil), c.Initial.Ecc...)
	out.Initial.Psi = append([]float64(nil), c.Initial.Psi...)
	return &out
}
