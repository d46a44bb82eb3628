package config

import "sort"

// Presets holds ready-to-run configurations keyed by name. GetPreset hands
// out copies so callers may edit them freely.
var Presets = map[string]*Config{
	"gaussian":    gaussian(),
	"gubser-like": gubserLike(),
	"bjorken":     bjorken(),
	"hotspot":     hotspot(),
}

// gaussian is an elliptic fireball with a dominant second harmonic.
func gaussian() *Config {
	cfg := DefaultConfig()
	cfg.Initial.Ecc = []float64{0, 0.6}
	return cfg
}

// gubserLike is a round, ideal, conformal fireball.
func gubserLike() *Config {
	cfg := DefaultConfig()
	cfg.Transport = TransportConfig{}
	cfg.Initial.Radius = 2.0
	cfg.Evolution.TauMax = 10.0
	return cfg
}

// bjorken is a transversely uniform, boost-invariant expansion; the whole
// grid crosses each threshold at once.
func bjorken() *Config {
	cfg := DefaultConfig()
	cfg.Grid.NX, cfg.Grid.NY = 5, 5
	cfg.Grid.Boundary = "periodic"
	cfg.Transport = TransportConfig{}
	cfg.Initial = InitialConfig{Profile: "bjorken", Epsilon0: 10.0}
	cfg.Evolution.Tau0 = 1.0
	cfg.Evolution.TauMax = 25.0
	cfg.FreezeOut.Thresholds = []float64{0.5, 0.18}
	cfg.FreezeOut.FacTau = 1
	return cfg
}

// hotspot resolves η so the 4-d surface finder is exercised.
func hotspot() *Config {
	cfg := DefaultConfig()
	cfg.Grid.NX, cfg.Grid.NY, cfg.Grid.NEta = 21, 21, 5
	cfg.Grid.DEta = 0.2
	cfg.Evolution.TauMax = 6.0
	cfg.Initial = InitialConfig{
		Profile:    "hotspot",
		Epsilon0:   1.0,
		Background: 0.25,
		Radius:     1.0,
	}
	cfg.FreezeOut.Thresholds = []float64{0.5}
	cfg.FreezeOut.FacTau = 2
	return cfg
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
