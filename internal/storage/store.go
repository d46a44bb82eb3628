// Package storage keeps one directory per run: metadata.json, the resolved
// configuration, the evolution time series and the freeze-out surfaces.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/relhydro/internal/config"
	"github.com/san-kum/relhydro/internal/evolve"
	"github.com/san-kum/relhydro/internal/hydro"
)

const (
	metadataFile  = "metadata.json"
	configFile    = "config.yaml"
	evolutionFile = "evolution.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Timestamp     time.Time          `json:"timestamp"`
	Tau0          float64            `json:"tau0"`
	TauMax        float64            `json:"tau_max"`
	DTau          float64            `json:"dtau"`
	Grid          string             `json:"grid"`
	Steps         int                `json:"steps"`
	FinalTau      float64            `json:"final_tau"`
	Reason        string             `json:"reason"`
	Surfaces      []evolve.Surface   `json:"surfaces"`
	Diagnostics   hydro.Diagnostics  `json:"diagnostics"`
	WeirdFraction float64            `json:"weird_fraction"`
	Metrics       map[string]float64 `json:"metrics"`
}

// Create makes a fresh run directory and returns its id and path. Surface
// files are written there while the run is in progress.
func (s *Store) Create(name string) (string, string, error) {
	if name == "" {
		name = "run"
	}
	runID := fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", "", err
	}
	return runID, runDir, nil
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// Save records the configuration, the run summary and every metric series
// of a finished (or aborted) run.
func (s *Store) Save(runID, name string, cfg *config.Config, result *evolve.Result) error {
	runDir := s.Dir(runID)
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return err
	}

	meta := RunMetadata{
		ID:            runID,
		Name:          name,
		Timestamp:     time.Now(),
		Tau0:          cfg.Evolution.Tau0,
		TauMax:        cfg.Evolution.TauMax,
		DTau:          cfg.Evolution.DTau,
		Grid:          fmt.Sprintf("%dx%dx%d", cfg.Grid.NX, cfg.Grid.NY, cfg.Grid.NEta),
		Steps:         result.Steps,
		FinalTau:      result.Tau,
		Reason:        result.Reason.String(),
		Diagnostics:   result.Diagnostics,
		WeirdFraction: result.Diagnostics.WeirdFraction(),
		Metrics:       make(map[string]float64, len(result.Series)),
	}
	for _, surf := range result.Surfaces {
		if surf.Path != "" {
			surf.Path = filepath.Base(surf.Path)
		}
		meta.Surfaces = append(meta.Surfaces, surf)
	}
	for name, series := range result.Series {
		if len(series) > 0 {
			meta.Metrics[name] = series[len(series)-1]
		}
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}

	return writeSeries(filepath.Join(runDir, evolutionFile), result.Times, result.Series)
}

func writeSeries(path string, times []float64, series map[string][]float64) error {
	csvFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer csvFile.Close()

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	w := csv.NewWriter(csvFile)
	if err := w.Write(append([]string{"tau"}, names...)); err != nil {
		return err
	}
	for i, tau := range times {
		row := []string{strconv.FormatFloat(tau, 'g', 10, 64)}
		for _, name := range names {
			val := 0.0
			if i < len(series[name]) {
				val = series[name][i]
			}
			row = append(row, strconv.FormatFloat(val, 'g', 10, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.Dir(runID), configFile))
}

// SurfacePath resolves a surface file recorded in the run metadata.
func (s *Store) SurfacePath(runID string, surf evolve.Surface) string {
	return filepath.Join(s.Dir(runID), surf.Path)
}

// LoadSeries reads evolution.csv back into proper times and named series.
func (s *Store) LoadSeries(runID string) ([]float64, map[string][]float64, error) {
	file, err := os.Open(filepath.Join(s.Dir(runID), evolutionFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	series := make(map[string][]float64)
	if len(records) < 1 {
		return []float64{}, series, nil
	}
	header := records[0]
	times := make([]float64, 0, len(records)-1)

	for _, record := range records[1:] {
		tau, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %s: bad tau %q: %w", evolutionFile, record[0], err)
		}
		times = append(times, tau)
		for j := 1; j < len(record) && j < len(header); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: %s: bad %s value %q: %w", evolutionFile, header[j], record[j], err)
			}
			series[header[j]] = append(series[header[j]], val)
		}
	}
	return times, series, nil
}
