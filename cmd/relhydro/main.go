package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/relhydro/internal/advance"
	"github.com/san-kum/relhydro/internal/config"
	"github.com/san-kum/relhydro/internal/evolve"
	"github.com/san-kum/relhydro/internal/freezeout"
	"github.com/san-kum/relhydro/internal/hydro"
	"github.com/san-kum/relhydro/internal/initial"
	"github.com/san-kum/relhydro/internal/metrics"
	"github.com/san-kum/relhydro/internal/storage"
	"github.com/san-kum/relhydro/internal/tui"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	runName    string
	useTUI     bool
	logEvery   int
	workers    int
	plotNames  []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "relhydro",
		Short:         "relativistic viscous hydrodynamics with freeze-out surfaces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".relhydro", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "evolve an initial condition and extract freeze-out surfaces",
		Args:  cobra.NoArgs,
		RunE:  runHydro,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringVar(&runName, "name", "", "run name (defaults to the preset or config file name)")
	runCmd.Flags().BoolVar(&useTUI, "tui", false, "show a live progress view")
	runCmd.Flags().IntVar(&logEvery, "log-every", 50, "log progress every n steps")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 uses GOMAXPROCS)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot evolution time series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotNames, "metric", []string{"max_epsilon", "total_energy"}, "series to plot")

	surfaceCmd := &cobra.Command{
		Use:   "surface [run_id | file.dat]",
		Short: "summarize freeze-out surfaces",
		Args:  cobra.ExactArgs(1),
		RunE:  surfaceInfo,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPROFILE\tGRID\tETA/S\tEPS_FO [GeV/fm3]")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%dx%dx%d\t%.2f\t%v\n", name, cfg.Initial.Profile,
					cfg.Grid.NX, cfg.Grid.NY, cfg.Grid.NEta, cfg.Transport.EtaOverS, cfg.FreezeOut.Thresholds)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, surfaceCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// resolveConfig picks the preset, the config file or the defaults, in that
// order, and returns the run name.
func resolveConfig() (*config.Config, string, error) {
	var (
		cfg  *config.Config
		name string
	)
	switch {
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset %q (have %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
		name = preset
	case configFile != "":
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, "", err
		}
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	default:
		cfg = config.DefaultConfig()
		name = "default"
	}
	if runName != "" {
		name = runName
	}
	if workers > 0 {
		cfg.Evolution.Workers = workers
	}
	return cfg, name, cfg.Validate()
}

func runHydro(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr, logLevel)
	if err != nil {
		return err
	}
	cfg, name, err := resolveConfig()
	if err != nil {
		return err
	}

	e, err := cfg.EquationOfState()
	if err != nil {
		return err
	}
	lattice, err := cfg.Lattice()
	if err != nil {
		return err
	}
	arena, err := hydro.NewArena(lattice)
	if err != nil {
		return err
	}
	profile, err := cfg.Profile()
	if err != nil {
		return err
	}
	if err := initial.Populate(profile, arena, e); err != nil {
		return err
	}
	logger.Info("initial state", "profile", profile.Kind, "grid", fmt.Sprintf("%dx%dx%d", lattice.NX, lattice.NY, lattice.NEta),
		"max_eps", arena.Current.MaxEpsilon()*hydro.HbarC)
	for _, ecc := range initial.Eccentricities(arena.Current, e, lattice.NEta/2, 3) {
		logger.Info("initial eccentricity", "n", ecc.N, "magnitude", ecc.Magnitude, "angle", ecc.Angle)
	}

	params, err := cfg.AdvanceParams()
	if err != nil {
		return err
	}
	adv, err := advance.New(params, e, cfg.Regulator(), cfg.HydroSource(), logger)
	if err != nil {
		return err
	}
	var finder *freezeout.Finder
	if cfg.FreezeOut.Enabled {
		fc, err := cfg.FinderConfig()
		if err != nil {
			return err
		}
		if finder, err = freezeout.NewFinder(fc, e, logger); err != nil {
			return err
		}
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, runDir, err := st.Create(name)
	if err != nil {
		return err
	}

	thresholds := cfg.ThresholdsFm4()
	ev, err := evolve.New(evolve.Params{
		Tau0:             cfg.Evolution.Tau0,
		TauMax:           cfg.Evolution.TauMax,
		DTau:             cfg.Evolution.DTau,
		RKOrder:          cfg.Evolution.RKOrder,
		Thresholds:       thresholds,
		FacTau:           cfg.FreezeOut.FacTau,
		MaxWeirdFraction: cfg.Evolution.MaxWeirdFraction,
		OutputDir:        runDir,
	}, adv, finder, logger)
	if err != nil {
		return err
	}
	epsMin := 0.0
	if len(thresholds) > 0 {
		epsMin = slices.Min(thresholds)
	}
	for _, m := range metrics.Standard(e, params.Coordinates, epsMin) {
		ev.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	var res *evolve.Result
	var runErr error
	if useTUI {
		logger.SetLevel(log.ErrorLevel)
		res, runErr = tui.Run(name, cancel, func(obs evolve.Observer) (*evolve.Result, error) {
			ev.AddObserver(obs)
			return ev.EvolveIt(ctx, arena)
		})
	} else {
		if logEvery > 0 {
			ev.AddObserver(evolve.ObserverFunc(func(info evolve.StepInfo) {
				if info.Step%logEvery == 0 {
					logger.Info("progress", "step", info.Step, "tau", info.Tau,
						"max_eps", info.MaxEpsilon, "elements", info.Elements)
				}
			}))
		}
		res, runErr = ev.EvolveIt(ctx, arena)
	}

	if res != nil {
		if err := st.Save(runID, name, cfg, res); err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Println(tui.Summary(name, res, time.Since(start)))
		fmt.Printf("run id: %s\n", runID)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tGRID\tSTEPS\tTAU\tREASON\tELEMENTS")
	for _, run := range runs {
		elements := 0
		for _, s := range run.Surfaces {
			elements += s.Elements
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.3f\t%s\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Grid,
			run.Steps,
			run.FinalTau,
			run.Reason,
			elements,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	times, series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("tau: %.3f -> %.3f fm (%d samples)\n\n", times[0], times[len(times)-1], len(times))

	for _, name := range plotNames {
		data, ok := series[name]
		if !ok {
			available := make([]string, 0, len(series))
			for k := range series {
				available = append(available, k)
			}
			sort.Strings(available)
			return fmt.Errorf("no series %q (have %s)", name, strings.Join(available, ", "))
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs tau"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func surfaceInfo(cmd *cobra.Command, args []string) error {
	type entry struct {
		label string
		path  string
	}
	var entries []entry

	if strings.HasSuffix(args[0], ".dat") {
		entries = append(entries, entry{filepath.Base(args[0]), args[0]})
	} else {
		st := storage.New(dataDir)
		meta, err := st.Load(args[0])
		if err != nil {
			return err
		}
		for _, s := range meta.Surfaces {
			entries = append(entries, entry{fmt.Sprintf("%.4f", s.EpsilonFO), st.SurfacePath(meta.ID, s)})
		}
	}
	if len(entries) == 0 {
		fmt.Println("no freeze-out surfaces")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SURFACE\tELEMENTS\tTAU_MIN\tTAU_MAX\tVOLUME [fm3]\tMEAN_T [GeV]")
	for _, en := range entries {
		els, err := freezeout.ReadAll(en.path)
		if err != nil {
			return err
		}
		s := freezeout.Summarize(els)
		fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\t%.4g\t%.4f\n",
			en.label, s.Elements, s.TauMin, s.TauMax, s.TotalVolume, s.MeanT)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
