package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/fabrics/internal/logging"
	"github.com/san-kum/fabrics/internal/viz"
)

var (
	dataDir    string
	verbose    bool
	quiet      bool
	logJSON    bool
	logFile    string
	configFile string
	preset     string
	dt         float64
	duration   float64
	seed       int64
	integrator string
	controller string
	stopAtGoal bool
	overrides  []string
	// live view
	speed   int
	gifPath string
	// tuning and ensembles
	grid       []string
	metricName string
	maximize   bool
	workers    int
	runs       int
	perturb    float64
	// stored runs
	output  string
	columns []int
	cutoff  float64

	logger = zap.NewNop()
)

// main registers the commands and opens the preset picker when no
// subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:   "fabrics",
		Short: "reactive motion generation with geometric fabrics",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logging.Options{Verbose: verbose, Quiet: quiet, JSON: logJSON, File: logFile})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(logger, viz.WithSpeed(speed))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".fabrics", "data directory")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "errors only")
	pf.BoolVar(&logJSON, "log-json", false, "log as json")
	pf.StringVar(&logFile, "log-file", "", "log to file instead of stderr")
	rootCmd.Flags().IntVar(&speed, "speed", 1, "simulation steps per frame")

	runCmd := &cobra.Command{
		Use:   "run [robot]",
		Short: "run a closed-loop simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [robot]",
		Short: "run a simulation with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)
	liveCmd.Flags().IntVar(&speed, "speed", 1, "simulation steps per frame")
	liveCmd.Flags().StringVar(&gifPath, "gif", "fabrics.gif", "recording output path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stored state columns",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntSliceVar(&columns, "columns", nil, "state columns to plot (default: positions)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored run to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw a stored run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().StringVar(&svgTheme, "theme", "minimal", "color theme")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 600, "image width in pixels")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "command spectrum of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntSliceVar(&columns, "columns", nil, "columns to analyze (default: controls)")
	analyzeCmd.Flags().Float64Var(&cutoff, "cutoff", 5, "chatter cutoff in Hz")

	presetsCmd := &cobra.Command{
		Use:   "presets [robot]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "list tunable parameters",
		RunE:  listParams,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune [robot]",
		Short: "grid search planner constants",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	addScenarioFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&grid, "grid", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&metricName, "metric", "goal_distance", "metric to optimize")
	tuneCmd.Flags().BoolVar(&maximize, "maximize", false, "larger metric is better")
	tuneCmd.Flags().IntVar(&workers, "workers", 4, "parallel runs")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [robot]",
		Short: "run perturbed copies of a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addScenarioFlags(ensembleCmd)
	ensembleCmd.Flags().IntVarP(&runs, "runs", "n", 8, "number of runs")
	ensembleCmd.Flags().IntVar(&workers, "workers", 4, "parallel runs")
	ensembleCmd.Flags().Float64Var(&perturb, "perturbation", 0.1, "initial configuration noise")

	compareCmd := &cobra.Command{
		Use:   "compare [robot] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same scenario",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addScenarioFlags(compareCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [robot]",
		Short: "measure planner evaluation speed",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchPlanner,
	}
	addScenarioFlags(benchCmd)

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted sequence of scenarios",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [robot]",
		Short: "sweep one parameter linearly",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "damper.beta_close", "parameter to sweep (see params)")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 20, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd,
		analyzeCmd, presetsCmd, paramsCmd, tuneCmd, ensembleCmd, compareCmd, benchCmd,
		batchCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "preset name (see presets)")
	f.Float64Var(&dt, "dt", 0.01, "timestep")
	f.Float64Var(&duration, "time", 20, "duration")
	f.Int64Var(&seed, "seed", 0, "random seed")
	f.StringVar(&integrator, "integrator", "verlet", "integrator")
	f.StringVar(&controller, "controller", "fabric", "controller (fabric, pd, none)")
	f.BoolVar(&stopAtGoal, "stop-at-goal", false, "end the run when the goal is reached")
	f.StringArrayVar(&overrides, "set", nil, "name=value planner override (repeatable)")
}
