package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/fabrics/internal/analysis"
	"github.com/san-kum/fabrics/internal/config"
	"github.com/san-kum/fabrics/internal/experiment"
	"github.com/san-kum/fabrics/internal/storage"
	"github.com/san-kum/fabrics/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s...\n", describe(cfg))
	start := time.Now()

	run, result, err := experiment.New(cfg, experiment.WithLogger(logger)).Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(storage.Metadata(run.ID, cfg, result), cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d", result.StepsTaken)
	if result.Terminated {
		fmt.Print(" (goal reached)")
	}
	fmt.Println()
	if result.ControlFailures > 0 {
		fmt.Printf("control failures: %d\n", result.ControlFailures)
	}
	fmt.Println("\nmetrics:")
	printMetrics(os.Stdout, result.Metrics)
	return nil
}

func describe(cfg *config.Config) string {
	name := cfg.Name
	if name == "" {
		name = cfg.Robot
	}
	return fmt.Sprintf("%s (%s, %s, dt=%g, %gs)", name, cfg.Controller, cfg.Integrator, cfg.Dt, cfg.Duration)
}

func printMetrics(w io.Writer, metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %.6f\n", name, metrics[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	run, err := experiment.New(cfg, experiment.WithLogger(logger)).Build(0)
	if err != nil {
		return err
	}
	return viz.RunLive(run, viz.WithSpeed(speed), viz.WithGIFPath(gifPath))
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	stored, err := st.List()
	if err != nil {
		return err
	}

	if len(stored) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSTEPS\tCTRL\tINTEG\tGOAL DIST")

	for _, run := range stored {
		dist := "-"
		if d, ok := run.Metrics["goal_distance"]; ok {
			dist = fmt.Sprintf("%.4f", d)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Controller,
			run.Integrator,
			dist,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	if len(result.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Name)
	fmt.Printf("samples: %d\n\n", len(result.States))

	dim := len(result.States[0])
	cols := columns
	if len(cols) == 0 {
		for i := 0; i < min(max(dim/2, 1), 6); i++ {
			cols = append(cols, i)
		}
	}

	for _, col := range cols {
		if col < 0 || col >= dim {
			return fmt.Errorf("column %d out of range [0, %d)", col, dim)
		}
		data := make([]float64, len(result.States))
		for i, s := range result.States {
			data[i] = s[col]
		}

		caption := fmt.Sprintf("x%d vs time", col)
		if meta.Robot != config.RobotDiffDrive && dim%2 == 0 {
			if col < dim/2 {
				caption = fmt.Sprintf("q%d (position)", col)
			} else {
				caption = fmt.Sprintf("qdot%d (velocity)", col-dim/2)
			}
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func openOutput() (io.WriteCloser, error) {
	if output == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(output)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	w, err := openOutput()
	if err != nil {
		return err
	}
	defer w.Close()
	return storage.ExportJSON(w, *meta, result)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	_, result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	if len(result.States) == 0 {
		return fmt.Errorf("no data to export")
	}
	w, err := openOutput()
	if err != nil {
		return err
	}
	defer w.Close()
	return storage.ExportCSV(w, result)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	if len(result.Controls) == 0 {
		return fmt.Errorf("run %s has no recorded commands", meta.ID)
	}

	fmt.Printf("command spectrum: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n\n", meta.Name)

	cols := columns
	if len(cols) == 0 {
		for i := range result.Controls[0] {
			cols = append(cols, i)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "COMMAND\tDOMINANT HZ\tPOWER > %g HZ\tMIN\tMAX\tMEAN\n", cutoff)
	for _, col := range cols {
		signal := analysis.Column(result.Controls, col)
		s, err := analysis.PowerSpectrum(signal, meta.Dt)
		if err != nil {
			return err
		}
		sum, err := storage.Summarize(result.Controls, col)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "u%d\t%.3f\t%.1f%%\t%.4f\t%.4f\t%.4f\n",
			col, s.Dominant(), 100*s.Fraction(cutoff), sum.Min, sum.Max, sum.Mean)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	robots := config.ListRobots()
	if len(args) > 0 {
		robots = args
	}
	for _, robot := range robots {
		presets := config.ListPresets(robot)
		if len(presets) == 0 {
			fmt.Printf("no presets for robot: %s\n", robot)
			continue
		}
		fmt.Printf("presets for %s:\n", robot)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}

func listParams(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tDEFAULT")
	for _, name := range cfg.Tunables() {
		v, _ := cfg.GetParam(name)
		fmt.Fprintf(w, "%s\t%g\n", name, v)
	}
	return w.Flush()
}
