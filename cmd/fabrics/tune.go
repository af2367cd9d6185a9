package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/fabrics/internal/experiment"
	"github.com/san-kum/fabrics/internal/optim"
	"github.com/san-kum/fabrics/internal/storage"
)

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	if len(grid) == 0 {
		return fmt.Errorf("no --grid given (see params)")
	}

	names := make([]string, 0, len(grid))
	ranges := make([][]float64, 0, len(grid))
	for _, g := range grid {
		name, values, err := parseGrid(g)
		if err != nil {
			return err
		}
		if _, err := cfg.GetParam(name); err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	opts := []optim.Option{optim.WithWorkers(workers), optim.WithLogger(logger)}
	if maximize {
		opts = append(opts, optim.Maximize())
	}
	search := optim.NewGridSearch(names, ranges, opts...)

	fmt.Printf("tuning %s over %d points, %s %s\n", describe(cfg), search.Size(), direction(), metricName)
	start := time.Now()
	trials, err := search.Evaluate(context.Background(), optim.ConfigBuilder(cfg, experiment.WithLogger(logger)), metricName)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(names, "\t")+"\t"+strings.ToUpper(metricName))
	for _, t := range optim.Rank(trials, maximize) {
		row := make([]string, 0, len(names)+1)
		for _, name := range names {
			row = append(row, fmt.Sprintf("%g", t.Params[name]))
		}
		row = append(row, fmt.Sprintf("%.6f", t.Value))
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	failed := 0
	for _, t := range trials {
		if t.Err != nil {
			failed++
			logger.Sugar().Debugw("trial failed", "params", t.Params, "error", t.Err)
		}
	}
	if failed > 0 {
		fmt.Printf("\n%d of %d trials failed\n", failed, len(trials))
	}
	if optim.Best(trials, maximize) == nil {
		return optim.ErrNoTrial
	}
	return nil
}

func direction() string {
	if maximize {
		return "maximizing"
	}
	return "minimizing"
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("perturbation") || cfg.Perturbation == 0 {
		cfg.Perturbation = perturb
	}

	fmt.Printf("running %d copies of %s, perturbation %g\n", runs, describe(cfg), cfg.Perturbation)
	start := time.Now()
	results, err := experiment.New(cfg, experiment.WithLogger(logger)).Ensemble(context.Background(), runs, workers)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	values := make(map[string][][]float64)
	for _, r := range results {
		for name, v := range r.Metrics {
			values[name] = append(values[name], []float64{v})
		}
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMIN\tMEAN\tMAX")
	for _, name := range names {
		s, err := storage.Summarize(values[name], 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n", name, s.Min, s.Mean, s.Max)
	}
	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args[:1])
	if err != nil {
		return err
	}

	fmt.Printf("comparing integrators for %s\n\n", describe(cfg))
	fmt.Printf("%-14s  %-12s  %-12s  %-12s\n", "integrator", "goal_dist", "clearance", "time_ms")
	fmt.Println(strings.Repeat("-", 56))

	for _, name := range args[1:] {
		c := cfg.Clone()
		c.Integrator = name

		start := time.Now()
		_, result, err := experiment.New(c, experiment.WithLogger(logger)).Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-14s  error: %v\n", name, err)
			continue
		}

		fmt.Printf("%-14s  %12s  %12s  %12.2f\n", name,
			metricOrDash(result.Metrics, "goal_distance"),
			metricOrDash(result.Metrics, "min_clearance"),
			float64(elapsed.Microseconds())/1000)
	}
	return nil
}

func metricOrDash(m map[string]float64, name string) string {
	v, ok := m[name]
	if !ok || math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.6f", v)
}

// benchPlanner times planner evaluations along a closed-loop run.
func benchPlanner(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	buildStart := time.Now()
	run, err := experiment.New(cfg, experiment.WithLogger(logger)).Build(0)
	if err != nil {
		return err
	}
	build := time.Since(buildStart)
	if run.Planner == nil {
		return fmt.Errorf("controller %s has no planner to benchmark", cfg.Controller)
	}

	start := time.Now()
	result, err := run.Execute(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("benchmarking %s\n\n", describe(cfg))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONCRETIZE\tSTEPS\tLOOP\tSTEPS/SEC\tREGULARIZED")
	fmt.Fprintf(w, "%v\t%d\t%v\t%.0f\t%d\n",
		build, result.StepsTaken, elapsed, float64(result.StepsTaken)/elapsed.Seconds(), run.Planner.Regularizations())
	return w.Flush()
}
