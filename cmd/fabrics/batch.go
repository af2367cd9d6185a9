package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/fabrics/internal/automation"
	"github.com/san-kum/fabrics/internal/storage"
)

var (
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	results, err := automation.NewRunner(automation.WithStore(st), automation.WithLogger(logger)).RunScenario(context.Background(), sc)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENARIO\tSTEPS\tGOAL_DIST\tSTORED")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", r.Step, describe(r.Config), r.Result.StepsTaken,
			metricOrDash(r.Result.Metrics, "goal_distance"), r.RunID)
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	results, err := automation.NewRunner(automation.WithLogger(logger)).RunSweep(context.Background(), &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tGOAL_DIST\tCLEARANCE\tCOLLIDED\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%g\t%s\t%s\t%v\n", r.ParamValue,
			metricOrDash(r.Metrics, "goal_distance"), metricOrDash(r.Metrics, "min_clearance"), r.Collided)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	safe, collided := automation.SweepStats(results)
	fmt.Printf("\n%d collision free, %d colliding\n", safe, collided)
	return nil
}
