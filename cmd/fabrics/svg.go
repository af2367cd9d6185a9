package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/san-kum/fabrics/internal/experiment"
	"github.com/san-kum/fabrics/internal/export"
	"github.com/san-kum/fabrics/internal/storage"
	"github.com/san-kum/fabrics/internal/viz"
)

var (
	svgTheme string
	svgWidth int
)

// exportSVG rebuilds the kinematics of a stored run and draws the traces of
// its collision links and primary goal link.
func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	_, result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	cfg, err := st.LoadConfig(args[0])
	if err != nil {
		return err
	}
	run, err := experiment.New(cfg, experiment.WithLogger(logger)).Build(0)
	if err != nil {
		return err
	}

	links := run.Scene.CollisionLinks()
	if goal := run.Scene.Goal; len(goal.SubGoals) > 0 {
		links = append(links, goal.SubGoals[goal.PrimaryIndex()].ChildLink)
	}
	traces, err := export.Traces(run.Locator, result.States, links...)
	if err != nil {
		return err
	}

	end := 0.0
	if n := len(result.Times); n > 0 {
		end = result.Times[n-1]
	}
	d := export.Drawing{
		Scene:  run.Scene,
		Time:   end,
		Traces: traces,
		Goals:  viz.Targets(run.Scene.Goal, end),
		Theme:  viz.GetTheme(svgTheme),
		Width:  svgWidth,
	}

	w, err := openOutput()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := d.WriteSVG(w); err != nil {
		return fmt.Errorf("failed to draw run %s: %w", args[0], err)
	}
	return nil
}
