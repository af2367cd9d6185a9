package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/fabrics/internal/config"
)

// loadScenario resolves the config of a command: a config file, or a preset
// of the robot argument. Flags the user set override either.
func loadScenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	default:
		robot := config.RobotPointMass
		if len(args) > 0 {
			robot = args[0]
		}
		available := config.ListPresets(robot)
		if len(available) == 0 {
			return nil, fmt.Errorf("unknown robot: %s (available: %v)", robot, config.ListRobots())
		}
		name := preset
		if name == "" {
			name = available[0]
			if slices.Contains(available, "reach") {
				name = "reach"
			}
		}
		cfg = config.GetPreset(robot, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, available)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("stop-at-goal") {
		cfg.StopAtGoal = stopAtGoal
	}
	for _, o := range overrides {
		name, v, err := parseAssignment(o)
		if err != nil {
			return nil, err
		}
		if err := cfg.SetParam(name, v); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseAssignment(s string) (string, float64, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, fmt.Errorf("expected name=value, got %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return "", 0, fmt.Errorf("bad value for %s: %w", name, err)
	}
	return strings.TrimSpace(name), v, nil
}

// parseGrid reads name=v1,v2,... into a name and its values.
func parseGrid(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("expected name=v1,v2,..., got %q", s)
	}
	var values []float64
	for _, part := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return "", nil, fmt.Errorf("bad value for %s: %w", name, err)
		}
		values = append(values, v)
	}
	return strings.TrimSpace(name), values, nil
}
