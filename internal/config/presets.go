package config

import (
	"sort"

	"github.com/san-kum/fabrics/internal/kinematics"
)

func reach() *Config {
	cfg := DefaultConfig()
	cfg.Planner.Damper.BetaClose = 20
	return cfg
}

// Presets maps robot and preset name to a constructor. Constructors return a
// fresh config on every call.
var Presets = map[string]map[string]func() *Config{
	RobotPointMass: {
		"reach": func() *Config {
			cfg := reach()
			cfg.Name = "point_mass/reach"
			cfg.GoalThreshold = 0.01
			return cfg
		},
		"obstacle": func() *Config {
			cfg := reach()
			cfg.Name = "point_mass/obstacle"
			cfg.Duration = 40
			cfg.Obstacles = []ObstacleConfig{{Center: []float64{0.5, 0.55}, Radius: 0.1}}
			cfg.BodyRadii = map[string]float64{kinematics.EndEffector: 0.05}
			return cfg
		},
		"moving_obstacle": func() *Config {
			cfg := reach()
			cfg.Name = "point_mass/moving_obstacle"
			cfg.Duration = 40
			cfg.Obstacles = []ObstacleConfig{{Center: []float64{1.2, 0.5}, Radius: 0.1, Velocity: []float64{-0.05, 0}}}
			cfg.BodyRadii = map[string]float64{kinematics.EndEffector: 0.05}
			return cfg
		},
		"moving_goal": func() *Config {
			cfg := reach()
			cfg.Name = "point_mass/moving_goal"
			cfg.Goals = []GoalConfig{{
				Type:     "dynamic",
				Link:     kinematics.EndEffector,
				Weight:   1,
				Position: []float64{1, 0},
				Velocity: []float64{0, 0.05},
			}}
			return cfg
		},
		"circle": func() *Config {
			cfg := reach()
			cfg.Name = "point_mass/circle"
			cfg.Goals = []GoalConfig{{
				Type:      "time_variant",
				Link:      kinematics.EndEffector,
				Weight:    1,
				Position:  []float64{0.5, 0.5},
				Amplitude: 0.3,
				Frequency: 0.05,
			}}
			return cfg
		},
		"spline": func() *Config {
			cfg := reach()
			cfg.Name = "point_mass/spline"
			cfg.Goals = []GoalConfig{{
				Type:      "spline",
				Link:      kinematics.EndEffector,
				Weight:    1,
				Waypoints: [][]float64{{0, 0}, {0.5, 0.2}, {1, 1}},
				Horizon:   10,
			}}
			return cfg
		},
	},
	RobotPlanarArm: {
		"reach": func() *Config {
			cfg := reach()
			cfg.Name = "planar_arm/reach"
			cfg.Robot = RobotPlanarArm
			cfg.LinkLengths = []float64{1, 1}
			cfg.Initial = []float64{0.3, 0.6}
			cfg.Goals[0].Position = []float64{0.8, 1.2}
			cfg.JointLimits = [][2]float64{{-2.5, 2.5}, {-2.5, 2.5}}
			cfg.Redundancy = &RedundancyConfig{Rest: []float64{0.3, 0.6}, Lambda: 0.1}
			return cfg
		},
		"obstacle": func() *Config {
			cfg := reach()
			cfg.Name = "planar_arm/obstacle"
			cfg.Robot = RobotPlanarArm
			cfg.LinkLengths = []float64{1, 1, 0.5}
			cfg.Initial = []float64{0.2, 0.4, 0.4}
			cfg.Duration = 30
			cfg.Goals[0].Position = []float64{0.2, 1.8}
			cfg.JointLimits = [][2]float64{{-2.8, 2.8}, {-2.8, 2.8}, {-2.8, 2.8}}
			cfg.Obstacles = []ObstacleConfig{{Center: []float64{1.0, 1.4}, Radius: 0.15}}
			cfg.BodyRadii = map[string]float64{"link1": 0.05, "link2": 0.05, kinematics.EndEffector: 0.05}
			cfg.SelfCollisionPairs = [][2]string{{"link1", kinematics.EndEffector}}
			return cfg
		},
	},
	RobotDiffDrive: {
		"drive": func() *Config {
			cfg := reach()
			cfg.Name = "diff_drive/drive"
			cfg.Robot = RobotDiffDrive
			cfg.Offset = 0.2
			cfg.Integrator = "rk4"
			cfg.Initial = []float64{0, 0, 0}
			cfg.Duration = 30
			cfg.GoalThreshold = 0.1
			cfg.Goals[0].Link = kinematics.LinkFront
			cfg.Goals[0].Position = []float64{1.5, 1}
			cfg.Planner.BaseInertia = 0.5
			return cfg
		},
	},
}

func GetPreset(robot, preset string) *Config {
	robotPresets, ok := Presets[robot]
	if !ok {
		return nil
	}
	fn, ok := robotPresets[preset]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets(robot string) []string {
	robotPresets, ok := Presets[robot]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(robotPresets))
	for name := range robotPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListRobots() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
