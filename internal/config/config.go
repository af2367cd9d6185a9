// Package config loads run descriptions from YAML and turns them into the
// goal and scene a planner consumes.
package config

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fabrics/internal/integrators"
	"github.com/san-kum/fabrics/internal/planner"
)

const (
	DefaultDt            = 0.01
	DefaultDuration      = 20.0
	DefaultGoalThreshold = 0.05
	DefaultKp            = 4.0
	DefaultKd            = 4.0
)

const (
	RobotPointMass = "point_mass"
	RobotPlanarArm = "planar_arm"
	RobotDiffDrive = "diff_drive"
)

const (
	ControllerFabric = "fabric"
	ControllerPD     = "pd"
	ControllerNone   = "none"
)

var ErrInvalidConfig = errors.New("config: invalid config")

// Config describes one run. Perturbation is the half-width of the uniform
// noise added to the initial configuration of every ensemble run but the
// first.
type Config struct {
	Name               string             `yaml:"name,omitempty"`
	Robot              string             `yaml:"robot"`
	Dof                int                `yaml:"dof,omitempty"`
	LinkLengths        []float64          `yaml:"link_lengths,omitempty"`
	Offset             float64            `yaml:"offset,omitempty"`
	Integrator         string             `yaml:"integrator"`
	Controller         string             `yaml:"controller"`
	Dt                 float64            `yaml:"dt"`
	Duration           float64            `yaml:"duration"`
	Seed               int64              `yaml:"seed"`
	Initial            []float64          `yaml:"initial"`
	Perturbation       float64            `yaml:"perturbation,omitempty"`
	GoalThreshold      float64            `yaml:"goal_threshold"`
	StopAtGoal         bool               `yaml:"stop_at_goal,omitempty"`
	Goals              []GoalConfig       `yaml:"goals"`
	Obstacles          []ObstacleConfig   `yaml:"obstacles,omitempty"`
	BodyRadii          map[string]float64 `yaml:"body_radii,omitempty"`
	SelfCollisionPairs [][2]string        `yaml:"self_collision_pairs,omitempty"`
	JointLimits        [][2]float64       `yaml:"joint_limits,omitempty"`
	Redundancy         *RedundancyConfig  `yaml:"redundancy,omitempty"`
	Planner            planner.Config     `yaml:"planner"`
	PD                 PDConfig           `yaml:"pd"`
}

type ObstacleConfig struct {
	Center   []float64 `yaml:"center"`
	Radius   float64   `yaml:"radius"`
	Velocity []float64 `yaml:"velocity,omitempty"`
}

type RedundancyConfig struct {
	Rest   []float64 `yaml:"rest"`
	Lambda float64   `yaml:"lambda"`
}

// PDConfig tunes the baseline controller. Target defaults to the position
// of goal 0, which is a configuration only for point masses.
type PDConfig struct {
	Kp     float64   `yaml:"kp"`
	Kd     float64   `yaml:"kd"`
	Target []float64 `yaml:"target,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Robot:         RobotPointMass,
		Dof:           2,
		Integrator:    "verlet",
		Controller:    ControllerFabric,
		Dt:            DefaultDt,
		Duration:      DefaultDuration,
		Initial:       []float64{0, 0},
		GoalThreshold: DefaultGoalThreshold,
		Goals: []GoalConfig{{
			Type:     "static",
			Link:     "ee",
			Weight:   1,
			Primary:  true,
			Position: []float64{1, 1},
		}},
		Planner: planner.DefaultConfig(),
		PD: PDConfig{
			Kp: DefaultKp,
			Kd: DefaultKd,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Dim is the configuration dimension of the robot.
func (c *Config) Dim() int {
	switch c.Robot {
	case RobotPlanarArm:
		return len(c.LinkLengths)
	case RobotDiffDrive:
		return 3
	}
	return c.Dof
}

// TaskDim is the dimension of the collision links.
func (c *Config) TaskDim() int {
	if c.Robot == RobotPointMass && c.Dof == 3 {
		return 3
	}
	return 2
}

// PDTarget is the configuration the PD baseline drives to.
func (c *Config) PDTarget() []float64 {
	if len(c.PD.Target) > 0 {
		return c.PD.Target
	}
	if c.Robot == RobotPointMass && len(c.Goals) > 0 {
		return c.Goals[0].Position
	}
	return nil
}

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var err error
	invalid := func(format string, args ...any) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidConfig, format, args...))
	}

	switch c.Robot {
	case RobotPointMass:
		if c.Dof != 2 && c.Dof != 3 {
			invalid("point mass needs 2 or 3 dof, got %d", c.Dof)
		}
	case RobotPlanarArm:
		if len(c.LinkLengths) == 0 {
			invalid("planar arm without link lengths")
		}
	case RobotDiffDrive:
	default:
		invalid("unknown robot %q", c.Robot)
	}
	if _, ierr := integrators.New(c.Integrator); ierr != nil {
		invalid("integrator %q", c.Integrator)
	}
	switch c.Controller {
	case ControllerFabric, ControllerPD, ControllerNone:
	default:
		invalid("unknown controller %q", c.Controller)
	}
	if c.Dt <= 0 {
		invalid("dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		invalid("duration must be positive, got %g", c.Duration)
	}
	if c.Perturbation < 0 {
		invalid("perturbation must not be negative, got %g", c.Perturbation)
	}
	if n := c.Dim(); len(c.Initial) != n {
		invalid("initial configuration has %d components, robot has %d", len(c.Initial), n)
	}

	if c.Controller == ControllerFabric && len(c.Goals) == 0 {
		invalid("fabric controller without goals")
	}
	primaries := 0
	for i, g := range c.Goals {
		if gerr := g.validate(); gerr != nil {
			invalid("goal %d: %v", i, gerr)
		}
		if g.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		invalid("%d primary goals", primaries)
	}
	if c.Controller == ControllerPD && len(c.PDTarget()) != c.Dim() {
		invalid("pd target has %d components, robot has %d", len(c.PDTarget()), c.Dim())
	}

	for i, o := range c.Obstacles {
		if o.Radius <= 0 {
			invalid("obstacle %d radius %g", i, o.Radius)
		}
		if len(o.Center) != c.TaskDim() {
			invalid("obstacle %d center has %d components, want %d", i, len(o.Center), c.TaskDim())
		}
		if o.Velocity != nil && len(o.Velocity) != c.TaskDim() {
			invalid("obstacle %d velocity has %d components, want %d", i, len(o.Velocity), c.TaskDim())
		}
	}
	if len(c.Obstacles) > 0 && len(c.BodyRadii) == 0 {
		invalid("obstacles without collision links")
	}
	for _, pair := range c.SelfCollisionPairs {
		for _, link := range pair {
			if _, ok := c.BodyRadii[link]; !ok {
				invalid("self-collision link %q has no body radius", link)
			}
		}
	}
	if len(c.JointLimits) > 0 && len(c.JointLimits) != c.Dim() {
		invalid("%d joint limits for %d joints", len(c.JointLimits), c.Dim())
	}
	for i, l := range c.JointLimits {
		if !(l[0] < l[1]) {
			invalid("joint %d limits [%g, %g]", i, l[0], l[1])
		}
	}
	if c.Redundancy != nil && len(c.Redundancy.Rest) != c.Dim() {
		invalid("rest pose has %d components, robot has %d", len(c.Redundancy.Rest), c.Dim())
	}
	return err
}
