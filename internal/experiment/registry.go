package experiment

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/config"
	"github.com/san-kum/fabrics/internal/control"
	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/integrators"
	"github.com/san-kum/fabrics/internal/kinematics"
	"github.com/san-kum/fabrics/internal/models"
	"github.com/san-kum/fabrics/internal/planner"
)

var (
	ErrUnknownRobot      = errors.New("experiment: unknown robot")
	ErrUnknownController = errors.New("experiment: unknown controller")
)

// Robot pairs the simulated model with its kinematics and the planner
// options it needs.
type Robot struct {
	Model      models.Robot
	Kinematics kinematics.Model
	Options    []planner.Option
}

type Registry struct {
	robots      map[string]func(*config.Config) (*Robot, error)
	controllers map[string]func(*Run) (dynamo.Controller, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		robots:      make(map[string]func(*config.Config) (*Robot, error)),
		controllers: make(map[string]func(*Run) (dynamo.Controller, error)),
	}

	r.robots[config.RobotPointMass] = func(c *config.Config) (*Robot, error) {
		return &Robot{
			Model:      models.NewHolonomic(config.RobotPointMass, c.Dof),
			Kinematics: kinematics.NewPointMass(c.Dof),
		}, nil
	}
	r.robots[config.RobotPlanarArm] = func(c *config.Config) (*Robot, error) {
		arm, err := kinematics.NewPlanarArm(c.LinkLengths...)
		if err != nil {
			return nil, err
		}
		return &Robot{
			Model:      models.NewHolonomic(config.RobotPlanarArm, arm.Dim()),
			Kinematics: arm,
		}, nil
	}
	r.robots[config.RobotDiffDrive] = func(c *config.Config) (*Robot, error) {
		drive := kinematics.NewDiffDrive(c.Offset)
		return &Robot{
			Model:      models.NewDiffDrive(),
			Kinematics: drive,
			Options:    []planner.Option{planner.WithNonHolonomic(drive)},
		}, nil
	}

	r.controllers[config.ControllerNone] = func(run *Run) (dynamo.Controller, error) {
		return control.None(run.Robot.Model.ControlDim()), nil
	}
	r.controllers[config.ControllerPD] = func(run *Run) (dynamo.Controller, error) {
		if _, ok := run.Robot.Model.(dynamo.SecondOrder); !ok {
			return nil, errors.Errorf("experiment: pd controller needs a holonomic robot, got %s", run.Config.Robot)
		}
		c := run.Config
		return control.NewPD(c.PD.Kp, c.PD.Kd, c.PDTarget()), nil
	}
	r.controllers[config.ControllerFabric] = func(run *Run) (dynamo.Controller, error) {
		p, err := run.buildPlanner()
		if err != nil {
			return nil, err
		}
		return control.NewFabric(p, run.Scene, run.Robot.Model, run.logger.Named("control")), nil
	}

	return r
}

func (r *Registry) GetRobot(c *config.Config) (*Robot, error) {
	fn, ok := r.robots[c.Robot]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownRobot, "%q", c.Robot)
	}
	return fn(c)
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	return integrators.New(name)
}

func (r *Registry) GetController(run *Run) (dynamo.Controller, error) {
	fn, ok := r.controllers[run.Config.Controller]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownController, "%q", run.Config.Controller)
	}
	return fn(run)
}

func (r *Registry) ListRobots() []string {
	names := make([]string, 0, len(r.robots))
	for name := range r.robots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListControllers() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
