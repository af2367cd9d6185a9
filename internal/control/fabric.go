package control

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/scene"
)

// Planner is the part of a ready planner the controller evaluates.
type Planner interface {
	ComputeAction(params map[string][]float64) ([]float64, error)
	ActionDim() int
	NeedsTime() bool
}

// Robot reads the planner inputs off a simulated state.
type Robot interface {
	Observe(x dynamo.State, dst map[string][]float64)
}

// Fabric commands the robot with the action of a fabric planner. When the
// planner fails it applies a zero command and reports the failure through
// Err.
type Fabric struct {
	planner Planner
	scene   *scene.Scene
	robot   Robot
	logger  *zap.Logger

	params   map[string][]float64
	time     []float64
	err      error
	failures int
}

func NewFabric(p Planner, sc *scene.Scene, robot Robot, logger *zap.Logger) *Fabric {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fabric{
		planner: p,
		scene:   sc,
		robot:   robot,
		logger:  logger,
		params:  make(map[string][]float64),
		time:    make([]float64, 1),
	}
}

func (f *Fabric) Compute(x dynamo.State, t float64) dynamo.Control {
	f.scene.Parameters(t, f.params)
	f.robot.Observe(x, f.params)
	if f.planner.NeedsTime() {
		f.time[0] = t
		f.params["t"] = f.time
	}

	u := make(dynamo.Control, f.planner.ActionDim())
	action, err := f.planner.ComputeAction(f.params)
	f.err = err
	if err != nil {
		f.failures++
		f.logger.Debug("planner failed", zap.Float64("t", t), zap.Error(err))
		return u
	}
	copy(u, action)
	return u
}

// Err reports the failure of the latest Compute.
func (f *Fabric) Err() error { return f.err }

// Failures counts the ticks that fell back to a zero command.
func (f *Fabric) Failures() int { return f.failures }

// GetParams exposes the sub-goal weights for live tuning.
func (f *Fabric) GetParams() map[string]float64 {
	params := make(map[string]float64, len(f.scene.Goal.SubGoals))
	for i, sg := range f.scene.Goal.SubGoals {
		params[weightParam(i)] = sg.Weight
	}
	return params
}

// SetParam changes a sub-goal weight. Weights are planner parameters, so the
// change applies from the next tick on.
func (f *Fabric) SetParam(name string, value float64) error {
	i, err := strconv.Atoi(strings.TrimPrefix(name, "weight_goal_"))
	if err != nil || !strings.HasPrefix(name, "weight_goal_") || i < 0 || i >= len(f.scene.Goal.SubGoals) {
		return errors.Wrapf(ErrUnknownParam, "%q", name)
	}
	if value < 0 {
		return errors.Errorf("control: negative weight %g", value)
	}
	f.scene.Goal.SubGoals[i].Weight = value
	return nil
}

func weightParam(i int) string { return "weight_goal_" + strconv.Itoa(i) }

var (
	_ dynamo.Controller   = (*Fabric)(nil)
	_ dynamo.Faulty       = (*Fabric)(nil)
	_ dynamo.Configurable = (*Fabric)(nil)
	_ dynamo.Configurable = (*PD)(nil)
)
