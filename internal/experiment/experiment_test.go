package experiment

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/fabrics/internal/config"
)

func TestReachPreset(t *testing.T) {
	cfg := config.GetPreset(config.RobotPointMass, "reach")
	run, result, err := New(cfg, WithLogger(zaptest.NewLogger(t))).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.NotNil(t, run.Planner)
	assert.Zero(t, result.ControlFailures)
	assert.Less(t, result.Metrics["goal_distance"], 0.01)
	assert.Greater(t, result.Metrics["time_to_goal"], 0.0)
	assert.Greater(t, result.Metrics["path_length"], 1.4)
}

func TestObstaclePreset(t *testing.T) {
	cfg := config.GetPreset(config.RobotPointMass, "obstacle")
	_, result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, result.Metrics["min_clearance"], 0.2)
	assert.Zero(t, result.Metrics["collisions"])
	assert.Less(t, result.Metrics["goal_distance"], 0.05)
}

func TestStopAtGoal(t *testing.T) {
	cfg := config.GetPreset(config.RobotPointMass, "reach")
	cfg.StopAtGoal = true
	_, result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Terminated)
	assert.Less(t, result.StepsTaken, int(cfg.Duration/cfg.Dt))
}

func TestPDBaselineIgnoresObstacle(t *testing.T) {
	cfg := config.GetPreset(config.RobotPointMass, "obstacle")
	cfg.Controller = config.ControllerPD
	_, result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	// the straight line to (1, 1) passes 0.035 from the obstacle center
	assert.Less(t, result.Metrics["min_clearance"], 0.0)
	assert.Less(t, result.Metrics["goal_distance"], 0.01)
}

func TestDiffDrivePreset(t *testing.T) {
	cfg := config.GetPreset(config.RobotDiffDrive, "drive")
	run, result, err := New(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, run.Planner.ActionDim())
	assert.Positive(t, result.StepsTaken)
	assert.Contains(t, result.Metrics, "goal_distance")
}

func TestEnsemblePerturbsInitialStates(t *testing.T) {
	cfg := config.GetPreset(config.RobotPointMass, "reach")
	cfg.Duration = 0.5
	cfg.Perturbation = 0.1
	cfg.Seed = 7

	results, err := New(cfg).Ensemble(context.Background(), 3, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0.0, results[0].States[0][0])
	assert.NotEqual(t, results[1].States[0][0], results[2].States[0][0])
	for _, r := range results {
		assert.InDelta(t, 0, r.States[0][0], 0.1)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dt = -1
	_, err := New(cfg).Build(0)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"diff_drive", "planar_arm", "point_mass"}, r.ListRobots())
	assert.Equal(t, []string{"fabric", "none", "pd"}, r.ListControllers())

	cfg := config.DefaultConfig()
	cfg.Robot = "hexapod"
	_, err := r.GetRobot(cfg)
	assert.True(t, errors.Is(err, ErrUnknownRobot))
}
