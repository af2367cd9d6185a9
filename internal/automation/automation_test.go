package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fabrics/internal/config"
	"github.com/san-kum/fabrics/internal/storage"
)

const script = `
name: smoke
description: two short point mass runs
steps:
  - robot: point_mass
    preset: reach
    duration: 0.2
    save_as: first
  - robot: point_mass
    preset: obstacle
    integrator: rk4
    duration: 0.2
    params:
      damper.beta_close: 8
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(script))
	require.NoError(t, err)
	assert.Equal(t, "smoke", sc.Name)
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, 8.0, sc.Steps[1].Params["damper.beta_close"])

	_, err = ParseScenario([]byte("name: empty\n"))
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestResolve(t *testing.T) {
	cfg, err := ScenarioStep{Preset: "obstacle", Dt: 0.005, Params: map[string]float64{"attractor.k": 3}}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, config.RobotPointMass, cfg.Robot)
	assert.Equal(t, 0.005, cfg.Dt)
	assert.Equal(t, 3.0, cfg.Planner.Attractor.K)

	tests := []struct {
		name string
		step ScenarioStep
	}{
		{"unknown preset", ScenarioStep{Preset: "nope"}},
		{"unknown robot", ScenarioStep{Robot: "hexapod"}},
		{"unknown param", ScenarioStep{Params: map[string]float64{"nope": 1}}},
		{"invalid integrator", ScenarioStep{Integrator: "midpoint"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.step.Resolve()
			assert.Error(t, err)
		})
	}
}

func TestRunScenarioStoresSavedSteps(t *testing.T) {
	sc, err := ParseScenario([]byte(script))
	require.NoError(t, err)

	st := storage.New(t.TempDir())
	require.NoError(t, st.Init())

	results, err := NewRunner(WithStore(st)).RunScenario(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NotEmpty(t, results[0].RunID)
	assert.Empty(t, results[1].RunID)
	assert.Equal(t, "rk4", results[1].Config.Integrator)
	assert.Positive(t, results[1].Result.StepsTaken)

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "first", runs[0].Name)
}

func TestRunSweep(t *testing.T) {
	base := config.GetPreset(config.RobotPointMass, "obstacle")
	base.Duration = 0.2

	r := NewRunner()
	results, err := r.RunSweep(context.Background(), &ParameterSweep{
		Base:      base,
		ParamName: "damper.beta_close",
		ParamMin:  2,
		ParamMax:  10,
		NumSteps:  3,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []float64{2, 6, 10}, []float64{results[0].ParamValue, results[1].ParamValue, results[2].ParamValue})
	assert.Contains(t, results[0].Metrics, "min_clearance")

	safe, collided := SweepStats(results)
	assert.Equal(t, 3, safe+collided)
	assert.Equal(t, 20.0, base.Planner.Damper.BetaClose, "sweep must not mutate the base config")

	_, err = r.RunSweep(context.Background(), &ParameterSweep{Base: base, ParamName: "nope", NumSteps: 2})
	assert.ErrorIs(t, err, config.ErrUnknownParam)
}
