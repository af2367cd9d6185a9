package config

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/san-kum/fabrics/internal/planner"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Robot != RobotPointMass {
		t.Errorf("expected robot point_mass, got %s", cfg.Robot)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, robot := range ListRobots() {
		for _, name := range ListPresets(robot) {
			cfg := GetPreset(robot, name)
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", robot, name, err)
			}
			if _, err := cfg.Scene(); err != nil {
				t.Errorf("%s/%s scene: %v", robot, name, err)
			}
		}
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset(RobotPointMass, "obstacle")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if len(cfg.Obstacles) != 1 || cfg.Obstacles[0].Radius != 0.1 {
		t.Errorf("unexpected obstacles %+v", cfg.Obstacles)
	}

	cfg.Obstacles = nil
	if again := GetPreset(RobotPointMass, "obstacle"); len(again.Obstacles) != 1 {
		t.Error("presets must not share state")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset(RobotPointMass, "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "reach"); cfg != nil {
		t.Error("expected nil for nonexistent robot")
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent robot")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	want := GetPreset(RobotPlanarArm, "obstacle")

	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config changed across save and load (-want +got):\n%s", diff)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
robot: diff_drive
offset: 0.3
integrator: rk4
initial: [0, 0, 0.5]
goals:
  - link: front
    weight: 2
    primary: true
    position: [2, 1]
planner:
  damper:
    beta_close: 12
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := DefaultConfig()
	want.Robot = RobotDiffDrive
	want.Offset = 0.3
	want.Integrator = "rk4"
	want.Initial = []float64{0, 0, 0.5}
	want.Goals = []GoalConfig{{Link: "front", Weight: 2, Primary: true, Position: []float64{2, 1}}}
	want.Planner.Damper.BetaClose = 12

	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Robot = "hexapod"
	cfg.Integrator = "midpoint"
	cfg.Dt = 0
	cfg.Obstacles = []ObstacleConfig{{Center: []float64{1}, Radius: -1}}
	cfg.Goals[0].Type = "orbit"

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	// robot, integrator, dt, goal type, obstacle radius, obstacle center
	// and missing collision links
	if n := len(multierr.Errors(err)); n != 7 {
		t.Errorf("expected 7 problems, got %d: %v", n, err)
	}
}

func TestGoalKinds(t *testing.T) {
	tests := []struct {
		name string
		goal GoalConfig
		want planner.GoalType
	}{
		{"static", GoalConfig{Link: "ee", Weight: 1, Position: []float64{1, 1}}, planner.Static},
		{"dynamic", GoalConfig{Type: "dynamic", Link: "ee", Weight: 1, Position: []float64{1, 0}, Velocity: []float64{0, 1}}, planner.DynamicGoal},
		{"time variant", GoalConfig{Type: "time_variant", Link: "ee", Weight: 1, Position: []float64{0, 0}, Amplitude: 1, Frequency: 1}, planner.TimeVariant},
		{"spline", GoalConfig{Type: "spline", Link: "ee", Weight: 1, Waypoints: [][]float64{{0, 0}, {1, 1}}, Horizon: 2}, planner.SplineGoal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.goal.validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			sg, err := tt.goal.SubGoal(0.01)
			if err != nil {
				t.Fatalf("sub-goal: %v", err)
			}
			if sg.Type != tt.want {
				t.Errorf("expected %s, got %s", tt.want, sg.Type)
			}
		})
	}
}

func TestDynamicGoalReference(t *testing.T) {
	sg, err := GoalConfig{Type: "dynamic", Link: "ee", Position: []float64{1, 0}, Velocity: []float64{0, 0.5}}.SubGoal(0.01)
	if err != nil {
		t.Fatalf("sub-goal: %v", err)
	}
	pos, vel, acc := sg.Reference(2)
	if diff := cmp.Diff([][]float64{{1, 1}, {0, 0.5}, {0, 0}}, [][]float64{pos, vel, acc}); diff != "" {
		t.Errorf("unexpected reference (-want +got):\n%s", diff)
	}
}

func TestSetParam(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.SetParam("damper.beta_close", 12); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if cfg.Planner.Damper.BetaClose != 12 {
		t.Errorf("expected beta_close 12, got %f", cfg.Planner.Damper.BetaClose)
	}
	v, err := cfg.GetParam("damper.beta_close")
	if err != nil || v != 12 {
		t.Errorf("expected 12, got %f (%v)", v, err)
	}

	if err := cfg.SetParam("damper.nope", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}

	names := cfg.Tunables()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("tunables not sorted: %v", names)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := GetPreset(RobotPointMass, "obstacle")
	clone := cfg.Clone()

	if diff := cmp.Diff(cfg, clone, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("clone differs (-want +got):\n%s", diff)
	}

	clone.Initial[0] = 9
	clone.Goals[0].Weight = 9
	if err := clone.SetParam("attractor.k", 9); err != nil {
		t.Fatal(err)
	}

	if cfg.Initial[0] == 9 || cfg.Goals[0].Weight == 9 || cfg.Planner.Attractor.K == 9 {
		t.Error("clone shares state with the original")
	}
}
