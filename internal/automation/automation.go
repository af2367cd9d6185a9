// Package automation runs scripted batches of fabric scenarios.
package automation

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/fabrics/internal/config"
	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/experiment"
	"github.com/san-kum/fabrics/internal/storage"
)

var ErrInvalidScenario = errors.New("automation: invalid scenario")

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Config names a config file; otherwise Robot and
// Preset select a preset. Zero fields keep the value of the base config.
type ScenarioStep struct {
	Robot      string             `yaml:"robot"`
	Preset     string             `yaml:"preset"`
	Config     string             `yaml:"config"`
	Integrator string             `yaml:"integrator"`
	Controller string             `yaml:"controller"`
	Duration   float64            `yaml:"duration"`
	Dt         float64            `yaml:"dt"`
	Seed       int64              `yaml:"seed"`
	Params     map[string]float64 `yaml:"params"`
	SaveAs     string             `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, errors.Wrap(err, "parse scenario")
	}
	if len(scenario.Steps) == 0 {
		return nil, errors.Wrap(ErrInvalidScenario, "no steps")
	}
	return &scenario, nil
}

// Resolve builds the validated config of the step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		c, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		robot := s.Robot
		if robot == "" {
			robot = config.RobotPointMass
		}
		name := s.Preset
		if name == "" {
			name = "reach"
		}
		cfg = config.GetPreset(robot, name)
		if cfg == nil {
			return nil, errors.Wrapf(ErrInvalidScenario, "unknown preset %s/%s", robot, name)
		}
	}

	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Controller != "" {
		cfg.Controller = s.Controller
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	for k, v := range s.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StepResult is the outcome of one scenario step. RunID is set when the
// step was stored.
type StepResult struct {
	Step   int
	Config *config.Config
	Result *dynamo.Result
	RunID  string
}

type Runner struct {
	store  *storage.Store
	logger *zap.Logger
}

type Option func(*Runner)

// WithStore stores every step that names save_as.
func WithStore(s *storage.Store) Option {
	return func(r *Runner) { r.store = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScenario executes all steps in order and stops at the first failure.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		r.logger.Info("running step", zap.String("scenario", scenario.Name), zap.Int("step", i+1), zap.Int("of", len(scenario.Steps)))

		cfg, err := step.Resolve()
		if err != nil {
			return results, errors.Wrapf(err, "step %d", i+1)
		}
		_, result, err := experiment.New(cfg, experiment.WithLogger(r.logger)).Run(ctx)
		if err != nil {
			return results, errors.Wrapf(err, "step %d run", i+1)
		}

		sr := StepResult{Step: i + 1, Config: cfg, Result: result}
		if step.SaveAs != "" && r.store != nil {
			meta := storage.Metadata("", cfg, result)
			meta.Name = step.SaveAs
			id, err := r.store.Save(meta, cfg, result)
			if err != nil {
				return results, errors.Wrapf(err, "step %d save", i+1)
			}
			sr.RunID = id
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep varies one planner parameter linearly over NumSteps values.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds the metrics of one sweep point.
type SweepResult struct {
	ParamValue float64
	Metrics    map[string]float64
	Collided   bool
}

// RunSweep executes a parameter sweep
func (r *Runner) RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.Base == nil || sweep.NumSteps < 1 {
		return nil, errors.Wrap(ErrInvalidScenario, "sweep needs a base config and at least one step")
	}
	if _, err := sweep.Base.GetParam(sweep.ParamName); err != nil {
		return nil, err
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		v := sweep.ParamMin + float64(i)*paramStep
		cfg := sweep.Base.Clone()
		if err := cfg.SetParam(sweep.ParamName, v); err != nil {
			return nil, err
		}

		_, result, err := experiment.New(cfg, experiment.WithLogger(r.logger)).Run(ctx)
		if err != nil {
			return results, errors.Wrapf(err, "%s=%g", sweep.ParamName, v)
		}
		results = append(results, SweepResult{
			ParamValue: v,
			Metrics:    result.Metrics,
			Collided:   result.Metrics["collisions"] > 0,
		})
		r.logger.Debug("sweep point", zap.String("param", sweep.ParamName), zap.Float64("value", v), zap.Int("index", i))
	}

	return results, nil
}

// SweepStats counts the collision-free and colliding sweep points.
func SweepStats(results []SweepResult) (safe int, collided int) {
	for _, r := range results {
		if r.Collided {
			collided++
		} else {
			safe++
		}
	}
	return
}
