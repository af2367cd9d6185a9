// Package experiment wires a config into a runnable closed loop: robot,
// planner, controller, integrator and metrics.
package experiment

import (
	"context"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/fabrics/internal/config"
	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/kinematics"
	"github.com/san-kum/fabrics/internal/metrics"
	"github.com/san-kum/fabrics/internal/planner"
	"github.com/san-kum/fabrics/internal/scene"
)

// Run is one fully wired simulation.
type Run struct {
	ID         string
	Config     *config.Config
	Robot      *Robot
	Scene      *scene.Scene
	Planner    *planner.Planner
	Controller dynamo.Controller
	Integrator dynamo.Integrator
	Simulator  *dynamo.Simulator
	FK         *kinematics.Evaluator
	Locator    metrics.Locator
	Initial    dynamo.State

	logger *zap.Logger
}

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *zap.Logger
}

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{cfg: cfg, registry: NewRegistry(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Build wires run i. Run 0 starts at the configured initial state; later
// runs add the configured perturbation drawn from seed+i.
func (e *Experiment) Build(i int) (*Run, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	robot, err := e.registry.GetRobot(e.cfg)
	if err != nil {
		return nil, err
	}
	sc, err := e.cfg.Scene()
	if err != nil {
		return nil, err
	}
	fk, err := kinematics.NewEvaluator(robot.Kinematics)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	run := &Run{
		ID:      id,
		Config:  e.cfg,
		Robot:   robot,
		Scene:   sc,
		FK:      fk,
		Locator: metrics.NewLocator(robot.Model, fk),
		Initial: robot.Model.Initial(e.initial(i)),
		logger:  e.logger.With(zap.String("run", id), zap.Int("index", i)),
	}

	ctrl, err := e.registry.GetController(run)
	if err != nil {
		return nil, err
	}
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return nil, err
	}
	run.Controller = ctrl
	run.Integrator = integ

	opts := []dynamo.Option{dynamo.WithLogger(run.logger.Named("sim"))}
	ms, stop := run.metrics()
	if e.cfg.StopAtGoal && stop != nil {
		opts = append(opts, dynamo.WithTerminator(stop))
	}
	run.Simulator = dynamo.New(robot.Model, integ, ctrl, opts...)
	for _, m := range ms {
		run.Simulator.AddMetric(m)
	}
	return run, nil
}

func (e *Experiment) initial(i int) []float64 {
	q := append([]float64(nil), e.cfg.Initial...)
	if i == 0 || e.cfg.Perturbation == 0 {
		return q
	}
	rng := rand.New(rand.NewSource(e.cfg.Seed + int64(i)))
	for k := range q {
		q[k] += e.cfg.Perturbation * (2*rng.Float64() - 1)
	}
	return q
}

func simConfig(c *config.Config) dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Dt = c.Dt
	cfg.Duration = c.Duration
	return cfg
}

// SimConfig is the loop configuration of the run.
func (r *Run) SimConfig() dynamo.Config { return simConfig(r.Config) }

func (r *Run) Execute(ctx context.Context) (*dynamo.Result, error) {
	return r.Simulator.Run(ctx, r.Initial, r.SimConfig())
}

// Run builds and executes run 0.
func (e *Experiment) Run(ctx context.Context) (*Run, *dynamo.Result, error) {
	run, err := e.Build(0)
	if err != nil {
		return nil, nil, err
	}
	result, err := run.Execute(ctx)
	return run, result, err
}

// Ensemble executes n perturbed runs, at most workers at a time.
func (e *Experiment) Ensemble(ctx context.Context, n, workers int) ([]*dynamo.Result, error) {
	if n <= 0 {
		return nil, errors.Errorf("experiment: ensemble size %d", n)
	}
	factory := func(i int) (*dynamo.Simulator, dynamo.State, error) {
		run, err := e.Build(i)
		if err != nil {
			return nil, nil, err
		}
		return run.Simulator, run.Initial, nil
	}
	return dynamo.NewEnsemble(factory, n, workers).Run(ctx, simConfig(e.cfg))
}

func (r *Run) buildPlanner() (*planner.Planner, error) {
	opts := append([]planner.Option{
		planner.WithLogger(r.logger.Named("planner")),
		planner.WithConfig(r.Config.Planner),
	}, r.Robot.Options...)
	if red := r.Config.Redundancy; red != nil {
		opts = append(opts, planner.WithRedundancy(red.Rest, red.Lambda))
	}
	p, err := planner.New(r.Robot.Kinematics.Dim(), r.Robot.Kinematics, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.SetComponents(r.Scene.Components(r.Config.JointLimits)); err != nil {
		return nil, errors.Wrap(err, "set components")
	}
	if err := p.Concretize(); err != nil {
		return nil, errors.Wrap(err, "concretize")
	}
	r.Planner = p
	return p, nil
}

// metrics returns the metrics of the run and, when the primary goal is a
// static absolute position, the goal terminator.
func (r *Run) metrics() ([]dynamo.Metric, dynamo.Terminator) {
	ms := []dynamo.Metric{metrics.NewControlEffort()}
	if h, ok := r.Robot.Model.(dynamo.Hamiltonian); ok {
		ms = append(ms, metrics.NewEnergy(h))
	}

	var stop dynamo.Terminator
	if goals := r.Config.Goals; len(goals) > 0 {
		g := goals[r.Scene.Goal.PrimaryIndex()]
		if (g.Type == "" || g.Type == "static") && g.Parent == "" && len(g.Indices) == 0 && len(g.Position) >= 2 {
			target := r3.Vector{X: g.Position[0], Y: g.Position[1]}
			if len(g.Position) > 2 {
				target.Z = g.Position[2]
			}
			ttg := metrics.NewTimeToGoal(r.Locator, g.Link, target, r.Config.GoalThreshold)
			ms = append(ms,
				metrics.NewGoalDistance(r.Locator, g.Link, target),
				ttg,
				metrics.NewPathLength(r.Locator, g.Link),
			)
			stop = ttg
		}
	}
	if len(r.Scene.Obstacles) > 0 {
		ms = append(ms, metrics.NewClearance(r.Locator, r.Scene), metrics.NewCollisions(r.Locator, r.Scene))
	}
	if len(r.Config.JointLimits) > 0 {
		ms = append(ms, metrics.NewLimitCompliance(r.Config.JointLimits))
	}
	if r.Planner != nil {
		ms = append(ms, metrics.NewRegularizationRate(r.Planner))
	}
	return ms, stop
}
