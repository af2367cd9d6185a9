// Package optim tunes fabric constants by searching a parameter grid over
// full closed-loop runs.
package optim

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/fabrics/internal/config"
	"github.com/san-kum/fabrics/internal/experiment"
)

var (
	ErrInvalidGrid   = errors.New("optim: invalid grid")
	ErrMissingMetric = errors.New("optim: metric not reported")
	ErrNoTrial       = errors.New("optim: every trial failed")
)

// BuildFunc turns a parameter assignment into a runnable experiment.
type BuildFunc func(params map[string]float64) (*experiment.Experiment, error)

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
	maximize   bool
	logger     *zap.Logger
}

type Option func(*GridSearch)

func WithWorkers(n int) Option {
	return func(g *GridSearch) { g.workers = n }
}

// Maximize makes larger metric values better, e.g. for min_clearance.
func Maximize() Option {
	return func(g *GridSearch) { g.maximize = true }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *GridSearch) { g.logger = l }
}

func NewGridSearch(params []string, ranges [][]float64, opts ...Option) *GridSearch {
	g := &GridSearch{paramNames: params, ranges: ranges, workers: 1, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.workers < 1 {
		g.workers = 1
	}
	return g
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

func (g *GridSearch) validate() error {
	if len(g.paramNames) == 0 {
		return errors.Wrap(ErrInvalidGrid, "no parameters")
	}
	if len(g.paramNames) != len(g.ranges) {
		return errors.Wrapf(ErrInvalidGrid, "%d parameters, %d ranges", len(g.paramNames), len(g.ranges))
	}
	for i, r := range g.ranges {
		if len(r) == 0 {
			return errors.Wrapf(ErrInvalidGrid, "empty range for %s", g.paramNames[i])
		}
	}
	return nil
}

// Search returns the best parameters and their metric value.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, metricName string) (map[string]float64, float64, error) {
	trials, err := g.Evaluate(ctx, build, metricName)
	if err != nil {
		return nil, 0, err
	}
	best := Best(trials, g.maximize)
	if best == nil {
		return nil, 0, errors.Wrapf(ErrNoTrial, "%d trials, first error: %v", len(trials), trials[0].Err)
	}
	return best.Params, best.Value, nil
}

// Evaluate runs every grid point, at most workers at a time, and returns
// the trials in grid order. Failed runs are reported in Trial.Err.
func (g *GridSearch) Evaluate(ctx context.Context, build BuildFunc, metricName string) ([]Trial, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	points := make([]map[string]float64, 0, g.Size())
	g.enumerate(0, make(map[string]float64), &points)

	trials := make([]Trial, len(points))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for i, params := range points {
		i, params := i, params
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trials[i] = g.trial(ctx, build, metricName, params)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return trials, nil
}

func (g *GridSearch) trial(ctx context.Context, build BuildFunc, metricName string, params map[string]float64) Trial {
	t := Trial{Params: params, Value: math.NaN()}

	exp, err := build(params)
	if err != nil {
		t.Err = err
		return t
	}
	_, result, err := exp.Run(ctx)
	if err != nil {
		t.Err = err
		return t
	}

	val, ok := result.Metrics[metricName]
	if !ok {
		t.Err = errors.Wrapf(ErrMissingMetric, "%q", metricName)
		return t
	}
	t.Value = val
	g.logger.Debug("trial", zap.Any("params", params), zap.String("metric", metricName), zap.Float64("value", val))
	return t
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.enumerate(depth+1, newParams, out)
	}
}

// Best picks the successful trial with the lowest value, or the highest
// when maximize is set. Ties keep the earlier trial.
func Best(trials []Trial, maximize bool) *Trial {
	var best *Trial
	for i := range trials {
		t := &trials[i]
		if t.Err != nil || math.IsNaN(t.Value) {
			continue
		}
		if best == nil || (maximize && t.Value > best.Value) || (!maximize && t.Value < best.Value) {
			best = t
		}
	}
	return best
}

// Rank orders successful trials best first.
func Rank(trials []Trial, maximize bool) []Trial {
	ok := make([]Trial, 0, len(trials))
	for _, t := range trials {
		if t.Err == nil && !math.IsNaN(t.Value) {
			ok = append(ok, t)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		if maximize {
			return ok[i].Value > ok[j].Value
		}
		return ok[i].Value < ok[j].Value
	})
	return ok
}

// ConfigBuilder applies each assignment to a copy of base.
func ConfigBuilder(base *config.Config, opts ...experiment.Option) BuildFunc {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		for name, v := range params {
			if err := cfg.SetParam(name, v); err != nil {
				return nil, err
			}
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return experiment.New(cfg, opts...), nil
	}
}
