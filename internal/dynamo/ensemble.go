package dynamo

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Factory builds the simulator and initial state for run i. Planners are
// stateful, so every run needs its own.
type Factory func(i int) (*Simulator, State, error)

type Ensemble struct {
	factory Factory
	numRuns int
	workers int
}

// NewEnsemble runs numRuns simulations, at most workers at a time. A
// non-positive workers means GOMAXPROCS.
func NewEnsemble(factory Factory, numRuns, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{factory: factory, numRuns: numRuns, workers: workers}
}

// Run returns results in run order. The first failing run cancels the rest.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < e.numRuns; i++ {
		i := i
		g.Go(func() error {
			s, x0, err := e.factory(i)
			if err != nil {
				return errors.Wrapf(err, "run %d", i)
			}
			r, err := s.Run(ctx, x0, cfg)
			if err != nil {
				return errors.Wrapf(err, "run %d", i)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
