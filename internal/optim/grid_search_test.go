package optim

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/goleak"

	"github.com/san-kum/fabrics/internal/config"
)

func pdBase() *config.Config {
	cfg := config.GetPreset(config.RobotPointMass, "reach")
	cfg.Controller = config.ControllerPD
	cfg.Duration = 3
	return cfg
}

func TestGridSearchFindsStifferGain(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := NewGridSearch([]string{"pd.kp"}, [][]float64{{0.1, 4}}, WithWorkers(2))
	params, best, err := g.Search(context.Background(), ConfigBuilder(pdBase()), "goal_distance")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if params["pd.kp"] != 4 {
		t.Errorf("expected kp 4, got %v", params)
	}
	if best > 0.1 {
		t.Errorf("expected goal distance below 0.1, got %f", best)
	}
}

func TestEvaluateGridOrder(t *testing.T) {
	g := NewGridSearch(
		[]string{"pd.kp", "pd.kd"},
		[][]float64{{1, 2}, {3, 4, 5}},
		WithWorkers(3),
	)
	if g.Size() != 6 {
		t.Fatalf("expected 6 points, got %d", g.Size())
	}

	base := pdBase()
	base.Duration = 0.1
	trials, err := g.Evaluate(context.Background(), ConfigBuilder(base), "goal_distance")
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if len(trials) != 6 {
		t.Fatalf("expected 6 trials, got %d", len(trials))
	}
	if trials[0].Params["pd.kp"] != 1 || trials[0].Params["pd.kd"] != 3 {
		t.Errorf("unexpected first point %v", trials[0].Params)
	}
	if trials[5].Params["pd.kp"] != 2 || trials[5].Params["pd.kd"] != 5 {
		t.Errorf("unexpected last point %v", trials[5].Params)
	}
	for i, tr := range trials {
		if tr.Err != nil {
			t.Errorf("trial %d failed: %v", i, tr.Err)
		}
	}
}

func TestGridSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		params []string
		ranges [][]float64
		metric string
		want   error
	}{
		{"mismatched ranges", []string{"pd.kp"}, nil, "goal_distance", ErrInvalidGrid},
		{"empty range", []string{"pd.kp"}, [][]float64{{}}, "goal_distance", ErrInvalidGrid},
		{"unknown param", []string{"pd.nope"}, [][]float64{{1}}, "goal_distance", ErrNoTrial},
		{"unknown metric", []string{"pd.kp"}, [][]float64{{1}}, "nope", ErrNoTrial},
	}

	base := pdBase()
	base.Duration = 0.1
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGridSearch(tt.params, tt.ranges)
			_, _, err := g.Search(context.Background(), ConfigBuilder(base), tt.metric)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRank(t *testing.T) {
	trials := []Trial{
		{Value: 3},
		{Value: 1},
		{Value: 2, Err: errors.New("boom")},
		{Value: 2},
	}

	ranked := Rank(trials, false)
	if len(ranked) != 3 || ranked[0].Value != 1 || ranked[2].Value != 3 {
		t.Errorf("unexpected ranking %v", ranked)
	}

	if best := Best(trials, true); best == nil || best.Value != 3 {
		t.Errorf("expected best 3, got %v", best)
	}
}
