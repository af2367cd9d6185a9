package config

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/leaf"
	"github.com/san-kum/fabrics/internal/planner"
	"github.com/san-kum/fabrics/internal/scene"
	"github.com/san-kum/fabrics/internal/symbolic"
)

// GoalConfig is one sub-goal. Static goals use Position, dynamic goals move
// from Position at Velocity, time-variant goals circle Position with
// Amplitude at Frequency (Hz) in the first two axes and spline goals follow
// Waypoints over Horizon seconds.
type GoalConfig struct {
	Type      string      `yaml:"type"`
	Metric    string      `yaml:"metric,omitempty"`
	Link      string      `yaml:"link"`
	Parent    string      `yaml:"parent,omitempty"`
	Indices   []int       `yaml:"indices,omitempty"`
	Weight    float64     `yaml:"weight"`
	Primary   bool        `yaml:"primary,omitempty"`
	Position  []float64   `yaml:"position,omitempty"`
	Velocity  []float64   `yaml:"velocity,omitempty"`
	Amplitude float64     `yaml:"amplitude,omitempty"`
	Frequency float64     `yaml:"frequency,omitempty"`
	Waypoints [][]float64 `yaml:"waypoints,omitempty"`
	Horizon   float64     `yaml:"horizon,omitempty"`
	Beta      float64     `yaml:"beta,omitempty"`
}

func (g GoalConfig) goalType() (planner.GoalType, error) {
	if g.Type == "" {
		return planner.Static, nil
	}
	return planner.ParseGoalType(g.Type)
}

func (g GoalConfig) validate() error {
	typ, err := g.goalType()
	if err != nil {
		return err
	}
	if g.Metric != "" {
		if _, err := planner.ParseMetric(g.Metric); err != nil {
			return err
		}
	}
	if g.Link == "" {
		return errors.New("no link")
	}
	if g.Weight < 0 {
		return errors.Errorf("negative weight %g", g.Weight)
	}
	switch typ {
	case planner.Static:
		if len(g.Position) == 0 {
			return errors.New("static goal without position")
		}
	case planner.DynamicGoal:
		if len(g.Position) == 0 || len(g.Velocity) != len(g.Position) {
			return errors.New("dynamic goal needs position and velocity of equal size")
		}
	case planner.TimeVariant:
		if len(g.Position) < 2 {
			return errors.New("time-variant goal needs at least a planar center")
		}
	case planner.SplineGoal:
		if len(g.Waypoints) < 2 || g.Horizon <= 0 {
			return errors.New("spline goal needs 2 waypoints and a positive horizon")
		}
	}
	return nil
}

// SubGoal builds the planner sub-goal. dt samples spline trajectories.
func (g GoalConfig) SubGoal(dt float64) (planner.SubGoal, error) {
	typ, err := g.goalType()
	if err != nil {
		return planner.SubGoal{}, err
	}
	metric := planner.MetricVariable
	if g.Metric != "" {
		if metric, err = planner.ParseMetric(g.Metric); err != nil {
			return planner.SubGoal{}, err
		}
	}
	sg := planner.SubGoal{
		Weight:          g.Weight,
		Primary:         g.Primary,
		Indices:         g.Indices,
		ParentLink:      g.Parent,
		ChildLink:       g.Link,
		DesiredPosition: g.Position,
		Type:            typ,
		Metric:          metric,
	}

	switch typ {
	case planner.DynamicGoal:
		start, vel := g.Position, g.Velocity
		pos := make([]float64, len(start))
		acc := make([]float64, len(start))
		sg.Reference = func(t float64) ([]float64, []float64, []float64) {
			for i := range pos {
				pos[i] = start[i] + vel[i]*t
			}
			return pos, vel, acc
		}
	case planner.TimeVariant:
		center := g.Position
		amp, omega := g.Amplitude, 2*math.Pi*g.Frequency
		sg.Desired = func(t *symbolic.Expr) symbolic.Vector {
			wt := symbolic.Mul(symbolic.Const(omega), t)
			out := make(symbolic.Vector, len(center))
			for i := range center {
				out[i] = symbolic.Const(center[i])
			}
			out[0] = symbolic.Add(out[0], symbolic.Mul(symbolic.Const(amp), symbolic.Cos(wt)))
			out[1] = symbolic.Add(out[1], symbolic.Mul(symbolic.Const(amp), symbolic.Sin(wt)))
			return out
		}
	case planner.SplineGoal:
		beta := g.Beta
		if beta == 0 {
			beta = 1
		}
		traj, err := leaf.NewTrajectory(g.Waypoints, g.Horizon, dt, beta)
		if err != nil {
			return planner.SubGoal{}, err
		}
		sg.Trajectory = traj
	}
	return sg, nil
}

// Goal builds the planner goal from every configured sub-goal.
func (c *Config) Goal() (planner.Goal, error) {
	var goal planner.Goal
	for i, g := range c.Goals {
		sg, err := g.SubGoal(c.Dt)
		if err != nil {
			return planner.Goal{}, errors.Wrapf(err, "goal %d", i)
		}
		goal.SubGoals = append(goal.SubGoals, sg)
	}
	return goal, nil
}

// Scene builds the scene of the run.
func (c *Config) Scene() (*scene.Scene, error) {
	goal, err := c.Goal()
	if err != nil {
		return nil, err
	}
	sc := &scene.Scene{
		Dim:                c.TaskDim(),
		BodyRadii:          make(map[string]float64, len(c.BodyRadii)),
		SelfCollisionPairs: c.SelfCollisionPairs,
		Goal:               goal,
	}
	for link, r := range c.BodyRadii {
		sc.BodyRadii[link] = r
	}
	for _, o := range c.Obstacles {
		sc.Obstacles = append(sc.Obstacles, scene.Obstacle{
			Center:   vector(o.Center),
			Radius:   o.Radius,
			Velocity: vector(o.Velocity),
		})
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func vector(v []float64) r3.Vector {
	var p r3.Vector
	if len(v) > 0 {
		p.X = v[0]
	}
	if len(v) > 1 {
		p.Y = v[1]
	}
	if len(v) > 2 {
		p.Z = v[2]
	}
	return p
}
