package planner

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/leaf"
	"github.com/san-kum/fabrics/internal/symbolic"
)

type GoalType int

const (
	Static GoalType = iota
	TimeVariant
	DynamicGoal
	SplineGoal
)

var goalTypeNames = []string{"static", "time_variant", "dynamic", "spline"}

func (g GoalType) String() string {
	if int(g) >= 0 && int(g) < len(goalTypeNames) {
		return goalTypeNames[g]
	}
	return fmt.Sprintf("goal_type(%d)", int(g))
}

func ParseGoalType(s string) (GoalType, error) {
	for i, name := range goalTypeNames {
		if name == s {
			return GoalType(i), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidGoal, "unknown goal type %q", s)
}

// Metric selects the attractor used by a static sub-goal.
type Metric int

const (
	MetricVariable Metric = iota
	MetricQuadratic
	MetricExponential
)

var metricNames = []string{"variable", "quadratic", "exponential"}

func (m Metric) String() string {
	if int(m) >= 0 && int(m) < len(metricNames) {
		return metricNames[m]
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

func ParseMetric(s string) (Metric, error) {
	for i, name := range metricNames {
		if name == s {
			return Metric(i), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidGoal, "unknown metric %q", s)
}

// SubGoal attracts the position of ChildLink, relative to ParentLink when
// set, restricted to Indices when set.
type SubGoal struct {
	Name            string
	Weight          float64
	Primary         bool
	Indices         []int
	ParentLink      string
	ChildLink       string
	DesiredPosition []float64
	Epsilon         float64
	Type            GoalType
	Metric          Metric

	// Trajectory drives spline goals.
	Trajectory *leaf.Trajectory
	// Desired is the symbolic target of a time-variant goal.
	Desired func(t *symbolic.Expr) symbolic.Vector
	// Reference supplies the per-tick target of a dynamic goal.
	Reference func(t float64) (pos, vel, acc []float64)
}

// Goal is a weighted composition of sub-goals.
type Goal struct {
	SubGoals []SubGoal
}

func goalParam(prefix string, i int) string { return prefix + "_goal_" + strconv.Itoa(i) }

func weight(v float64, dst []float64) []float64 {
	if len(dst) != 1 {
		dst = make([]float64, 1)
	}
	dst[0] = v
	return dst
}

// PrimaryIndex is the first sub-goal marked primary, or 0.
func (g Goal) PrimaryIndex() int {
	for i, sg := range g.SubGoals {
		if sg.Primary {
			return i
		}
	}
	return 0
}

// Parameters fills dst with the goal parameters a static scene needs at
// time t: weights, static positions and dynamic references.
func (g Goal) Parameters(t float64, dst map[string][]float64) {
	for i, sg := range g.SubGoals {
		w := goalParam("weight", i)
		dst[w] = weight(sg.Weight, dst[w])
		switch sg.Type {
		case Static:
			dst[goalParam("x", i)] = sg.DesiredPosition
		case DynamicGoal:
			if sg.Reference == nil {
				continue
			}
			pos, vel, acc := sg.Reference(t)
			dst[goalParam("x", i)] = pos
			dst[goalParam("xdot", i)] = vel
			dst[goalParam("xddot", i)] = acc
		}
	}
}
