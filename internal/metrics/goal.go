package metrics

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/san-kum/fabrics/internal/dynamo"
)

// GoalDistance is the distance of a link to a static goal at the last
// observed tick.
type GoalDistance struct {
	name string
	loc  Locator
	link string
	goal r3.Vector
	last float64
}

func NewGoalDistance(loc Locator, link string, goal r3.Vector) *GoalDistance {
	return &GoalDistance{name: "goal_distance", loc: loc, link: link, goal: goal, last: math.NaN()}
}

func (g *GoalDistance) Name() string { return g.name }

func (g *GoalDistance) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if d, ok := distance(g.loc, x, g.link, g.goal); ok {
		g.last = d
	}
}

func (g *GoalDistance) Value() float64 {
	if math.IsNaN(g.last) {
		return 0
	}
	return g.last
}

func (g *GoalDistance) Reset() { g.last = math.NaN() }

// TimeToGoal is the first time the link came within Threshold of the goal,
// or -1.
type TimeToGoal struct {
	name      string
	loc       Locator
	link      string
	goal      r3.Vector
	threshold float64
	reached   float64
}

func NewTimeToGoal(loc Locator, link string, goal r3.Vector, threshold float64) *TimeToGoal {
	return &TimeToGoal{name: "time_to_goal", loc: loc, link: link, goal: goal, threshold: threshold, reached: -1}
}

func (g *TimeToGoal) Name() string { return g.name }

func (g *TimeToGoal) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if g.reached >= 0 {
		return
	}
	if d, ok := distance(g.loc, x, g.link, g.goal); ok && d < g.threshold {
		g.reached = t
	}
}

func (g *TimeToGoal) Value() float64 { return g.reached }
func (g *TimeToGoal) Reset()         { g.reached = -1 }

// Done lets a TimeToGoal end the run once the goal is reached.
func (g *TimeToGoal) Done(x dynamo.State, t float64) bool {
	d, ok := distance(g.loc, x, g.link, g.goal)
	return ok && d < g.threshold
}

// PathLength is the distance a link travelled.
type PathLength struct {
	name   string
	loc    Locator
	link   string
	prev   r3.Vector
	length float64
	seen   bool
}

func NewPathLength(loc Locator, link string) *PathLength {
	return &PathLength{name: "path_length", loc: loc, link: link}
}

func (p *PathLength) Name() string { return p.name }

func (p *PathLength) Observe(x dynamo.State, u dynamo.Control, t float64) {
	ps, err := p.loc.Locate(x)
	if err != nil {
		return
	}
	pos, ok := ps[p.link]
	if !ok {
		return
	}
	if p.seen {
		p.length += pos.Sub(p.prev).Norm()
	}
	p.prev, p.seen = pos, true
}

func (p *PathLength) Value() float64 { return p.length }

func (p *PathLength) Reset() {
	p.length = 0
	p.seen = false
}

func distance(loc Locator, x dynamo.State, link string, goal r3.Vector) (float64, bool) {
	ps, err := loc.Locate(x)
	if err != nil {
		return 0, false
	}
	pos, ok := ps[link]
	if !ok {
		return 0, false
	}
	return pos.Sub(goal).Norm(), true
}
