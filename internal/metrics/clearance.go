package metrics

import (
	"math"

	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/scene"
)

// Clearance is the smallest surface distance between any collision link and
// any obstacle over a run. A negative value is a collision.
type Clearance struct {
	name  string
	loc   Locator
	scene *scene.Scene
	min   float64
}

func NewClearance(loc Locator, sc *scene.Scene) *Clearance {
	return &Clearance{name: "min_clearance", loc: loc, scene: sc, min: math.Inf(1)}
}

func (c *Clearance) Name() string { return c.name }

func (c *Clearance) Observe(x dynamo.State, u dynamo.Control, t float64) {
	ps, err := c.loc.Locate(x)
	if err != nil {
		return
	}
	c.min = math.Min(c.min, c.scene.Clearance(t, ps))
}

// Value is 0 when nothing was observed or the scene has no obstacles.
func (c *Clearance) Value() float64 {
	if math.IsInf(c.min, 1) {
		return 0
	}
	return c.min
}

func (c *Clearance) Reset() { c.min = math.Inf(1) }

// Collisions counts the ticks with negative clearance.
type Collisions struct {
	name  string
	loc   Locator
	scene *scene.Scene
	count int
}

func NewCollisions(loc Locator, sc *scene.Scene) *Collisions {
	return &Collisions{name: "collisions", loc: loc, scene: sc}
}

func (c *Collisions) Name() string { return c.name }

func (c *Collisions) Observe(x dynamo.State, u dynamo.Control, t float64) {
	ps, err := c.loc.Locate(x)
	if err != nil {
		return
	}
	if c.scene.Clearance(t, ps) < 0 {
		c.count++
	}
}

func (c *Collisions) Value() float64 { return float64(c.count) }
func (c *Collisions) Reset()         { c.count = 0 }
