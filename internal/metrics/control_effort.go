package metrics

import (
	"math"

	"github.com/san-kum/fabrics/internal/dynamo"
)

// ControlEffort is the root mean square of the commanded acceleration norm.
// Peak keeps the largest single command.
type ControlEffort struct {
	sumSq   float64
	peak    float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	sq := 0.0
	for _, a := range u {
		sq += a * a
	}
	c.sumSq += sq
	c.peak = math.Max(c.peak, math.Sqrt(sq))
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return math.Sqrt(c.sumSq / float64(c.samples))
}

func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() { *c = ControlEffort{} }
