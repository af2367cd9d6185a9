package metrics

import (
	"github.com/golang/geo/r3"

	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/kinematics"
)

// Locator returns the link positions of a robot state. The map is reused by
// the next call.
type Locator interface {
	Locate(x dynamo.State) (map[string]r3.Vector, error)
}

// Configurer extracts the configuration from a robot state.
type Configurer interface {
	Position(x dynamo.State) []float64
}

type linkLocator struct {
	robot Configurer
	fk    *kinematics.Evaluator
	out   map[string]r3.Vector
}

func NewLocator(robot Configurer, fk *kinematics.Evaluator) Locator {
	return &linkLocator{robot: robot, fk: fk, out: make(map[string]r3.Vector)}
}

func (l *linkLocator) Locate(x dynamo.State) (map[string]r3.Vector, error) {
	ps, err := l.fk.Positions(l.robot.Position(x))
	if err != nil {
		return nil, err
	}
	for i, link := range l.fk.Links() {
		l.out[link] = ps[i]
	}
	return l.out, nil
}
