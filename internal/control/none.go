package control

import "github.com/san-kum/fabrics/internal/dynamo"

// None commands zero acceleration of the given size; the robot coasts.
type None int

func (n None) Compute(x dynamo.State, t float64) dynamo.Control {
	return make(dynamo.Control, n)
}
