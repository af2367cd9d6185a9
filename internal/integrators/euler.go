package integrators

import "github.com/san-kum/fabrics/internal/dynamo"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

// SemiImplicitEuler updates the velocity first and moves the configuration
// with the new velocity. It needs a second-order system.
type SemiImplicitEuler struct {
	fallback Euler
}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (e *SemiImplicitEuler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	half, ok := split(dyn, x)
	if !ok {
		return e.fallback.Step(dyn, x, u, t, dt)
	}
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + dt*dx[half+i]
		result[i] = x[i] + dt*result[half+i]
	}
	return result
}
