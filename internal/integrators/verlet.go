package integrators

import "github.com/san-kum/fabrics/internal/dynamo"

// split reports the configuration size of a second-order system whose
// state is exactly (q, qdot).
func split(dyn dynamo.System, x dynamo.State) (int, bool) {
	so, ok := dyn.(dynamo.SecondOrder)
	if !ok {
		return 0, false
	}
	half := so.PositionDim()
	return half, half > 0 && 2*half == len(x)
}

// Verlet is velocity Verlet. Under a command held constant over the tick it
// integrates a double integrator exactly. Systems that are not second order
// are stepped with RK4.
type Verlet struct {
	scratch  dynamo.State
	fallback RK4
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	half, ok := split(dyn, x)
	if !ok {
		return v.fallback.Step(dyn, x, u, t, dt)
	}
	n := len(x)
	if len(v.scratch) != n {
		v.scratch = make(dynamo.State, n)
	}

	result := make(dynamo.State, n)
	dx := dyn.Derive(x, u, t)
	dt2 := dt * dt

	for i := 0; i < half; i++ {
		result[i] = x[i] + x[half+i]*dt + 0.5*dx[half+i]*dt2
	}

	for i := 0; i < half; i++ {
		v.scratch[i] = result[i]
		v.scratch[half+i] = x[half+i]
	}

	dxNew := dyn.Derive(v.scratch, u, t+dt)

	halfDt := 0.5 * dt
	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + (dx[half+i]+dxNew[half+i])*halfDt
	}

	return result
}

type Leapfrog struct {
	scratch  dynamo.State
	fallback RK4
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	half, ok := split(dyn, x)
	if !ok {
		return l.fallback.Step(dyn, x, u, t, dt)
	}
	n := len(x)
	if len(l.scratch) != n {
		l.scratch = make(dynamo.State, n)
	}

	result := make(dynamo.State, n)
	dx := dyn.Derive(x, u, t)
	halfDt := dt * 0.5

	for i := 0; i < half; i++ {
		l.scratch[half+i] = x[half+i] + dx[half+i]*halfDt
	}

	for i := 0; i < half; i++ {
		result[i] = x[i] + l.scratch[half+i]*dt
		l.scratch[i] = result[i]
	}

	dxNew := dyn.Derive(l.scratch, u, t+dt)

	for i := 0; i < half; i++ {
		result[half+i] = l.scratch[half+i] + dxNew[half+i]*halfDt
	}

	return result
}
