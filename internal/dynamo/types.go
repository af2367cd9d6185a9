package dynamo

import "math"

// State is a robot state. Second-order systems store the configuration
// first and the velocity after it.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Control is the command applied for one tick, usually an acceleration.
type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// SecondOrder is a system whose state is (q, qdot) and whose command is
// qddot directly. Integrators use it to take exact position updates.
type SecondOrder interface {
	System
	PositionDim() int
}

// Hamiltonian reports the mechanical energy of a state.
type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(sys System, x State, u Control, t float64, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, u Control, t, dt, tol float64) (State, float64, error)
}

type Controller interface {
	Compute(x State, t float64) Control
}

// Faulty is implemented by controllers that fall back to a safe command on
// failure. Err reports the failure of the latest Compute, or nil.
type Faulty interface {
	Err() error
}

// Terminator stops a run early once the task is complete.
type Terminator interface {
	Done(x State, t float64) bool
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt            float64 `yaml:"dt"`
	Duration      float64 `yaml:"duration"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxDt         float64 `yaml:"max_dt"`
	MinDt         float64 `yaml:"min_dt"`
	Adaptive      bool    `yaml:"adaptive"`
	ValidateState bool    `yaml:"validate_state"`
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		Tolerance:     1e-6,
		MaxDt:         0.1,
		MinDt:         1e-8,
		Adaptive:      false,
		ValidateState: true,
	}
}

// Result collects a run. ControlFailures counts ticks where the controller
// reported an error and a zero command was applied. Terminated is set when
// a Terminator ended the run early.
type Result struct {
	States          []State
	Controls        []Control
	Times           []float64
	Metrics         map[string]float64
	EnergyDrift     float64
	StepsTaken      int
	ControlFailures int
	Terminated      bool
	Errors          []error
}

// Final returns the last recorded state.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
