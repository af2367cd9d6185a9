package dynamo

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// maxErrors bounds the per-tick errors kept in a Result.
const maxErrors = 32

type Simulator struct {
	sys        System
	integrator Integrator
	controller Controller
	metrics    []Metric
	observers  []Observer
	terminator Terminator
	logger     *zap.Logger
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithTerminator(t Terminator) Option {
	return func(s *Simulator) { s.terminator = t }
}

func New(sys System, integrator Integrator, controller Controller, opts ...Option) *Simulator {
	s := &Simulator{
		sys:        sys,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		States:   make([]State, 0, steps+1),
		Controls: make([]Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.energy(x)

	limit, slack := steps, cfg.Dt/2
	if cfg.Adaptive {
		limit, slack = math.MaxInt, cfg.MinDt
	}

	for i := 0; i < limit && t < cfg.Duration-slack; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if s.terminator != nil && s.terminator.Done(x, t) {
			result.Terminated = true
			s.logger.Debug("run terminated", zap.Int("step", i), zap.Float64("t", t))
			break
		}

		u := s.command(x, t, i, result)

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		var newX State
		var stepErr error
		used := dt

		if cfg.Adaptive {
			dt = math.Min(dt, cfg.Duration-t)
			newX, used, dt, stepErr = s.adaptiveStep(x, u, t, dt, cfg)
		} else {
			newX = s.integrator.Step(s.sys, x, u, t, dt)
		}

		if stepErr != nil {
			s.record(result, &SimulationError{Step: i, Time: t, Wrapped: stepErr})
		}

		if cfg.ValidateState && !newX.IsValid() {
			err := &SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: ErrInvalidState}
			s.record(result, err)
			s.logger.Error("invalid state", zap.Int("step", i), zap.Float64("t", t))
			break
		}

		x = newX
		t += used
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
	}

	finalEnergy := s.energy(x)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	s.logger.Info("run finished",
		zap.Int("steps", result.StepsTaken),
		zap.Float64("t", t),
		zap.Int("control_failures", result.ControlFailures),
		zap.Bool("terminated", result.Terminated),
	)
	return result, nil
}

// command asks the controller for u. A failing controller yields a zero
// command and the failure is recorded.
func (s *Simulator) command(x State, t float64, step int, result *Result) Control {
	u := s.controller.Compute(x, t)
	f, ok := s.controller.(Faulty)
	if !ok {
		return u
	}
	err := f.Err()
	if err == nil {
		return u
	}
	if result.ControlFailures == 0 {
		s.logger.Warn("controller failed, applying zero command", zap.Int("step", step), zap.Error(err))
	}
	result.ControlFailures++
	s.record(result, &SimulationError{Step: step, Time: t, Wrapped: errors.Wrap(ErrControl, err.Error())})
	return make(Control, s.sys.ControlDim())
}

func (s *Simulator) record(result *Result, err error) {
	if len(result.Errors) < maxErrors {
		result.Errors = append(result.Errors, err)
	}
}

func (s *Simulator) validate(x0 State, cfg Config) error {
	if cfg.Dt <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return errors.Wrap(ErrInvalidConfig, "tolerance must be positive for adaptive stepping")
	}
	if len(x0) != s.sys.StateDim() {
		return errors.Wrapf(ErrDimensionMismatch, "initial state has %d components, system needs %d", len(x0), s.sys.StateDim())
	}
	return nil
}

func (s *Simulator) energy(x State) float64 {
	if h, ok := s.sys.(Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}

// adaptiveStep returns the next state, the step it actually took and the
// step to try next.
func (s *Simulator) adaptiveStep(x State, u Control, t, dt float64, cfg Config) (State, float64, float64, error) {
	if adaptive, ok := s.integrator.(AdaptiveIntegrator); ok {
		for {
			newX, next, err := adaptive.StepAdaptive(s.sys, x, u, t, dt, cfg.Tolerance)
			next = math.Min(next, cfg.MaxDt)
			if errors.Is(err, ErrStepRejected) {
				if next < cfg.MinDt {
					return newX, dt, cfg.MinDt, ErrStepTooSmall
				}
				dt = next
				continue
			}
			return newX, dt, next, err
		}
	}

	for {
		x1 := s.integrator.Step(s.sys, x, u, t, dt)
		xHalf := s.integrator.Step(s.sys, x, u, t, dt/2)
		x2 := s.integrator.Step(s.sys, xHalf, u, t+dt/2, dt/2)

		err := x1.Sub(x2).Norm()
		if err > cfg.Tolerance {
			if dt/2 < cfg.MinDt {
				return x2, dt, dt, ErrStepTooSmall
			}
			dt /= 2
			continue
		}
		next := dt
		if err < cfg.Tolerance/10 && dt < cfg.MaxDt {
			next = math.Min(dt*2, cfg.MaxDt)
		}
		return x2, dt, next, nil
	}
}

// RunWithCallback steps the loop until the duration elapses, the context is
// cancelled or callback returns false. It records nothing.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 State, cfg Config, callback func(State, Control, float64) bool) error {
	if err := s.validate(x0, cfg); err != nil {
		return err
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt
	scratch := &Result{}

	for i := 0; t < cfg.Duration; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		u := s.command(x, t, i, scratch)

		if !callback(x, u, t) {
			return nil
		}

		x = s.integrator.Step(s.sys, x, u, t, dt)
		t += dt

		if cfg.ValidateState && !x.IsValid() {
			return &SimulationError{Step: i, Time: t, Wrapped: ErrInvalidState}
		}
	}

	return nil
}
