// Package planner is the entry point for robot code. A Planner turns a
// description of collision links, joint limits, obstacles and goals into
// leaves, composes them into one fabric and evaluates it every tick.
//
// The planner moves through three states and never back:
//
//	Built        New, leaves may be added with AddLeaf
//	Concretized  SetComponents derived and composed every leaf
//	Ready        Concretize compiled the fabric; ComputeAction may run
package planner

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/fabrics/internal/diffmap"
	"github.com/san-kum/fabrics/internal/fabric"
	"github.com/san-kum/fabrics/internal/leaf"
	"github.com/san-kum/fabrics/internal/symbolic"
)

type State int

const (
	Built State = iota
	Concretized
	Ready
)

func (s State) String() string {
	switch s {
	case Built:
		return "built"
	case Concretized:
		return "concretized"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ForwardKinematics supplies symbolic link positions.
type ForwardKinematics interface {
	Fk(q symbolic.Vector, link string) (symbolic.Vector, error)
	Links() []string
}

// NonHolonomicRelation maps actuated velocities to configuration
// velocities: qdot = Relation(q) * qudot.
type NonHolonomicRelation interface {
	Relation(q symbolic.Vector) (symbolic.Matrix, error)
	ActuatedDim() int
}

// Components is the one-time description handed to SetComponents.
type Components struct {
	CollisionLinks     []string
	SelfCollisionPairs [][2]string
	Goal               Goal
	// JointLimits holds (lower, upper) per degree of freedom, or nothing.
	JointLimits     [][2]float64
	NumberObstacles int
}

type Option func(*Planner)

func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

func WithConfig(c Config) Option {
	return func(p *Planner) { p.cfg = c }
}

// WithRedundancy adds a redundancy solver pulling toward rest pose q0.
func WithRedundancy(q0 []float64, lambda float64) Option {
	return func(p *Planner) {
		p.restPose = append([]float64(nil), q0...)
		p.restLambda = lambda
	}
}

func WithNonHolonomic(r NonHolonomicRelation) Option {
	return func(p *Planner) { p.relation = r }
}

type splineRef struct {
	traj         *leaf.Trajectory
	x, xdot, xdd string
}

type Planner struct {
	dof      int
	fk       ForwardKinematics
	cfg      Config
	logger   *zap.Logger
	state    State
	relation NonHolonomicRelation

	restPose   []float64
	restLambda float64

	q, qdot symbolic.Vector
	qudot   symbolic.Vector
	t       *symbolic.Expr

	extra       []*leaf.Leaf
	extraInputs []symbolic.Input

	positions   map[string]symbolic.Vector
	inputs      []symbolic.Input
	inputIndex  map[string]int
	internal    map[string]bool
	needTime    bool
	splines     []splineRef
	composition *fabric.Composition
	composed    *fabric.Composed
	scratch     map[string][]float64
}

// New returns a Built planner for a robot with dof configuration variables.
func New(dof int, fk ForwardKinematics, opts ...Option) (*Planner, error) {
	if dof <= 0 {
		return nil, errors.Wrapf(fabric.ErrDimension, "dof %d", dof)
	}
	if fk == nil {
		return nil, errors.New("planner: nil forward kinematics")
	}
	p := &Planner{
		dof:    dof,
		fk:     fk,
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
		q:      symbolic.Vars(fabric.InputQ, dof),
		qdot:   symbolic.Vars(fabric.InputQdot, dof),
		t:      symbolic.Var("t"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.relation != nil {
		if p.relation.ActuatedDim() <= 0 {
			return nil, errors.Wrapf(fabric.ErrDimension, "actuated dim %d", p.relation.ActuatedDim())
		}
		p.qudot = symbolic.Vars(fabric.InputQudot, p.relation.ActuatedDim())
	}
	return p, nil
}

func (p *Planner) State() State          { return p.state }
func (p *Planner) Dim() int              { return p.dof }
func (p *Planner) Config() Config        { return p.cfg }
func (p *Planner) Q() symbolic.Vector    { return p.q }
func (p *Planner) Qdot() symbolic.Vector { return p.qdot }

// ActionDim is the length of the vector ComputeAction returns.
func (p *Planner) ActionDim() int {
	if p.relation != nil {
		return p.relation.ActuatedDim()
	}
	return p.dof
}

// AddLeaf registers a custom leaf together with the inputs its parameters
// need. It is only allowed before SetComponents.
func (p *Planner) AddLeaf(l *leaf.Leaf, inputs ...symbolic.Input) error {
	if p.state != Built {
		return errors.Wrapf(ErrInvalidTransition, "add leaf in state %s", p.state)
	}
	if l == nil {
		return errors.Wrap(leaf.ErrInvalidLeaf, "nil leaf")
	}
	if err := l.Validate(); err != nil {
		return err
	}
	p.extra = append(p.extra, l)
	p.extraInputs = append(p.extraInputs, inputs...)
	return nil
}

// SetComponents creates every leaf and composes the fabric. On error the
// planner stays Built.
func (p *Planner) SetComponents(c Components) error {
	if p.state != Built {
		return errors.Wrapf(ErrInvalidTransition, "set components in state %s", p.state)
	}
	if err := p.checkLimits(c.JointLimits); err != nil {
		return err
	}
	if c.NumberObstacles < 0 {
		return errors.Errorf("planner: negative obstacle count %d", c.NumberObstacles)
	}
	if c.NumberObstacles > 0 && len(c.CollisionLinks) == 0 {
		return errors.Wrapf(ErrNoCollisionLinks, "%d obstacles", c.NumberObstacles)
	}

	p.positions = make(map[string]symbolic.Vector)
	p.inputs = nil
	p.inputIndex = make(map[string]int)
	p.internal = make(map[string]bool)
	p.needTime = false
	p.splines = nil

	p.addInput(fabric.InputQ, p.q)
	p.addInput(fabric.InputQdot, p.qdot)
	if p.qudot != nil {
		p.addInput(fabric.InputQudot, p.qudot)
	}

	b, err := fabric.NewBuilder(p.q, p.qdot)
	if err != nil {
		return err
	}
	if p.relation != nil {
		n, err := p.relation.Relation(p.q)
		if err != nil {
			return errors.Wrap(err, "non-holonomic relation")
		}
		if err := b.SetNonHolonomic(n, p.qudot); err != nil {
			return err
		}
	}

	leaves, err := p.leaves(c)
	if err != nil {
		return err
	}
	for _, l := range leaves {
		if err := b.AddLeaf(l); err != nil {
			return err
		}
	}
	for _, in := range p.extraInputs {
		p.addInput(in.Name, in.Symbols)
	}
	if p.needTime {
		p.addInput("t", symbolic.Vector{p.t})
	}

	comp, err := b.Compose()
	if err != nil {
		return err
	}
	p.composition = comp
	p.state = Concretized
	p.logger.Info("components set",
		zap.Int("leaves", len(comp.Leaves())),
		zap.Strings("parameters", p.ParameterNames()),
	)
	return nil
}

// Concretize compiles the composed fabric. ComputeAction is valid afterwards.
func (p *Planner) Concretize() error {
	if p.state != Concretized {
		return errors.Wrapf(ErrInvalidTransition, "concretize in state %s", p.state)
	}
	composed, err := p.composition.Compile(p.cfg.Fabric, p.logger, p.inputs[p.fixedInputs():]...)
	if err != nil {
		return err
	}
	p.composed = composed
	if len(p.splines) > 0 {
		p.scratch = make(map[string][]float64, len(p.inputs))
	}
	p.state = Ready
	return nil
}

// fixedInputs counts the leading inputs the fabric declares itself.
func (p *Planner) fixedInputs() int {
	if p.qudot != nil {
		return 3
	}
	return 2
}

// ComputeAction evaluates the fabric for one tick and returns qddot, or the
// actuated acceleration for a non-holonomic planner. The slice is reused by
// the next call.
func (p *Planner) ComputeAction(params map[string][]float64) ([]float64, error) {
	if p.state != Ready {
		return nil, errors.Wrapf(ErrNotReady, "state %s", p.state)
	}
	args := params
	if len(p.splines) > 0 {
		var err error
		if args, err = p.fillSplines(params); err != nil {
			return nil, err
		}
	}
	out, err := p.composed.Evaluate(args)
	if err != nil {
		return nil, errors.Wrap(err, "compute action")
	}
	if ce := p.logger.Check(zap.DebugLevel, "action"); ce != nil {
		d := p.composed.Diagnostics()
		ce.Write(
			zap.Float64s("action", out),
			zap.Float64("energy_scale", d.EnergyScale),
			zap.Float64("damping", d.Damping),
			zap.Bool("regularized", d.Regularized),
		)
	}
	return out, nil
}

func (p *Planner) fillSplines(params map[string][]float64) (map[string][]float64, error) {
	for name := range params {
		if p.internal[name] {
			return nil, errors.Wrapf(ErrUnknownParameter, "%q is filled from the goal trajectory", name)
		}
	}
	t, ok := params["t"]
	if !ok {
		return nil, errors.Wrap(ErrMissingParameter, `"t"`)
	}
	if len(t) != 1 {
		return nil, errors.Wrapf(ErrParameterSize, `"t": want 1, got %d`, len(t))
	}
	clear(p.scratch)
	for k, v := range params {
		p.scratch[k] = v
	}
	for _, s := range p.splines {
		pos, vel, acc := s.traj.At(t[0])
		p.scratch[s.x] = pos
		p.scratch[s.xdot] = vel
		p.scratch[s.xdd] = acc
	}
	return p.scratch, nil
}

// ParameterNames lists the parameters ComputeAction expects, in
// declaration order. It is empty before SetComponents.
func (p *Planner) ParameterNames() []string {
	var names []string
	for _, in := range p.inputs {
		if !p.internal[in.Name] {
			names = append(names, in.Name)
		}
	}
	return names
}

// NeedsTime reports whether ComputeAction expects the "t" parameter.
func (p *Planner) NeedsTime() bool { return p.needTime }

// Leaves lists the composed leaf names.
func (p *Planner) Leaves() []string {
	if p.composition == nil {
		return nil
	}
	return p.composition.Leaves()
}

func (p *Planner) Diagnostics() fabric.Diagnostics {
	if p.composed == nil {
		return fabric.Diagnostics{}
	}
	return p.composed.Diagnostics()
}

func (p *Planner) Regularizations() int {
	if p.composed == nil {
		return 0
	}
	return p.composed.Regularizations()
}

func (p *Planner) addInput(name string, symbols symbolic.Vector) {
	if _, ok := p.inputIndex[name]; ok {
		return
	}
	p.inputIndex[name] = len(p.inputs)
	p.inputs = append(p.inputs, symbolic.Input{Name: name, Symbols: symbols})
}

func (p *Planner) checkLimits(limits [][2]float64) error {
	if len(limits) == 0 {
		return nil
	}
	if len(limits) != p.dof {
		return errors.Wrapf(ErrInvalidLimits, "%d limits for %d joints", len(limits), p.dof)
	}
	for i, l := range limits {
		if !(l[0] < l[1]) {
			return errors.Wrapf(ErrInvalidLimits, "joint %d: lower %g, upper %g", i, l[0], l[1])
		}
	}
	return nil
}

func (p *Planner) position(link string) (symbolic.Vector, error) {
	if x, ok := p.positions[link]; ok {
		return x, nil
	}
	if !slices.Contains(p.fk.Links(), link) {
		return nil, errors.Wrapf(ErrUnknownLink, "%q", link)
	}
	x, err := p.fk.Fk(p.q, link)
	if err != nil {
		return nil, errors.Wrapf(err, "forward kinematics of %q", link)
	}
	p.positions[link] = x
	return x, nil
}

func bodyRadius(link string) string { return "radius_body_" + link }

// leaves creates the goal, obstacle, self-collision, limit, redundancy and
// base leaves followed by the custom ones.
func (p *Planner) leaves(c Components) ([]*leaf.Leaf, error) {
	var out []*leaf.Leaf

	primary := c.Goal.PrimaryIndex()
	for i, sg := range c.Goal.SubGoals {
		l, err := p.goalLeaf(i, sg)
		if err != nil {
			return nil, errors.Wrapf(err, "sub-goal %d", i)
		}
		if i == primary && l.Damper() == nil {
			l = l.WithDamper(p.cfg.Damper)
		}
		out = append(out, l)
	}

	for j := 0; j < c.NumberObstacles; j++ {
		for _, link := range c.CollisionLinks {
			fk, err := p.position(link)
			if err != nil {
				return nil, err
			}
			idx := strconv.Itoa(j)
			obstacle := leaf.Obstacle{
				Center: symbolic.Vars("x_obst_"+idx, len(fk)),
				Radius: symbolic.Var("radius_obst_" + idx),
			}
			body := symbolic.Var(bodyRadius(link))
			l, err := leaf.NewCollisionAvoidance("obstacle_"+idx+"_"+link, fk, p.q, p.qdot, obstacle, body, p.cfg.Collision)
			if err != nil {
				return nil, err
			}
			p.addInput("x_obst_"+idx, obstacle.Center)
			p.addInput("radius_obst_"+idx, symbolic.Vector{obstacle.Radius})
			p.addInput(bodyRadius(link), symbolic.Vector{body})
			out = append(out, l)
		}
	}

	for _, pair := range c.SelfCollisionPairs {
		a, err := p.position(pair[0])
		if err != nil {
			return nil, err
		}
		b, err := p.position(pair[1])
		if err != nil {
			return nil, err
		}
		ra, rb := symbolic.Var(bodyRadius(pair[0])), symbolic.Var(bodyRadius(pair[1]))
		l, err := leaf.NewSelfCollisionAvoidance("self_"+pair[0]+"_"+pair[1], a, b, p.q, p.qdot, ra, rb, p.cfg.SelfCollision)
		if err != nil {
			return nil, err
		}
		p.addInput(bodyRadius(pair[0]), symbolic.Vector{ra})
		p.addInput(bodyRadius(pair[1]), symbolic.Vector{rb})
		out = append(out, l)
	}

	for k, lim := range c.JointLimits {
		idx := strconv.Itoa(k)
		lower, err := leaf.NewLimitAvoidance("limit_"+idx+"_lower", p.q, p.qdot, k, lim[0], false, p.cfg.Limit)
		if err != nil {
			return nil, err
		}
		upper, err := leaf.NewLimitAvoidance("limit_"+idx+"_upper", p.q, p.qdot, k, lim[1], true, p.cfg.Limit)
		if err != nil {
			return nil, err
		}
		out = append(out, lower, upper)
	}

	if p.restPose != nil {
		l, err := leaf.NewRedundancySolver("redundancy", p.q, p.qdot, p.restPose, p.restLambda)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if p.cfg.BaseInertia > 0 {
		l, err := leaf.NewBaseInertia("base_inertia", p.q, p.qdot, p.cfg.BaseInertia)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return append(out, p.extra...), nil
}

func (p *Planner) goalLeaf(i int, sg SubGoal) (*leaf.Leaf, error) {
	if sg.ChildLink == "" {
		return nil, errors.Wrap(ErrInvalidGoal, "no child link")
	}
	pos, err := p.position(sg.ChildLink)
	if err != nil {
		return nil, err
	}
	if sg.ParentLink != "" && sg.ParentLink != "root" {
		parent, err := p.position(sg.ParentLink)
		if err != nil {
			return nil, err
		}
		if len(parent) != len(pos) {
			return nil, errors.Wrapf(ErrInvalidGoal, "parent %q and child %q differ in dimension", sg.ParentLink, sg.ChildLink)
		}
		pos = pos.Sub(parent)
	}
	if len(sg.Indices) > 0 {
		for _, k := range sg.Indices {
			if k < 0 || k >= len(pos) {
				return nil, errors.Wrapf(ErrInvalidGoal, "index %d out of range for %d dimensional link", k, len(pos))
			}
		}
		pos = pos.Select(sg.Indices)
	}
	d := len(pos)

	name := "goal_" + strconv.Itoa(i)
	wName := goalParam("weight", i)
	w := symbolic.Var(wName)
	p.addInput(wName, symbolic.Vector{w})

	switch sg.Type {
	case Static:
		if sg.DesiredPosition != nil && len(sg.DesiredPosition) != d {
			return nil, errors.Wrapf(ErrInvalidGoal, "desired position has %d components, goal is %d dimensional", len(sg.DesiredPosition), d)
		}
		x := symbolic.Vars(goalParam("x", i), d)
		p.addInput(goalParam("x", i), x)
		m, err := diffmap.New(pos.Sub(x), p.q, p.qdot)
		if err != nil {
			return nil, err
		}
		switch sg.Metric {
		case MetricVariable:
			return leaf.NewAttractor(name, m, w, p.cfg.Attractor)
		case MetricQuadratic:
			return leaf.NewQuadraticAttractor(name, m, w, p.cfg.QuadraticGain)
		case MetricExponential:
			return leaf.NewExponentialAttractor(name, m, w, p.cfg.ExponentialRate, p.cfg.Damper)
		}
		return nil, errors.Wrapf(ErrInvalidGoal, "metric %s", sg.Metric)

	case TimeVariant:
		if sg.Desired == nil {
			return nil, errors.Wrap(ErrInvalidGoal, "time-variant goal without desired trajectory")
		}
		p.needTime = true
		return leaf.NewTimeVariantAttractor(name, pos, p.q, p.qdot, sg.Desired(p.t), p.t, w, p.cfg.Attractor)

	case DynamicGoal:
		ref := p.reference(i, d)
		return leaf.NewDynamicAttractor(name, pos, p.q, p.qdot, ref, w, p.cfg.Attractor.K)

	case SplineGoal:
		if sg.Trajectory == nil {
			return nil, errors.Wrap(ErrInvalidGoal, "spline goal without trajectory")
		}
		ref := p.reference(i, d)
		s := splineRef{traj: sg.Trajectory, x: goalParam("x", i), xdot: goalParam("xdot", i), xdd: goalParam("xddot", i)}
		p.internal[s.x], p.internal[s.xdot], p.internal[s.xdd] = true, true, true
		p.splines = append(p.splines, s)
		p.needTime = true
		return leaf.NewSplineAttractor(name, pos, p.q, p.qdot, ref, sg.Trajectory, w, p.cfg.Attractor)
	}
	return nil, errors.Wrapf(ErrInvalidGoal, "goal type %s", sg.Type)
}

func (p *Planner) reference(i, d int) diffmap.Reference {
	ref := diffmap.Reference{
		X:     symbolic.Vars(goalParam("x", i), d),
		Xdot:  symbolic.Vars(goalParam("xdot", i), d),
		Xddot: symbolic.Vars(goalParam("xddot", i), d),
	}
	p.addInput(goalParam("x", i), ref.X)
	p.addInput(goalParam("xdot", i), ref.Xdot)
	p.addInput(goalParam("xddot", i), ref.Xddot)
	return ref
}
