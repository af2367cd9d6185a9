// Package fabric composes leaves into a configuration-space fabric and
// solves it every tick.
//
// Composition is symbolic: each leaf's systems are pulled back into the
// configuration space and summed, geometry and forcing kept apart so the
// geometry can be energized. [Composition.Compile] turns the sums into a
// single evaluator and [Composed.Evaluate] runs the numeric part: the
// energizing coefficient, the damper and the regularized Cholesky solve.
package fabric

import (
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/lagrangian"
	"github.com/san-kum/fabrics/internal/leaf"
	"github.com/san-kum/fabrics/internal/symbolic"
)

// Names of the configuration inputs every compiled fabric declares.
const (
	InputQ     = "q"
	InputQdot  = "qdot"
	InputQudot = "qudot"
)

type damperSource struct {
	damper lagrangian.Damper
	x      symbolic.Vector
	energy *symbolic.Expr
}

// Relation is a velocity constraint qdot = N(q)*qudot between the full
// configuration velocity and the actuated velocity qudot.
type Relation struct {
	N     symbolic.Matrix
	Qudot symbolic.Vector
}

// Builder collects leaves over one configuration space.
type Builder struct {
	q, qdot  symbolic.Vector
	leaves   []*leaf.Leaf
	names    map[string]bool
	damper   *damperSource
	relation *Relation
}

func NewBuilder(q, qdot symbolic.Vector) (*Builder, error) {
	if len(q) == 0 || len(q) != len(qdot) {
		return nil, errors.Wrapf(ErrDimension, "q has %d entries, qdot has %d", len(q), len(qdot))
	}
	for i := range q {
		if !q[i].IsVar() || !qdot[i].IsVar() {
			return nil, errors.Wrapf(symbolic.ErrNotVariable, "configuration component %d", i)
		}
	}
	return &Builder{q: q, qdot: qdot, names: make(map[string]bool)}, nil
}

func (b *Builder) Q() symbolic.Vector       { return b.q }
func (b *Builder) Qdot() symbolic.Vector    { return b.qdot }
func (b *Builder) Dim() int                 { return len(b.q) }
func (b *Builder) Leaves() []*leaf.Leaf     { return b.leaves }
func (b *Builder) Relation() *Relation      { return b.relation }
func (b *Builder) HasLeaf(name string) bool { return b.names[name] }

// AddLeaf validates l and registers it. Leaf names are unique per builder.
func (b *Builder) AddLeaf(l *leaf.Leaf) error {
	if l == nil {
		return errors.Wrap(leaf.ErrInvalidLeaf, "nil leaf")
	}
	if err := l.Validate(); err != nil {
		return err
	}
	if b.names[l.Name()] {
		return errors.Wrapf(ErrDuplicateLeaf, "%q", l.Name())
	}
	if err := b.sameConfig(l.Map().Q(), l.Map().Qdot()); err != nil {
		return errors.Wrapf(err, "leaf %q", l.Name())
	}
	b.names[l.Name()] = true
	b.leaves = append(b.leaves, l)
	return nil
}

func (b *Builder) sameConfig(q, qdot symbolic.Vector) error {
	if len(q) != len(b.q) {
		return errors.Wrapf(ErrDimension, "configuration has %d entries, fabric has %d", len(q), len(b.q))
	}
	for i := range q {
		if q[i].Name() != b.q[i].Name() || qdot[i].Name() != b.qdot[i].Name() {
			return errors.Wrapf(ErrDimension, "configuration symbol %d is %s/%s, fabric uses %s/%s",
				i, q[i].Name(), qdot[i].Name(), b.q[i].Name(), b.qdot[i].Name())
		}
	}
	return nil
}

// SetDamper damps the fabric with d, evaluated at the configuration-space
// expressions x (goal offset) and energy. It overrides any leaf damper.
func (b *Builder) SetDamper(d lagrangian.Damper, x symbolic.Vector, energy *symbolic.Expr) {
	b.damper = &damperSource{damper: d, x: x, energy: energy}
}

// SetNonHolonomic restricts the fabric to qdot = n*qudot.
func (b *Builder) SetNonHolonomic(n symbolic.Matrix, qudot symbolic.Vector) error {
	if err := n.CheckShape(len(b.q), len(qudot)); err != nil {
		return errors.Wrap(ErrDimension, err.Error())
	}
	for i := range qudot {
		if !qudot[i].IsVar() {
			return errors.Wrapf(symbolic.ErrNotVariable, "actuated velocity component %d", i)
		}
	}
	b.relation = &Relation{N: n, Qudot: qudot}
	return nil
}

// Composition is the symbolic configuration-space fabric.
type Composition struct {
	q, qdot symbolic.Vector

	// Geometry holds M_g and f_g = sum J^T (M*h + M*bias).
	Geometry lagrangian.Spec
	// GeometryEnergy is f_e = sum J^T (f^L + M*bias), the force of the
	// summed geometry energies.
	GeometryEnergy symbolic.Vector
	// Forcing holds M_f and f_f = sum J^T (f^L + grad psi + M*bias).
	Forcing lagrangian.Spec
	// Damping is the damper coefficient b(q, qdot), zero without a damper.
	Damping *symbolic.Expr

	Relation *Relation
	// RelationBias is Ndot*qudot.
	RelationBias symbolic.Vector

	leaves      []string
	hasGeometry bool
}

func (c *Composition) Leaves() []string  { return c.leaves }
func (c *Composition) HasGeometry() bool { return c.hasGeometry }
func (c *Composition) Dim() int          { return len(c.q) }

// Compose derives every leaf, pulls it back and sums the results.
func (b *Builder) Compose() (*Composition, error) {
	if len(b.leaves) == 0 {
		return nil, ErrNoLeaves
	}
	n := len(b.q)
	c := &Composition{
		q:              b.q,
		qdot:           b.qdot,
		Geometry:       lagrangian.Zero(n),
		GeometryEnergy: symbolic.ZeroVector(n),
		Forcing:        lagrangian.Zero(n),
		Damping:        symbolic.Zero(),
	}

	src := b.damper
	for _, l := range b.leaves {
		sys, err := l.Derive()
		if err != nil {
			return nil, err
		}
		force, err := Pullback(sys.Force, l.Map(), l.X(), l.Xdot())
		if err != nil {
			return nil, errors.Wrapf(err, "pull back %s", l)
		}
		if l.IsGeometry() {
			energy, err := Pullback(sys.Energy, l.Map(), l.X(), l.Xdot())
			if err != nil {
				return nil, errors.Wrapf(err, "pull back %s energy", l)
			}
			c.Geometry = c.Geometry.Add(force)
			c.GeometryEnergy = c.GeometryEnergy.Add(energy.F)
			c.hasGeometry = true
		} else {
			c.Forcing = c.Forcing.Add(force)
		}
		c.leaves = append(c.leaves, l.Name())

		if src == nil && l.Damper() != nil {
			le, err := PullbackExpr(l.Energy(), l.Map(), l.X(), l.Xdot())
			if err != nil {
				return nil, err
			}
			src = &damperSource{damper: *l.Damper(), x: l.Map().Phi(), energy: le}
		}
	}
	if src != nil {
		c.Damping = src.damper.Coefficient(src.x, src.energy)
	}

	if r := b.relation; r != nil {
		nq, err := symbolic.Jacobian(r.N.MulVec(r.Qudot), b.q)
		if err != nil {
			return nil, errors.Wrap(err, "relation derivative")
		}
		c.Relation = r
		c.RelationBias = nq.MulVec(b.qdot)
	}
	return c, nil
}
