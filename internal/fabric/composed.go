package fabric

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/fabrics/internal/symbolic"
)

// Options tune the numeric solve.
type Options struct {
	// GeometryRegularization is added to M_g before solving for h_q.
	GeometryRegularization float64 `yaml:"geometry_regularization"`
	// Regularization is the first epsilon tried when the total mass
	// matrix is singular or badly conditioned. It grows tenfold per retry.
	Regularization float64 `yaml:"regularization"`
	MaxCondition   float64 `yaml:"max_condition"`
	// RestTolerance is the qdot^T M_g qdot below which the system is at rest
	// and the energizing term is skipped.
	RestTolerance float64 `yaml:"rest_tolerance"`
}

func DefaultOptions() Options {
	return Options{
		GeometryRegularization: 1e-6,
		Regularization:         1e-6,
		MaxCondition:           1e12,
		RestTolerance:          1e-8,
	}
}

const maxEscalations = 8

// Diagnostics describe the last Evaluate call.
type Diagnostics struct {
	EnergyScale    float64
	AtRest         bool
	Damping        float64
	Regularized    bool
	Regularization float64
	Condition      float64
}

// output indices in the compiled function
const (
	outMg = iota
	outFg
	outFe
	outMf
	outFf
	outDamping
	outN
	outNBias
)

// Composed is a compiled fabric. It keeps scratch space between calls and
// must not be shared between goroutines.
type Composed struct {
	fn     *symbolic.Function
	opts   Options
	logger *zap.Logger

	n, m        int
	hasGeometry bool
	relation    bool
	leaves      []string

	mg, mf     *mat.SymDense
	fg, fe, ff *mat.VecDense
	rel        *mat.Dense
	relBias    *mat.VecDense

	mt, reg, mu     *mat.SymDense
	scratch         *mat.SymDense
	scratchU        *mat.SymDense
	qdot, hq, ft    *mat.VecDense
	work, rhs, qdd  *mat.VecDense
	rhsU, qudd      *mat.VecDense
	mrel, nmn       *mat.Dense
	chol            mat.Cholesky
	out             []float64
	diag            Diagnostics
	regularizations int
}

// Compile builds the evaluator. The inputs q and qdot (and qudot with a
// non-holonomic relation) are declared first, extra follow in order.
func (c *Composition) Compile(opts Options, logger *zap.Logger, extra ...symbolic.Input) (*Composed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	inputs := []symbolic.Input{{Name: InputQ, Symbols: c.q}, {Name: InputQdot, Symbols: c.qdot}}
	if c.Relation != nil {
		inputs = append(inputs, symbolic.Input{Name: InputQudot, Symbols: c.Relation.Qudot})
	}
	inputs = append(inputs, extra...)

	outputs := []symbolic.Output{
		symbolic.MatrixOutput(c.Geometry.M),
		symbolic.VectorOutput(c.Geometry.F),
		symbolic.VectorOutput(c.GeometryEnergy),
		symbolic.MatrixOutput(c.Forcing.M),
		symbolic.VectorOutput(c.Forcing.F),
		symbolic.ScalarOutput(c.Damping),
	}
	if c.Relation != nil {
		outputs = append(outputs, symbolic.MatrixOutput(c.Relation.N), symbolic.VectorOutput(c.RelationBias))
	}
	fn, err := symbolic.Compile(inputs, outputs...)
	if err != nil {
		return nil, errors.Wrap(err, "compile fabric")
	}

	n := len(c.q)
	cp := &Composed{
		fn:          fn,
		opts:        opts,
		logger:      logger,
		n:           n,
		m:           n,
		hasGeometry: c.hasGeometry,
		leaves:      c.leaves,
		mg:          mat.NewSymDense(n, fn.Output(outMg)),
		fg:          mat.NewVecDense(n, fn.Output(outFg)),
		fe:          mat.NewVecDense(n, fn.Output(outFe)),
		mf:          mat.NewSymDense(n, fn.Output(outMf)),
		ff:          mat.NewVecDense(n, fn.Output(outFf)),
		mt:          mat.NewSymDense(n, nil),
		reg:         mat.NewSymDense(n, nil),
		scratch:     mat.NewSymDense(n, nil),
		qdot:        mat.NewVecDense(n, nil),
		hq:          mat.NewVecDense(n, nil),
		ft:          mat.NewVecDense(n, nil),
		work:        mat.NewVecDense(n, nil),
		rhs:         mat.NewVecDense(n, nil),
		qdd:         mat.NewVecDense(n, nil),
	}
	if r := c.Relation; r != nil {
		m := len(r.Qudot)
		cp.relation = true
		cp.m = m
		cp.rel = mat.NewDense(n, m, fn.Output(outN))
		cp.relBias = mat.NewVecDense(n, fn.Output(outNBias))
		cp.mu = mat.NewSymDense(m, nil)
		cp.scratchU = mat.NewSymDense(m, nil)
		cp.rhsU = mat.NewVecDense(m, nil)
		cp.qudd = mat.NewVecDense(m, nil)
		cp.mrel = mat.NewDense(n, m, nil)
		cp.nmn = mat.NewDense(m, m, nil)
	}
	cp.out = make([]float64, cp.m)

	logger.Info("compiled fabric",
		zap.Int("dim", n),
		zap.Int("actuated", cp.m),
		zap.Strings("leaves", c.leaves),
		zap.Int("instructions", fn.Instructions()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return cp, nil
}

func (c *Composed) Dim() int                     { return c.n }
func (c *Composed) ActionDim() int               { return c.m }
func (c *Composed) Leaves() []string             { return c.leaves }
func (c *Composed) Function() *symbolic.Function { return c.fn }
func (c *Composed) Diagnostics() Diagnostics     { return c.diag }

// Regularizations counts the solves that needed regularization so far.
func (c *Composed) Regularizations() int { return c.regularizations }

// Evaluate returns the acceleration for params: qddot, or qudot_dot with a
// non-holonomic relation. The returned slice is reused by the next call.
func (c *Composed) Evaluate(params map[string][]float64) ([]float64, error) {
	if err := c.fn.Evaluate(params); err != nil {
		return nil, err
	}
	c.diag = Diagnostics{EnergyScale: 1}
	copy(c.qdot.RawVector().Data, params[InputQdot])

	// geometry solution h_q = (M_g + eps_h I)^-1 f_g
	c.hq.Zero()
	if c.hasGeometry {
		c.reg.CopySym(c.mg)
		addDiagonal(c.reg, c.opts.GeometryRegularization)
		if err := c.solveRegularized(c.reg, c.fg, c.hq, "geometry"); err != nil {
			return nil, err
		}
	}

	// M_g vanishes without geometry leaves, so rest uses the full metric
	c.mt.AddSym(c.mg, c.mf)
	c.diag.AtRest = mat.Inner(c.qdot, c.mt, c.qdot) < c.opts.RestTolerance

	// M_g (h_q - a*qdot)
	a, rest := Energize(c.mg, c.fe, c.hq, c.qdot, c.opts.RestTolerance)
	c.diag.EnergyScale = a
	c.work.CopyVec(c.hq)
	if !rest {
		c.work.AddScaledVec(c.work, -a, c.qdot)
	}
	c.ft.MulVec(c.mg, c.work)
	c.ft.AddVec(c.ft, c.ff)

	b := c.fn.Output(outDamping)[0]
	c.diag.Damping = b
	if b != 0 {
		c.work.MulVec(c.mt, c.qdot)
		c.ft.AddScaledVec(c.ft, b, c.work)
	}

	if c.relation {
		return c.solveActuated()
	}

	c.rhs.ScaleVec(-1, c.ft)
	if err := c.solveRegularized(c.mt, c.rhs, c.qdd, "total"); err != nil {
		return nil, err
	}
	return c.finish(c.qdd)
}

// solveActuated projects the system onto qdot = N*qudot:
// N^T M N qudot_dot = -N^T (f + M*Ndot*qudot).
func (c *Composed) solveActuated() ([]float64, error) {
	c.work.MulVec(c.mt, c.relBias)
	c.work.AddVec(c.work, c.ft)
	c.rhsU.MulVec(c.rel.T(), c.work)
	c.rhsU.ScaleVec(-1, c.rhsU)

	c.mrel.Mul(c.mt, c.rel)
	c.nmn.Mul(c.rel.T(), c.mrel)
	for i := 0; i < c.m; i++ {
		for j := i; j < c.m; j++ {
			c.mu.SetSym(i, j, 0.5*(c.nmn.At(i, j)+c.nmn.At(j, i)))
		}
	}
	if err := c.solveRegularized(c.mu, c.rhsU, c.qudd, "actuated"); err != nil {
		return nil, err
	}
	return c.finish(c.qudd)
}

func (c *Composed) finish(v *mat.VecDense) ([]float64, error) {
	for i := range c.out {
		x := v.AtVec(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, errors.Wrapf(ErrNonFinite, "component %d is %v", i, x)
		}
		c.out[i] = x
	}
	return c.out, nil
}

// Energize returns the coefficient a that keeps the geometry energy
// constant along qddot = -h + a*qdot:
//
//	a = qdot^T (M h - f_e) / (qdot^T M qdot)
//
// Below restTol the system is at rest, a is reported as 1 and rest is true.
func Energize(m mat.Symmetric, fe, h, qdot mat.Vector, restTol float64) (a float64, rest bool) {
	den := mat.Inner(qdot, m, qdot)
	if den < restTol {
		return 1, true
	}
	return (mat.Inner(qdot, m, h) - mat.Dot(qdot, fe)) / den, false
}

func addDiagonal(s *mat.SymDense, eps float64) {
	for i := 0; i < s.SymmetricDim(); i++ {
		s.SetSym(i, i, s.At(i, i)+eps)
	}
}

// solveRegularized solves a*x = b by Cholesky. A singular or badly
// conditioned a is retried with growing eps*I added to the diagonal.
func (c *Composed) solveRegularized(a *mat.SymDense, b, x *mat.VecDense, system string) error {
	cond := math.Inf(1)
	if c.chol.Factorize(a) {
		cond = c.chol.Cond()
		if cond <= c.opts.MaxCondition {
			c.diag.Condition = cond
			return c.solveTo(x, b)
		}
	}

	scratch := c.scratch
	if a.SymmetricDim() != c.n {
		scratch = c.scratchU
	}
	eps := c.opts.Regularization
	for i := 0; i < maxEscalations; i++ {
		scratch.CopySym(a)
		addDiagonal(scratch, eps)
		if c.chol.Factorize(scratch) {
			c.diag.Regularized = true
			c.diag.Regularization = eps
			c.diag.Condition = c.chol.Cond()
			c.regularizations++
			c.logger.Warn("regularized mass matrix",
				zap.String("system", system),
				zap.Float64("epsilon", eps),
				zap.Float64("condition", cond),
			)
			return c.solveTo(x, b)
		}
		eps *= 10
	}
	return errors.Wrapf(ErrSingular, "%s mass matrix after eps=%g", system, eps/10)
}

// solveTo runs the factorized solve. A mat.Condition error still carries a
// usable solution and is left to the non-finite check.
func (c *Composed) solveTo(x, b *mat.VecDense) error {
	err := c.chol.SolveVecTo(x, b)
	var cond mat.Condition
	if errors.As(err, &cond) {
		return nil
	}
	return err
}
