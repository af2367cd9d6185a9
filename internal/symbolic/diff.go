package symbolic

import "github.com/pkg/errors"

// differ differentiates with respect to one variable, sharing results across
// every expression it visits.
type differ struct {
	name string
	memo map[*Expr]*Expr
}

func newDiffer(v *Expr) (*differ, error) {
	if v == nil || v.op != OpVar {
		return nil, errors.Wrapf(ErrNotDifferentiable, "got %v", v)
	}
	return &differ{name: v.name, memo: make(map[*Expr]*Expr)}, nil
}

func (d *differ) diff(e *Expr) *Expr {
	if r, ok := d.memo[e]; ok {
		return r
	}
	r := d.rule(e)
	d.memo[e] = r
	return r
}

func (d *differ) rule(e *Expr) *Expr {
	switch e.op {
	case OpConst, OpSign, OpHeaviside:
		return zero
	case OpVar:
		if e.name == d.name {
			return one
		}
		return zero
	}

	da := d.diff(e.a)
	switch e.op {
	case OpAdd:
		return Add(da, d.diff(e.b))
	case OpMul:
		return Add(Mul(da, e.b), Mul(e.a, d.diff(e.b)))
	case OpDiv:
		db := d.diff(e.b)
		if db == zero {
			return Div(da, e.b)
		}
		return Sub(Div(da, e.b), Div(Mul(e.a, db), Square(e.b)))
	case OpMax:
		step := Heaviside(Sub(e.a, e.b))
		return Add(Mul(step, da), Mul(Sub(one, step), d.diff(e.b)))
	}

	if da == zero {
		return zero
	}
	switch e.op {
	case OpNeg:
		return Neg(da)
	case OpPow:
		return Mul(Mul(Const(e.val), Pow(e.a, e.val-1)), da)
	case OpExp:
		return Mul(e, da)
	case OpLog:
		return Div(da, e.a)
	case OpSqrt:
		return Div(da, Mul(Const(2), e))
	case OpSin:
		return Mul(Cos(e.a), da)
	case OpCos:
		return Neg(Mul(Sin(e.a), da))
	case OpTanh:
		return Mul(Sub(one, Square(e)), da)
	case OpAbs:
		return Mul(Sign(e.a), da)
	}
	panic("symbolic: no derivative rule for " + e.op.String())
}

// Derivative returns de/dv.
func Derivative(e, v *Expr) (*Expr, error) {
	d, err := newDiffer(v)
	if err != nil {
		return nil, err
	}
	return d.diff(e), nil
}

// Gradient returns the vector of partial derivatives of e with respect to x.
func Gradient(e *Expr, x Vector) (Vector, error) {
	g := make(Vector, len(x))
	for i, v := range x {
		d, err := newDiffer(v)
		if err != nil {
			return nil, errors.Wrapf(err, "gradient component %d", i)
		}
		g[i] = d.diff(e)
	}
	return g, nil
}

// Jacobian returns the len(f) x len(x) matrix df_i/dx_j.
func Jacobian(f, x Vector) (Matrix, error) {
	jac := NewMatrix(len(f), len(x))
	for j, v := range x {
		d, err := newDiffer(v)
		if err != nil {
			return nil, errors.Wrapf(err, "jacobian column %d", j)
		}
		for i := range f {
			jac[i][j] = d.diff(f[i])
		}
	}
	return jac, nil
}

// Hessian returns the jacobian of the gradient of e.
func Hessian(e *Expr, x Vector) (Matrix, error) {
	g, err := Gradient(e, x)
	if err != nil {
		return nil, err
	}
	return Jacobian(g, x)
}
