package symbolic

import (
	"math"

	"github.com/pkg/errors"
)

// Substitution maps variable names to replacement expressions.
type Substitution map[string]*Expr

// Bind pairs the variables of vars with the expressions of values.
func Bind(vars, values Vector) (Substitution, error) {
	if len(vars) != len(values) {
		return nil, errors.Wrapf(ErrDimension, "bind %d variables to %d values", len(vars), len(values))
	}
	s := make(Substitution, len(vars))
	for i, v := range vars {
		if v.op != OpVar {
			return nil, errors.Wrapf(ErrNotVariable, "bind position %d", i)
		}
		s[v.name] = values[i]
	}
	return s, nil
}

// Merge adds the entries of o to s.
func (s Substitution) Merge(o Substitution) Substitution {
	for k, v := range o {
		s[k] = v
	}
	return s
}

type substituter struct {
	sub  Substitution
	memo map[*Expr]*Expr
}

func (s *substituter) apply(e *Expr) *Expr {
	if r, ok := s.memo[e]; ok {
		return r
	}
	var r *Expr
	switch e.op {
	case OpConst:
		r = e
	case OpVar:
		if rep, ok := s.sub[e.name]; ok {
			r = rep
		} else {
			r = e
		}
	default:
		a := s.apply(e.a)
		var b *Expr
		if e.b != nil {
			b = s.apply(e.b)
		}
		if a == e.a && b == e.b {
			r = e
		} else {
			r = rebuild(e, a, b)
		}
	}
	s.memo[e] = r
	return r
}

func rebuild(e, a, b *Expr) *Expr {
	switch e.op {
	case OpAdd:
		return Add(a, b)
	case OpMul:
		return Mul(a, b)
	case OpDiv:
		return Div(a, b)
	case OpNeg:
		return Neg(a)
	case OpPow:
		return Pow(a, e.val)
	case OpMax:
		return Max(a, b)
	}
	return unary(e.op, a)
}

// Substitute replaces every variable named in sub.
func Substitute(e *Expr, sub Substitution) *Expr {
	s := &substituter{sub: sub, memo: make(map[*Expr]*Expr)}
	return s.apply(e)
}

// SubstituteVector replaces variables in every component, sharing work across them.
func SubstituteVector(v Vector, sub Substitution) Vector {
	s := &substituter{sub: sub, memo: make(map[*Expr]*Expr)}
	r := make(Vector, len(v))
	for i, e := range v {
		r[i] = s.apply(e)
	}
	return r
}

// SubstituteMatrix replaces variables in every entry.
func SubstituteMatrix(m Matrix, sub Substitution) Matrix {
	s := &substituter{sub: sub, memo: make(map[*Expr]*Expr)}
	r := NewMatrix(m.Rows(), m.Cols())
	for i := range m {
		for j := range m[i] {
			r[i][j] = s.apply(m[i][j])
		}
	}
	return r
}

// Eval evaluates e directly. It is meant for tests and one-off checks; hot
// paths should go through Compile.
func Eval(e *Expr, env map[string]float64) (float64, error) {
	memo := make(map[*Expr]float64)
	var walk func(*Expr) (float64, error)
	walk = func(n *Expr) (float64, error) {
		if v, ok := memo[n]; ok {
			return v, nil
		}
		var v float64
		switch n.op {
		case OpConst:
			v = n.val
		case OpVar:
			x, ok := env[n.name]
			if !ok {
				return math.NaN(), errors.Wrapf(ErrMissingParameter, "%q", n.name)
			}
			v = x
		default:
			x, err := walk(n.a)
			if err != nil {
				return x, err
			}
			y := 0.0
			if n.b != nil {
				if y, err = walk(n.b); err != nil {
					return y, err
				}
			}
			v = apply(n.op, x, y, n.val)
		}
		memo[n] = v
		return v, nil
	}
	return walk(e)
}
