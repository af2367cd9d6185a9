package symbolic

import (
	"fmt"

	"github.com/pkg/errors"
)

type Vector []*Expr

// Matrix is row-major; every row has the same length.
type Matrix [][]*Expr

// Vars declares n scalar variables named name_0 .. name_{n-1}.
func Vars(name string, n int) Vector {
	v := make(Vector, n)
	for i := range v {
		v[i] = Var(fmt.Sprintf("%s_%d", name, i))
	}
	return v
}

func ConstVector(values ...float64) Vector {
	v := make(Vector, len(values))
	for i, x := range values {
		v[i] = Const(x)
	}
	return v
}

func ZeroVector(n int) Vector {
	v := make(Vector, n)
	for i := range v {
		v[i] = zero
	}
	return v
}

func (v Vector) Add(o Vector) Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = Add(v[i], o[i])
	}
	return r
}

func (v Vector) Sub(o Vector) Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = Sub(v[i], o[i])
	}
	return r
}

func (v Vector) Scale(s *Expr) Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = Mul(s, v[i])
	}
	return r
}

func (v Vector) Neg() Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = Neg(v[i])
	}
	return r
}

func (v Vector) Dot(o Vector) *Expr {
	acc := zero
	for i := range v {
		acc = Add(acc, Mul(v[i], o[i]))
	}
	return acc
}

// normFloor keeps the norm differentiable at the origin.
const normFloor = 1e-12

// Norm is the euclidean norm, smoothed by a tiny floor under the root.
func (v Vector) Norm() *Expr {
	return Sqrt(Add(v.Dot(v), Const(normFloor)))
}

// Select picks the components at the given indices.
func (v Vector) Select(indices []int) Vector {
	r := make(Vector, len(indices))
	for i, idx := range indices {
		r[i] = v[idx]
	}
	return r
}

// Names returns the variable names of v; non-variables yield "".
func (v Vector) Names() []string {
	names := make([]string, len(v))
	for i, e := range v {
		if e.op == OpVar {
			names[i] = e.name
		}
	}
	return names
}

func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]*Expr, cols)
		for j := range m[i] {
			m[i][j] = zero
		}
	}
	return m
}

func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = one
	}
	return m
}

// Diagonal returns s on the diagonal of an n x n matrix.
func Diagonal(n int, s *Expr) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = s
	}
	return m
}

func (m Matrix) Rows() int { return len(m) }

func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

func (m Matrix) T() Matrix {
	r := NewMatrix(m.Cols(), m.Rows())
	for i := range m {
		for j := range m[i] {
			r[j][i] = m[i][j]
		}
	}
	return r
}

func (m Matrix) MulVec(v Vector) Vector {
	r := make(Vector, len(m))
	for i := range m {
		acc := zero
		for j := range m[i] {
			acc = Add(acc, Mul(m[i][j], v[j]))
		}
		r[i] = acc
	}
	return r
}

func (m Matrix) Mul(o Matrix) Matrix {
	r := NewMatrix(m.Rows(), o.Cols())
	for i := range r {
		for j := range r[i] {
			acc := zero
			for k := range o {
				acc = Add(acc, Mul(m[i][k], o[k][j]))
			}
			r[i][j] = acc
		}
	}
	return r
}

func (m Matrix) Add(o Matrix) Matrix {
	r := NewMatrix(m.Rows(), m.Cols())
	for i := range r {
		for j := range r[i] {
			r[i][j] = Add(m[i][j], o[i][j])
		}
	}
	return r
}

func (m Matrix) Scale(s *Expr) Matrix {
	r := NewMatrix(m.Rows(), m.Cols())
	for i := range r {
		for j := range r[i] {
			r[i][j] = Mul(s, m[i][j])
		}
	}
	return r
}

// Quadratic returns v^T m v.
func (m Matrix) Quadratic(v Vector) *Expr {
	return v.Dot(m.MulVec(v))
}

// Congruence returns j^T m j.
func (m Matrix) Congruence(j Matrix) Matrix {
	return j.T().Mul(m.Mul(j))
}

// Flatten returns the entries row by row.
func (m Matrix) Flatten() Vector {
	r := make(Vector, 0, m.Rows()*m.Cols())
	for i := range m {
		r = append(r, m[i]...)
	}
	return r
}

// CheckShape reports ErrDimension unless m is rows x cols.
func (m Matrix) CheckShape(rows, cols int) error {
	if m.Rows() != rows || (rows > 0 && m.Cols() != cols) {
		return errors.Wrapf(ErrDimension, "want %dx%d, got %dx%d", rows, cols, m.Rows(), m.Cols())
	}
	return nil
}
