package symbolic

import (
	"fmt"
	"math"
	"strconv"
)

type Op uint8

const (
	OpConst Op = iota
	OpVar
	OpAdd
	OpMul
	OpDiv
	OpNeg
	OpPow
	OpExp
	OpLog
	OpSqrt
	OpSin
	OpCos
	OpTanh
	OpAbs
	OpSign
	OpHeaviside
	OpMax
)

var opNames = [...]string{
	OpConst:     "const",
	OpVar:       "var",
	OpAdd:       "+",
	OpMul:       "*",
	OpDiv:       "/",
	OpNeg:       "neg",
	OpPow:       "pow",
	OpExp:       "exp",
	OpLog:       "log",
	OpSqrt:      "sqrt",
	OpSin:       "sin",
	OpCos:       "cos",
	OpTanh:      "tanh",
	OpAbs:       "abs",
	OpSign:      "sign",
	OpHeaviside: "heaviside",
	OpMax:       "max",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Expr is an immutable expression node. For OpConst val holds the value, for
// OpPow it holds the constant exponent.
type Expr struct {
	op   Op
	val  float64
	name string
	a, b *Expr
}

var (
	zero = &Expr{op: OpConst, val: 0}
	one  = &Expr{op: OpConst, val: 1}
)

func Const(v float64) *Expr {
	switch v {
	case 0:
		return zero
	case 1:
		return one
	}
	return &Expr{op: OpConst, val: v}
}

func Zero() *Expr { return zero }
func One() *Expr  { return one }

func Var(name string) *Expr {
	return &Expr{op: OpVar, name: name}
}

func (e *Expr) Op() Op       { return e.op }
func (e *Expr) Name() string { return e.name }

// Value returns the constant value and whether e is a constant.
func (e *Expr) Value() (float64, bool) {
	if e.op == OpConst {
		return e.val, true
	}
	return 0, false
}

func (e *Expr) IsVar() bool { return e.op == OpVar }

func (e *Expr) isConst(v float64) bool { return e.op == OpConst && e.val == v }

func Add(a, b *Expr) *Expr {
	if a.op == OpConst && b.op == OpConst {
		return Const(a.val + b.val)
	}
	if a.isConst(0) {
		return b
	}
	if b.isConst(0) {
		return a
	}
	return &Expr{op: OpAdd, a: a, b: b}
}

func Sub(a, b *Expr) *Expr {
	if a.op == OpConst && b.op == OpConst {
		return Const(a.val - b.val)
	}
	if b.isConst(0) {
		return a
	}
	if a == b {
		return zero
	}
	return Add(a, Neg(b))
}

func Mul(a, b *Expr) *Expr {
	if a.op == OpConst && b.op == OpConst {
		return Const(a.val * b.val)
	}
	if a.isConst(0) || b.isConst(0) {
		return zero
	}
	if a.isConst(1) {
		return b
	}
	if b.isConst(1) {
		return a
	}
	if a.isConst(-1) {
		return Neg(b)
	}
	if b.isConst(-1) {
		return Neg(a)
	}
	return &Expr{op: OpMul, a: a, b: b}
}

func Div(a, b *Expr) *Expr {
	if a.isConst(0) {
		return zero
	}
	if b.isConst(1) {
		return a
	}
	if a.op == OpConst && b.op == OpConst && b.val != 0 {
		return Const(a.val / b.val)
	}
	return &Expr{op: OpDiv, a: a, b: b}
}

func Neg(a *Expr) *Expr {
	if a.op == OpConst {
		return Const(-a.val)
	}
	if a.op == OpNeg {
		return a.a
	}
	return &Expr{op: OpNeg, a: a}
}

// Pow raises a to a constant power.
func Pow(a *Expr, p float64) *Expr {
	switch {
	case p == 0:
		return one
	case p == 1:
		return a
	case a.op == OpConst:
		return Const(math.Pow(a.val, p))
	}
	return &Expr{op: OpPow, val: p, a: a}
}

func Square(a *Expr) *Expr { return Pow(a, 2) }

func unary(op Op, a *Expr) *Expr {
	if a.op == OpConst {
		return Const(apply(op, a.val, 0, 0))
	}
	return &Expr{op: op, a: a}
}

func Exp(a *Expr) *Expr       { return unary(OpExp, a) }
func Log(a *Expr) *Expr       { return unary(OpLog, a) }
func Sqrt(a *Expr) *Expr      { return unary(OpSqrt, a) }
func Sin(a *Expr) *Expr       { return unary(OpSin, a) }
func Cos(a *Expr) *Expr       { return unary(OpCos, a) }
func Tanh(a *Expr) *Expr      { return unary(OpTanh, a) }
func Abs(a *Expr) *Expr       { return unary(OpAbs, a) }
func Sign(a *Expr) *Expr      { return unary(OpSign, a) }
func Heaviside(a *Expr) *Expr { return unary(OpHeaviside, a) }

func Max(a, b *Expr) *Expr {
	if a.op == OpConst && b.op == OpConst {
		return Const(math.Max(a.val, b.val))
	}
	if a == b {
		return a
	}
	return &Expr{op: OpMax, a: a, b: b}
}

// Sum folds terms left to right; an empty sum is zero.
func Sum(terms ...*Expr) *Expr {
	acc := zero
	for _, t := range terms {
		acc = Add(acc, t)
	}
	return acc
}

// apply evaluates a single operation. sign(0) is 0 and heaviside(0) is 0.5.
func apply(op Op, x, y, p float64) float64 {
	switch op {
	case OpAdd:
		return x + y
	case OpMul:
		return x * y
	case OpDiv:
		return x / y
	case OpNeg:
		return -x
	case OpPow:
		switch p {
		case 2:
			return x * x
		case 3:
			return x * x * x
		case -1:
			return 1 / x
		case 0.5:
			return math.Sqrt(x)
		}
		return math.Pow(x, p)
	case OpExp:
		return math.Exp(x)
	case OpLog:
		return math.Log(x)
	case OpSqrt:
		return math.Sqrt(x)
	case OpSin:
		return math.Sin(x)
	case OpCos:
		return math.Cos(x)
	case OpTanh:
		return math.Tanh(x)
	case OpAbs:
		return math.Abs(x)
	case OpSign:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	case OpHeaviside:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return 0
		}
		return 0.5
	case OpMax:
		return math.Max(x, y)
	}
	return math.NaN()
}

func (e *Expr) String() string {
	switch e.op {
	case OpConst:
		return strconv.FormatFloat(e.val, 'g', -1, 64)
	case OpVar:
		return e.name
	case OpAdd, OpMul, OpDiv:
		return fmt.Sprintf("(%s %s %s)", e.a, e.op, e.b)
	case OpNeg:
		return fmt.Sprintf("-%s", e.a)
	case OpPow:
		return fmt.Sprintf("(%s^%g)", e.a, e.val)
	case OpMax:
		return fmt.Sprintf("max(%s, %s)", e.a, e.b)
	}
	return fmt.Sprintf("%s(%s)", e.op, e.a)
}
