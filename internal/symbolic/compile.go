package symbolic

import (
	"sort"

	"github.com/pkg/errors"
)

// Input declares a named vector parameter of a compiled function.
type Input struct {
	Name    string
	Symbols Vector
}

// Output is a row-major block of expressions produced by a compiled function.
type Output struct {
	Rows, Cols int
	Exprs      Vector
}

func ScalarOutput(e *Expr) Output   { return Output{Rows: 1, Cols: 1, Exprs: Vector{e}} }
func VectorOutput(v Vector) Output  { return Output{Rows: len(v), Cols: 1, Exprs: v} }
func MatrixOutput(m Matrix) Output  { return Output{Rows: m.Rows(), Cols: m.Cols(), Exprs: m.Flatten()} }
func (o Output) Size() int          { return len(o.Exprs) }
func (o Output) Shape() (int, int)  { return o.Rows, o.Cols }
func (o Output) isConsistent() bool { return o.Rows*o.Cols == len(o.Exprs) }

type instr struct {
	op   Op
	a, b int32
	p    float64
}

type inputSlot struct {
	name   string
	offset int
	size   int
}

type outputSlot struct {
	rows, cols int
	slots      []int32
	buf        []float64
}

// Function is a compiled evaluator. Inputs occupy the first slots of the
// work buffer, constants follow, then one slot per tape instruction.
type Function struct {
	inputs  []inputSlot
	tape    []instr
	base    int
	work    []float64
	outputs []outputSlot
}

type compiler struct {
	vars   map[string]int32
	consts map[float64]int32
	keys   map[instr]int32
	visit  map[*Expr]int32
	values []float64
	tape   []instr
	err    error
}

// Compile flattens outputs into a tape. Structurally identical
// subexpressions are evaluated once even if they were built separately.
func Compile(inputs []Input, outputs ...Output) (*Function, error) {
	c := &compiler{
		vars:   make(map[string]int32),
		consts: make(map[float64]int32),
		keys:   make(map[instr]int32),
		visit:  make(map[*Expr]int32),
	}

	f := &Function{inputs: make([]inputSlot, 0, len(inputs))}
	names := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if names[in.Name] {
			return nil, errors.Wrapf(ErrDuplicateVariable, "input %q", in.Name)
		}
		names[in.Name] = true
		slot := inputSlot{name: in.Name, offset: len(c.values), size: len(in.Symbols)}
		for i, s := range in.Symbols {
			if s == nil || s.op != OpVar {
				return nil, errors.Wrapf(ErrNotVariable, "input %q component %d", in.Name, i)
			}
			if _, dup := c.vars[s.name]; dup {
				return nil, errors.Wrapf(ErrDuplicateVariable, "%q in input %q", s.name, in.Name)
			}
			c.vars[s.name] = int32(len(c.values))
			c.values = append(c.values, 0)
		}
		f.inputs = append(f.inputs, slot)
	}

	// Constants and tape slots are assigned in a first pass, then the tape
	// slots are shifted past the constants.
	roots := make([][]int32, len(outputs))
	for k, out := range outputs {
		if !out.isConsistent() {
			return nil, errors.Wrapf(ErrDimension, "output %d is %dx%d with %d entries", k, out.Rows, out.Cols, len(out.Exprs))
		}
		roots[k] = make([]int32, len(out.Exprs))
		for i, e := range out.Exprs {
			roots[k][i] = c.emit(e)
			if c.err != nil {
				return nil, c.err
			}
		}
	}

	f.base = len(c.values)
	f.tape = c.tape
	for i := range f.tape {
		f.tape[i].a = c.resolve(f.tape[i].a, f.base)
		f.tape[i].b = c.resolve(f.tape[i].b, f.base)
	}
	f.work = make([]float64, f.base+len(f.tape))
	copy(f.work, c.values)

	f.outputs = make([]outputSlot, len(outputs))
	for k, out := range outputs {
		slots := roots[k]
		for i := range slots {
			slots[i] = c.resolve(slots[i], f.base)
		}
		f.outputs[k] = outputSlot{
			rows:  out.Rows,
			cols:  out.Cols,
			slots: slots,
			buf:   make([]float64, len(slots)),
		}
	}
	return f, nil
}

// Tape references are encoded as negative numbers until the constant
// section is sized.
func tapeRef(i int) int32 { return -int32(i) - 1 }

func (c *compiler) resolve(ref int32, base int) int32 {
	if ref < 0 {
		return int32(base) + (-ref - 1)
	}
	return ref
}

func (c *compiler) emit(e *Expr) int32 {
	if c.err != nil {
		return 0
	}
	if slot, ok := c.visit[e]; ok {
		return slot
	}
	var slot int32
	switch e.op {
	case OpConst:
		s, ok := c.consts[e.val]
		if !ok {
			s = int32(len(c.values))
			c.values = append(c.values, e.val)
			c.consts[e.val] = s
		}
		slot = s
	case OpVar:
		s, ok := c.vars[e.name]
		if !ok {
			c.err = errors.Wrapf(ErrUnboundVariable, "%q", e.name)
			return 0
		}
		slot = s
	default:
		a := c.emit(e.a)
		b := a
		if e.b != nil {
			b = c.emit(e.b)
		}
		if c.err != nil {
			return 0
		}
		key := instr{op: e.op, a: a, b: b, p: e.val}
		s, ok := c.keys[key]
		if !ok {
			s = tapeRef(len(c.tape))
			c.tape = append(c.tape, key)
			c.keys[key] = s
		}
		slot = s
	}
	c.visit[e] = slot
	return slot
}

// Evaluate runs the tape. params must contain exactly the declared inputs
// with matching lengths.
func (f *Function) Evaluate(params map[string][]float64) error {
	for _, in := range f.inputs {
		v, ok := params[in.name]
		if !ok {
			return errors.Wrapf(ErrMissingParameter, "%q", in.name)
		}
		if len(v) != in.size {
			return errors.Wrapf(ErrParameterSize, "%q: want %d, got %d", in.name, in.size, len(v))
		}
		copy(f.work[in.offset:in.offset+in.size], v)
	}
	if len(params) != len(f.inputs) {
		return f.unknownParameter(params)
	}

	w := f.work
	for i, ins := range f.tape {
		w[f.base+i] = apply(ins.op, w[ins.a], w[ins.b], ins.p)
	}

	for k := range f.outputs {
		out := &f.outputs[k]
		for i, s := range out.slots {
			out.buf[i] = w[s]
		}
	}
	return nil
}

func (f *Function) unknownParameter(params map[string][]float64) error {
	declared := make(map[string]bool, len(f.inputs))
	for _, in := range f.inputs {
		declared[in.name] = true
	}
	var unknown []string
	for name := range params {
		if !declared[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return errors.Wrapf(ErrUnknownParameter, "%q", unknown)
}

// Output returns the row-major values of output i from the last Evaluate.
// The slice is reused by the next call.
func (f *Function) Output(i int) []float64 { return f.outputs[i].buf }

func (f *Function) OutputShape(i int) (int, int) { return f.outputs[i].rows, f.outputs[i].cols }

func (f *Function) NumOutputs() int { return len(f.outputs) }

// InputNames lists the declared inputs in declaration order.
func (f *Function) InputNames() []string {
	names := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		names[i] = in.name
	}
	return names
}

// InputSize returns the declared length of the named input, or -1.
func (f *Function) InputSize(name string) int {
	for _, in := range f.inputs {
		if in.name == name {
			return in.size
		}
	}
	return -1
}

// Instructions returns the tape length.
func (f *Function) Instructions() int { return len(f.tape) }
