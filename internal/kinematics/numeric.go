package kinematics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/symbolic"
)

// Evaluator computes numeric link positions of a model. Planar links get a
// zero Z component.
type Evaluator struct {
	links []string
	index map[string]int
	fn    *symbolic.Function
	q     map[string][]float64
}

func NewEvaluator(m Model) (*Evaluator, error) {
	q := symbolic.Vars("q", m.Dim())
	links := m.Links()
	outputs := make([]symbolic.Output, len(links))
	index := make(map[string]int, len(links))
	for i, link := range links {
		p, err := m.Fk(q, link)
		if err != nil {
			return nil, err
		}
		if len(p) > 3 {
			return nil, errors.Wrapf(ErrDimension, "link %q is %d dimensional", link, len(p))
		}
		outputs[i] = symbolic.VectorOutput(p)
		index[link] = i
	}
	fn, err := symbolic.Compile([]symbolic.Input{{Name: "q", Symbols: q}}, outputs...)
	if err != nil {
		return nil, errors.Wrap(err, "compile forward kinematics")
	}
	return &Evaluator{links: links, index: index, fn: fn, q: map[string][]float64{"q": nil}}, nil
}

func (e *Evaluator) Links() []string { return e.links }

// Positions returns every link position at q in Links order.
func (e *Evaluator) Positions(q []float64) ([]r3.Vector, error) {
	e.q["q"] = q
	if err := e.fn.Evaluate(e.q); err != nil {
		return nil, err
	}
	out := make([]r3.Vector, len(e.links))
	for i := range e.links {
		out[i] = toVector(e.fn.Output(i))
	}
	return out, nil
}

// Position returns one link position at q.
func (e *Evaluator) Position(q []float64, link string) (r3.Vector, error) {
	i, ok := e.index[link]
	if !ok {
		return r3.Vector{}, errors.Wrapf(ErrUnknownLink, "%q", link)
	}
	e.q["q"] = q
	if err := e.fn.Evaluate(e.q); err != nil {
		return r3.Vector{}, err
	}
	return toVector(e.fn.Output(i)), nil
}

func toVector(v []float64) r3.Vector {
	var p r3.Vector
	if len(v) > 0 {
		p.X = v[0]
	}
	if len(v) > 1 {
		p.Y = v[1]
	}
	if len(v) > 2 {
		p.Z = v[2]
	}
	return p
}
