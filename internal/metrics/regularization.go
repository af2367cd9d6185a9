package metrics

import "github.com/san-kum/fabrics/internal/dynamo"

// Regularizer counts the ticks on which the mass matrix needed
// regularization.
type Regularizer interface {
	Regularizations() int
}

// RegularizationRate is the fraction of ticks that regularized the mass
// matrix since the last Reset.
type RegularizationRate struct {
	name    string
	src     Regularizer
	base    int
	samples int
}

func NewRegularizationRate(src Regularizer) *RegularizationRate {
	return &RegularizationRate{name: "regularization_rate", src: src, base: src.Regularizations()}
}

func (r *RegularizationRate) Name() string { return r.name }

func (r *RegularizationRate) Observe(x dynamo.State, u dynamo.Control, t float64) {
	r.samples++
}

func (r *RegularizationRate) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return float64(r.src.Regularizations()-r.base) / float64(r.samples)
}

func (r *RegularizationRate) Reset() {
	r.base = r.src.Regularizations()
	r.samples = 0
}
