package metrics

import "github.com/san-kum/fabrics/internal/dynamo"

// LimitCompliance is the fraction of ticks with every joint inside its
// limits.
type LimitCompliance struct {
	name       string
	limits     [][2]float64
	violations int
	samples    int
}

func NewLimitCompliance(limits [][2]float64) *LimitCompliance {
	return &LimitCompliance{
		name:   "limit_compliance",
		limits: limits,
	}
}

func (l *LimitCompliance) Name() string {
	return l.name
}

func (l *LimitCompliance) Observe(x dynamo.State, u dynamo.Control, t float64) {
	l.samples++
	for i, lim := range l.limits {
		if i >= len(x) {
			break
		}
		if x[i] < lim[0] || x[i] > lim[1] {
			l.violations++
			break
		}
	}
}

func (l *LimitCompliance) Value() float64 {
	if l.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(l.violations)/float64(l.samples)
}

func (l *LimitCompliance) Reset() {
	l.violations = 0
	l.samples = 0
}
