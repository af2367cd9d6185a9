package control

import (
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/dynamo"
)

var ErrUnknownParam = errors.New("control: unknown parameter")

// PD drives the configuration of a second-order robot toward Target with
// u = Kp*(target - q) - Kd*qdot. It ignores obstacles and serves as the
// baseline the fabric is compared against.
type PD struct {
	Kp     float64
	Kd     float64
	Target []float64
}

func NewPD(kp, kd float64, target []float64) *PD {
	return &PD{
		Kp:     kp,
		Kd:     kd,
		Target: append([]float64(nil), target...),
	}
}

func (p *PD) Compute(x dynamo.State, t float64) dynamo.Control {
	n := len(p.Target)
	u := make(dynamo.Control, n)
	if len(x) < 2*n {
		return u
	}
	for i := 0; i < n; i++ {
		u[i] = p.Kp*(p.Target[i]-x[i]) - p.Kd*x[n+i]
	}
	return u
}

// GetParams returns tunable parameters for live adjustment
func (p *PD) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": p.Kp,
		"Kd": p.Kd,
	}
}

// SetParam adjusts a PD gain
func (p *PD) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Kd":
		p.Kd = value
	default:
		return errors.Wrapf(ErrUnknownParam, "%q", name)
	}
	return nil
}
