package leaf

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/interp"
)

// Trajectory is a natural cubic spline through waypoints, pre-sampled over
// a horizon. The waypoints are spread uniformly over the spline parameter
// s in [0, 1] and s = beta*t/horizon.
type Trajectory struct {
	dim     int
	horizon float64
	dt      float64
	beta    float64
	pos     [][]float64
	vel     [][]float64
	acc     [][]float64
	rest    []float64
}

// NewTrajectory fits one spline per axis through waypoints and samples
// position, velocity and acceleration every dt up to horizon.
func NewTrajectory(waypoints [][]float64, horizon, dt, beta float64) (*Trajectory, error) {
	if len(waypoints) < 2 {
		return nil, errors.Wrapf(ErrInvalidParam, "spline needs at least 2 waypoints, got %d", len(waypoints))
	}
	if horizon <= 0 || dt <= 0 || beta <= 0 {
		return nil, errors.Wrapf(ErrInvalidParam, "horizon %g, dt %g and beta %g must be positive", horizon, dt, beta)
	}
	dim := len(waypoints[0])
	for i, w := range waypoints {
		if len(w) != dim {
			return nil, errors.Wrapf(ErrDimension, "waypoint %d has %d components, want %d", i, len(w), dim)
		}
	}

	knots := make([]float64, len(waypoints))
	for i := range knots {
		knots[i] = float64(i) / float64(len(waypoints)-1)
	}
	splines := make([]interp.NaturalCubic, dim)
	ys := make([]float64, len(waypoints))
	for axis := 0; axis < dim; axis++ {
		for i, w := range waypoints {
			ys[i] = w[axis]
		}
		if err := splines[axis].Fit(knots, ys); err != nil {
			return nil, errors.Wrapf(err, "fit axis %d", axis)
		}
	}

	n := int(math.Ceil(horizon/dt)) + 1
	tr := &Trajectory{
		dim:     dim,
		horizon: horizon,
		dt:      dt,
		beta:    beta,
		pos:     make([][]float64, n),
		vel:     make([][]float64, n),
		acc:     make([][]float64, n),
		rest:    make([]float64, dim),
	}
	rate := beta / horizon
	for k := 0; k < n; k++ {
		s := math.Min(rate*float64(k)*dt, 1)
		tr.pos[k] = make([]float64, dim)
		tr.vel[k] = make([]float64, dim)
		for axis := range splines {
			tr.pos[k][axis] = splines[axis].Predict(s)
			if s < 1 {
				tr.vel[k][axis] = splines[axis].PredictDerivative(s) * rate
			}
		}
	}
	for k := 0; k < n; k++ {
		tr.acc[k] = make([]float64, dim)
		lo, hi := max(k-1, 0), min(k+1, n-1)
		if hi == lo {
			continue
		}
		span := float64(hi-lo) * dt
		for axis := 0; axis < dim; axis++ {
			tr.acc[k][axis] = (tr.vel[hi][axis] - tr.vel[lo][axis]) / span
		}
	}
	return tr, nil
}

func (tr *Trajectory) Dim() int            { return tr.dim }
func (tr *Trajectory) Horizon() float64    { return tr.horizon }
func (tr *Trajectory) Samples() int        { return len(tr.pos) }
func (tr *Trajectory) End() []float64      { return tr.pos[len(tr.pos)-1] }
func (tr *Trajectory) index(t float64) int { return min(max(int(math.Round(t/tr.dt)), 0), len(tr.pos)-1) }

// At returns the sample nearest to t. Past the horizon the trajectory holds
// its final position at rest. The slices must not be modified.
func (tr *Trajectory) At(t float64) (pos, vel, acc []float64) {
	if t >= tr.horizon {
		return tr.End(), tr.rest, tr.rest
	}
	k := tr.index(t)
	return tr.pos[k], tr.vel[k], tr.acc[k]
}
