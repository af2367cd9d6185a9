package kinematics

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/symbolic"
)

// PlanarArm is a serial chain of revolute joints in the plane. Link k is
// the joint k origin, link0 the fixed base, and ee the tip of the last link.
type PlanarArm struct {
	lengths []float64
	links   []string
}

func NewPlanarArm(lengths ...float64) (*PlanarArm, error) {
	if len(lengths) == 0 {
		return nil, errors.Wrap(ErrDimension, "arm needs at least one link")
	}
	links := make([]string, 0, len(lengths)+1)
	for i, l := range lengths {
		if l <= 0 {
			return nil, errors.Errorf("kinematics: link %d length %g must be positive", i, l)
		}
		links = append(links, "link"+strconv.Itoa(i))
	}
	links = append(links, EndEffector)
	return &PlanarArm{lengths: append([]float64(nil), lengths...), links: links}, nil
}

func (a *PlanarArm) Dim() int           { return len(a.lengths) }
func (a *PlanarArm) Links() []string    { return a.links }
func (a *PlanarArm) Lengths() []float64 { return a.lengths }

func (a *PlanarArm) index(link string) (int, error) {
	if link == EndEffector {
		return len(a.lengths), nil
	}
	k, err := strconv.Atoi(strings.TrimPrefix(link, "link"))
	if err != nil || !strings.HasPrefix(link, "link") || k < 0 || k >= len(a.lengths) {
		return 0, errors.Wrapf(ErrUnknownLink, "%q", link)
	}
	return k, nil
}

// Fk sums the first k links with cumulative joint angles.
func (a *PlanarArm) Fk(q symbolic.Vector, link string) (symbolic.Vector, error) {
	if err := checkDim(q, len(a.lengths)); err != nil {
		return nil, err
	}
	k, err := a.index(link)
	if err != nil {
		return nil, err
	}
	x, y := symbolic.Zero(), symbolic.Zero()
	angle := symbolic.Zero()
	for i := 0; i < k; i++ {
		angle = symbolic.Add(angle, q[i])
		l := symbolic.Const(a.lengths[i])
		x = symbolic.Add(x, symbolic.Mul(l, symbolic.Cos(angle)))
		y = symbolic.Add(y, symbolic.Mul(l, symbolic.Sin(angle)))
	}
	return symbolic.Vector{x, y}, nil
}
