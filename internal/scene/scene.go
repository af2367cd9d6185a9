// Package scene describes the world a planner runs in: spherical obstacles,
// body radii of the collision links and the goal. It produces the per-tick
// parameter map ComputeAction consumes.
package scene

import (
	"math"
	"slices"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/planner"
)

var ErrInvalidScene = errors.New("scene: invalid scene")

// Obstacle is a sphere, or a circle in planar scenes, moving at a constant
// velocity.
type Obstacle struct {
	Center   r3.Vector
	Radius   float64
	Velocity r3.Vector
}

// At returns the center at time t.
func (o Obstacle) At(t float64) r3.Vector {
	return o.Center.Add(o.Velocity.Mul(t))
}

// Scene is the world of one run. Dim is the task-space dimension of the
// collision links, 2 or 3. BodyRadii holds the radius of every collision
// link.
type Scene struct {
	Dim                int
	Obstacles          []Obstacle
	BodyRadii          map[string]float64
	SelfCollisionPairs [][2]string
	Goal               planner.Goal
}

func (s *Scene) Validate() error {
	if s.Dim != 2 && s.Dim != 3 {
		return errors.Wrapf(ErrInvalidScene, "dimension %d", s.Dim)
	}
	for j, o := range s.Obstacles {
		if !(o.Radius > 0) {
			return errors.Wrapf(ErrInvalidScene, "obstacle %d radius %g", j, o.Radius)
		}
	}
	for link, r := range s.BodyRadii {
		if r < 0 {
			return errors.Wrapf(ErrInvalidScene, "link %q radius %g", link, r)
		}
	}
	for _, pair := range s.SelfCollisionPairs {
		for _, link := range pair {
			if _, ok := s.BodyRadii[link]; !ok {
				return errors.Wrapf(ErrInvalidScene, "self-collision link %q has no radius", link)
			}
		}
	}
	return nil
}

// CollisionLinks lists the links with a body radius in sorted order.
func (s *Scene) CollisionLinks() []string {
	links := make([]string, 0, len(s.BodyRadii))
	for link := range s.BodyRadii {
		links = append(links, link)
	}
	slices.Sort(links)
	return links
}

// Components builds the planner components for this scene.
func (s *Scene) Components(limits [][2]float64) planner.Components {
	return planner.Components{
		CollisionLinks:     s.CollisionLinks(),
		SelfCollisionPairs: s.SelfCollisionPairs,
		Goal:               s.Goal,
		JointLimits:        limits,
		NumberObstacles:    len(s.Obstacles),
	}
}

// Parameters fills dst with the obstacle, body and goal parameters at time t.
// Slices already in dst are reused.
func (s *Scene) Parameters(t float64, dst map[string][]float64) {
	for j, o := range s.Obstacles {
		idx := strconv.Itoa(j)
		dst["x_obst_"+idx] = components(o.At(t), s.Dim, dst["x_obst_"+idx])
		dst["radius_obst_"+idx] = scalar(o.Radius, dst["radius_obst_"+idx])
	}
	if len(s.Obstacles) > 0 {
		for link, r := range s.BodyRadii {
			dst["radius_body_"+link] = scalar(r, dst["radius_body_"+link])
		}
	}
	for _, pair := range s.SelfCollisionPairs {
		for _, link := range pair {
			dst["radius_body_"+link] = scalar(s.BodyRadii[link], dst["radius_body_"+link])
		}
	}
	s.Goal.Parameters(t, dst)
}

// Clearance is the smallest surface distance between a link and an obstacle
// at time t. It is +Inf without obstacles.
func (s *Scene) Clearance(t float64, positions map[string]r3.Vector) float64 {
	c := math.Inf(1)
	for _, o := range s.Obstacles {
		center := o.At(t)
		for link, r := range s.BodyRadii {
			p, ok := positions[link]
			if !ok {
				continue
			}
			c = math.Min(c, p.Sub(center).Norm()-o.Radius-r)
		}
	}
	return c
}

func components(v r3.Vector, dim int, dst []float64) []float64 {
	if len(dst) != dim {
		dst = make([]float64, dim)
	}
	dst[0], dst[1] = v.X, v.Y
	if dim > 2 {
		dst[2] = v.Z
	}
	return dst
}

func scalar(v float64, dst []float64) []float64 {
	if len(dst) != 1 {
		dst = make([]float64, 1)
	}
	dst[0] = v
	return dst
}
