package config

import (
	"sort"

	"github.com/pkg/errors"
)

var ErrUnknownParam = errors.New("config: unknown parameter")

// tunables maps dotted parameter names to the scalar fields they address.
func (c *Config) tunables() map[string]*float64 {
	p := &c.Planner
	return map[string]*float64{
		"attractor.k":                    &p.Attractor.K,
		"attractor.a_psi":                &p.Attractor.APsi,
		"attractor.a_m":                  &p.Attractor.AM,
		"attractor.mass_min":             &p.Attractor.MassMin,
		"attractor.mass_max":             &p.Attractor.MassMax,
		"damper.alpha_b":                 &p.Damper.AlphaB,
		"damper.alpha_eta":               &p.Damper.AlphaEta,
		"damper.alpha_shift":             &p.Damper.AlphaShift,
		"damper.beta_distant":            &p.Damper.BetaDistant,
		"damper.beta_close":              &p.Damper.BetaClose,
		"damper.radius_shift":            &p.Damper.RadiusShift,
		"collision.geometry_lambda":      &p.Collision.GeometryLambda,
		"collision.geometry_exponent":    &p.Collision.GeometryExponent,
		"collision.finsler_lambda":       &p.Collision.FinslerLambda,
		"collision.finsler_exponent":     &p.Collision.FinslerExponent,
		"self_collision.geometry_lambda": &p.SelfCollision.GeometryLambda,
		"self_collision.finsler_lambda":  &p.SelfCollision.FinslerLambda,
		"limit.geometry_lambda":          &p.Limit.GeometryLambda,
		"limit.finsler_lambda":           &p.Limit.FinslerLambda,
		"base_inertia":                   &p.BaseInertia,
		"quadratic_gain":                 &p.QuadraticGain,
		"exponential_rate":               &p.ExponentialRate,
		"fabric.regularization":          &p.Fabric.Regularization,
		"fabric.geometry_regularization": &p.Fabric.GeometryRegularization,
		"pd.kp":                          &c.PD.Kp,
		"pd.kd":                          &c.PD.Kd,
		"dt":                             &c.Dt,
		"duration":                       &c.Duration,
	}
}

// Tunables lists the parameter names accepted by SetParam.
func (c *Config) Tunables() []string {
	names := make([]string, 0)
	for name := range c.tunables() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) GetParam(name string) (float64, error) {
	ptr, ok := c.tunables()[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownParam, "%q", name)
	}
	return *ptr, nil
}

// SetParam assigns a tunable scalar. The config is not revalidated.
func (c *Config) SetParam(name string, v float64) error {
	ptr, ok := c.tunables()[name]
	if !ok {
		return errors.Wrapf(ErrUnknownParam, "%q", name)
	}
	*ptr = v
	return nil
}

// Clone copies c deep enough that SetParam and goal edits on the copy leave
// c untouched.
func (c *Config) Clone() *Config {
	out := *c
	out.LinkLengths = append([]float64(nil), c.LinkLengths...)
	out.Initial = append([]float64(nil), c.Initial...)
	out.Goals = make([]GoalConfig, len(c.Goals))
	copy(out.Goals, c.Goals)
	out.Obstacles = append([]ObstacleConfig(nil), c.Obstacles...)
	out.JointLimits = append([][2]float64(nil), c.JointLimits...)
	out.SelfCollisionPairs = append([][2]string(nil), c.SelfCollisionPairs...)
	if c.BodyRadii != nil {
		out.BodyRadii = make(map[string]float64, len(c.BodyRadii))
		for k, v := range c.BodyRadii {
			out.BodyRadii[k] = v
		}
	}
	if c.Redundancy != nil {
		red := *c.Redundancy
		red.Rest = append([]float64(nil), c.Redundancy.Rest...)
		out.Redundancy = &red
	}
	out.PD.Target = append([]float64(nil), c.PD.Target...)
	return &out
}
