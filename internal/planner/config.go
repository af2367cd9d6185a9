package planner

import (
	"github.com/san-kum/fabrics/internal/fabric"
	"github.com/san-kum/fabrics/internal/lagrangian"
	"github.com/san-kum/fabrics/internal/leaf"
)

// Config holds the leaf constants the planner uses when it turns
// components into leaves.
type Config struct {
	Attractor       leaf.AttractorParams `yaml:"attractor"`
	QuadraticGain   float64              `yaml:"quadratic_gain"`
	ExponentialRate float64              `yaml:"exponential_rate"`
	Damper          lagrangian.Damper    `yaml:"damper"`
	Collision       leaf.Barrier         `yaml:"collision"`
	SelfCollision   leaf.Barrier         `yaml:"self_collision"`
	Limit           leaf.Barrier         `yaml:"limit"`
	BaseInertia     float64              `yaml:"base_inertia"`
	Fabric          fabric.Options       `yaml:"fabric"`
}

func DefaultConfig() Config {
	return Config{
		Attractor:       leaf.DefaultAttractor(),
		QuadraticGain:   2,
		ExponentialRate: 0.5,
		Damper:          lagrangian.DefaultDamper(),
		Collision:       leaf.DefaultCollision(),
		SelfCollision:   leaf.DefaultCollision(),
		Limit:           leaf.DefaultLimit(),
		BaseInertia:     0.2,
		Fabric:          fabric.DefaultOptions(),
	}
}
