package integrators

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/dynamo"
)

var ErrUnknownIntegrator = errors.New("integrators: unknown integrator")

var registry = map[string]func() dynamo.Integrator{
	"euler":         func() dynamo.Integrator { return NewEuler() },
	"semi_implicit": func() dynamo.Integrator { return NewSemiImplicitEuler() },
	"rk4":           func() dynamo.Integrator { return NewRK4() },
	"rk45":          func() dynamo.Integrator { return NewRK45() },
	"verlet":        func() dynamo.Integrator { return NewVerlet() },
	"leapfrog":      func() dynamo.Integrator { return NewLeapfrog() },
}

// New returns a fresh integrator. Integrators keep scratch buffers, so
// concurrent runs need their own.
func New(name string) (dynamo.Integrator, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownIntegrator, "%q", name)
	}
	return f(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
