// Package dynamo provides the closed-loop primitives that drive a robot
// with a fabric planner.
//
//   - [State]: configuration followed by velocity
//   - [System]: robot model, dX/dt = f(X, u, t)
//   - [Integrator]: numerical stepper
//   - [Controller]: maps state to a command every tick
//   - [Simulator]: runs the loop and collects a [Result]
//
// # Example
//
//	robot := models.NewHolonomic("point_mass", 2)
//	ctrl := control.NewFabric(p, sc, robot, logger)
//	sim := dynamo.New(robot, integrators.NewVerlet(), ctrl)
//	result, _ := sim.Run(ctx, x0, cfg)
//
// # Thread Safety
//
// Simulators and planners are NOT thread-safe. [Ensemble] builds one
// simulator per run from a [Factory] and runs them concurrently.
package dynamo
