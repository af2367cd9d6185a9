// Package control provides the controllers that command a simulated robot.
//
// Controllers implement the [dynamo.Controller] interface:
//
//   - [Fabric]: evaluates a fabric planner every tick
//   - [PD]: joint-space proportional-derivative baseline
//   - [None]: zero command
//
// # Usage
//
//	ctrl := control.NewFabric(p, sc, robot, logger)
//	sim := dynamo.New(robot, integ, ctrl)
//	// Controller.Compute is called each timestep
//
// Controllers implementing [dynamo.Configurable] support live tuning.
package control
