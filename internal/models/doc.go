// Package models holds the simulated robots the fabric planner drives.
//
// Every model is commanded by acceleration: the planner's qddot for
// holonomic robots, or the actuated acceleration for a differential drive.
package models
