// Package viz draws a running fabric controller in the terminal.
//
// The view is a Bubble Tea program:
//
//   - [Model]: steps one experiment run and draws robot links, obstacles,
//     goal targets and the end-effector trail
//   - [Canvas]: Braille-based pixel canvas with per-cell layer colors
//   - a preset picker that edits planner constants before a run starts
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to initial state and parameters
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	Tab   - Select goal weight to tune
//	?     - Show help overlay
//	[]/   - Time travel (rewind/forward)
package viz
