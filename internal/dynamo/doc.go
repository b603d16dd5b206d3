// Package dynamo provides the core value types shared by the tiltball packages.
//
// The package is deliberately free of behaviour; it only names things:
//
//   - [Sample]: one externally supplied acceleration reading
//   - [Position], [Vec2]: observations published by the simulation
//   - [Field]: the rectangular region the ball is confined to
//   - [Update]: what observers receive after every state change
//   - [Source]: producers of samples
//   - [Observer], [Metric]: consumers of updates
//
// # Units
//
// Positions and sizes share one linear unit (pixels or abstract units),
// accelerations are in that unit per second squared and timestamps are
// integer nanoseconds. Axis inversion and gravity scaling belong to the
// sample source, never to the kinematics.
package dynamo
