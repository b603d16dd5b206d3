// Package physics implements the kinematics of a single square ball moving
// inside a rectangular field.
//
// A [Ball] is advanced with constant-acceleration kinematics over a caller
// supplied time step and then clamped to the field. Clamping an axis zeroes
// that axis' velocity and acceleration, so the ball rests against a wall
// until the acceleration points away from it again.
//
// The first [Ball.Advance] after construction or [Ball.Reset] is a bootstrap
// step: it records the acceleration but does not move the ball, because no
// meaningful elapsed time exists for the very first sample.
//
//	b, _ := physics.NewBall(dynamo.Field{Width: 100, Height: 100, BallSize: 10})
//	b.Advance(10, 0, 0)   // bootstrap
//	b.Advance(10, 0, 1)   // b.Position().X == 50
package physics
