// Package analysis inspects recorded ball tracks and phone motion logs.
//
//   - [Resample] and [Dominant]: put an irregular track on a uniform clock
//     and find its strongest oscillation
//   - [Plot]: ASCII scatter of a track or a phase portrait
//   - [Integrate], [DetectSteps], [Heading] and [Trajectory]: offline
//     processing of phone motion logs, from drift under double integration
//     to a dead-reckoned walk
//
// # Oscillation
//
// A ball rocked by a periodic tilt swings at the tilt frequency until it
// starts hitting walls:
//
//	xs := analysis.Resample(track.Times, xOf(track), 50)
//	peak := analysis.Dominant(xs, 50)
//	fmt.Printf("%.2f Hz\n", peak.Frequency)
//
// # Walking
//
// Steps are peaks of the smoothed acceleration magnitude; each moves one
// stride along the heading integrated from gyro_z:
//
//	mag := analysis.Magnitude(log.AccelX, log.AccelY, log.AccelZ)
//	steps, _ := analysis.DetectSteps(log.Times, mag, analysis.DefaultStepOptions())
//	path := analysis.Trajectory(analysis.Heading(log.Times, log.GyroZ), steps, analysis.DefaultStride)
package analysis
