// Package viz provides terminal views of the tilt ball.
//
//   - [Model]: live view; the keyboard stands in for the accelerometer and
//     every frame feeds one wall-clock stamped sample into a [sim.Controller]
//   - [Playback]: replays a stored track with scrubbing
//   - [Canvas]: braille raster, 2x4 dots per terminal cell
//
// # Key Bindings
//
//	Arrows/HJKL - Tilt the device (live)
//	0           - Level the device (live)
//	Space       - Pause/Resume
//	R           - Reset the ball (live) or rewind (playback)
//	[ ]         - Scrub (playback)
//	T           - Cycle color themes
//	Q           - Quit
package viz
