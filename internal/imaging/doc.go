// Package imaging holds the raster primitives shared by tilt detection and
// export: decoding, grayscale conversion, Canny edges, downscaling, encoding
// and image comparison.
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward. Functions that return new
// images always return zero-origin bounds.
//
// # Thread Safety
//
// A Raster is immutable once created and may be shared between goroutines.
// Every function in this package is stateless.
//
// # Error Handling
//
// Decoding failures are reported as *DecodeError so that a caller working
// through several units can tell a bad input apart from an internal failure.
package imaging
