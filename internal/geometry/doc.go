// Package geometry holds per-page transform state and applies it to rasters.
//
// A PageTransformState is a rotation in degrees (positive = clockwise on
// screen), an offset in pixels (x right, y up) and two mirror flags. Apply
// draws a source raster onto a canvas large enough to hold it at any angle,
// composing the affine transform in a fixed order:
//
//	translate to canvas centre → mirror → rotate → translate by (−w/2 + offX, −h/2 − offY)
//
// The offset's y is negated because pixel rows grow downwards while a
// positive y offset means "move up". PageMatrix expresses the same state in
// PDF user space, where y grows upwards and the page size does not change.
package geometry
