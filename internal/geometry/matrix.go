package geometry

import (
	"math"

	"golang.org/x/image/math/f64"
)

// epsilon absorbs floating point noise before rounding canvas sizes up.
const epsilon = 1e-9

// Bounds returns the size of the axis-aligned box holding a w×h rectangle
// rotated by deg degrees:
//
//	newW = w·|cos θ| + h·|sin θ|
//	newH = w·|sin θ| + h·|cos θ|
func Bounds(w, h, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	c, s := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	return w*c + h*s, w*s + h*c
}

// CanvasSize is Bounds rounded up to whole pixels.
func CanvasSize(w, h int, deg float64) (int, int) {
	bw, bh := Bounds(float64(w), float64(h), deg)
	return int(math.Ceil(bw - epsilon)), int(math.Ceil(bh - epsilon))
}

func translate(tx, ty float64) f64.Aff3 {
	return f64.Aff3{1, 0, tx, 0, 1, ty}
}

func scale(sx, sy float64) f64.Aff3 {
	return f64.Aff3{sx, 0, 0, 0, sy, 0}
}

func rotate(rad float64) f64.Aff3 {
	c, s := math.Cos(rad), math.Sin(rad)
	return f64.Aff3{c, -s, 0, s, c, 0}
}

func flips(st PageTransformState) (float64, float64) {
	sx, sy := 1.0, 1.0
	if st.FlipHorizontal {
		sx = -1
	}
	if st.FlipVertical {
		sy = -1
	}
	return sx, sy
}

// Multiply returns a·b, the transform that applies b first and then a.
func Multiply(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3], a[0]*b[1] + a[1]*b[4], a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3], a[3]*b[1] + a[4]*b[4], a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Chain multiplies matrices left to right; the last one is applied first.
func Chain(ms ...f64.Aff3) f64.Aff3 {
	out := f64.Aff3{1, 0, 0, 0, 1, 0}
	for _, m := range ms {
		out = Multiply(out, m)
	}
	return out
}

// Matrix returns the source-to-canvas transform for a w×h raster in pixel
// space (y down), together with the canvas size:
//
//	T(cw/2, ch/2) · S(±1, ±1) · R(θ) · T(−w/2 + offX, −h/2 − offY)
//
// The order is significant; mirroring after rotating gives a different image.
func Matrix(w, h int, st PageTransformState) (m f64.Aff3, cw, ch int) {
	cw, ch = CanvasSize(w, h, st.Rotation)
	sx, sy := flips(st)
	m = Chain(
		translate(float64(cw)/2, float64(ch)/2),
		scale(sx, sy),
		rotate(st.Rotation*math.Pi/180),
		translate(-float64(w)/2+st.Offset.X, -float64(h)/2-st.Offset.Y),
	)
	return m, cw, ch
}

// PageMatrix returns the transform for content of a PDF page whose box
// starts at (x0, y0) and measures w×h points, in user space (y up):
//
//	T(off) · T(c) · S(±1, ±1) · R(φ) · T(−c),  φ = −rotation
//
// The page size is unchanged; content rotates about the page centre c. The
// angle is negated because PDF rotates counter-clockwise for positive angles.
// For the unflipped case the translation part is exactly
//
//	baseX = w/2 − (w/2)·cos φ + (h/2)·sin φ
//	baseY = h/2 − (w/2)·sin φ − (h/2)·cos φ
//
// relative to the box origin, plus the offset.
func PageMatrix(x0, y0, w, h float64, st PageTransformState) f64.Aff3 {
	cx, cy := x0+w/2, y0+h/2
	sx, sy := flips(st)
	return Chain(
		translate(st.Offset.X, st.Offset.Y),
		translate(cx, cy),
		scale(sx, sy),
		rotate(-st.Rotation*math.Pi/180),
		translate(-cx, -cy),
	)
}
