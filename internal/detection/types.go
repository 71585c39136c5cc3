package detection

import "math"

// Method names the estimator that produced a Result.
type Method string

const (
	MethodLines         Method = "lines"
	MethodTextBaselines Method = "text_baselines"
	MethodContours      Method = "contours"
	MethodNone          Method = "none"
)

// Offset is a translation in pixels, x to the right and y up.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Result is one tilt estimate.
type Result struct {
	// Angle is the correction in degrees; positive means rotate clockwise.
	Angle float64 `json:"angle"`

	// Confidence is a heuristic score in [0, 1].
	Confidence float64 `json:"confidence"`

	Method Method `json:"method"`

	// Offset re-centres the page. Only the contour estimator sets it.
	Offset *Offset `json:"offset,omitempty"`

	// Samples is the number of angle samples that survived filtering.
	Samples int `json:"samples"`
}

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// LineSegment is a straight segment in pixel coordinates.
type LineSegment struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Length returns the Euclidean length of the segment.
func (s LineSegment) Length() float64 {
	return math.Hypot(s.X1-s.X0, s.Y1-s.Y0)
}

// AngleDegrees returns the segment's angle from horizontal in (-90, 90].
// The direction of the segment does not matter.
func (s LineSegment) AngleDegrees() float64 {
	a := math.Atan2(s.Y1-s.Y0, s.X1-s.X0) * 180 / math.Pi
	if a > 90 {
		a -= 180
	} else if a <= -90 {
		a += 180
	}
	return a
}
