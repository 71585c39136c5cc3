package geometry

import (
	"fmt"
	"math"
)

// StateVersion is the current PageTransformState layout.
const StateVersion = 1

// Offset is a translation, x to the right and y up.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PageTransformState is the editable transform of one page or image.
// Every field is always present; the zero rotation, offset and flags are the
// identity.
type PageTransformState struct {
	Version        int     `json:"version"`
	Rotation       float64 `json:"rotation"`
	Offset         Offset  `json:"offset"`
	FlipHorizontal bool    `json:"flip_horizontal"`
	FlipVertical   bool    `json:"flip_vertical"`
}

// Identity returns the state every page starts with.
func Identity() PageTransformState {
	return PageTransformState{Version: StateVersion}
}

// IsIdentity reports whether s leaves a page unchanged.
func (s PageTransformState) IsIdentity() bool {
	return s.Rotation == 0 && s.Offset == (Offset{}) && !s.FlipHorizontal && !s.FlipVertical
}

// Validate rejects non-finite values.
func (s PageTransformState) Validate() error {
	for name, v := range map[string]float64{
		"rotation": s.Rotation,
		"offset.x": s.Offset.X,
		"offset.y": s.Offset.Y,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
	}
	return nil
}

// Normalized returns s with the rotation folded into (-180, 180] and the
// current version set.
func (s PageTransformState) Normalized() PageTransformState {
	r := math.Mod(s.Rotation, 360)
	if r > 180 {
		r -= 360
	} else if r <= -180 {
		r += 360
	}
	if r == 0 {
		r = 0 // drop negative zero
	}
	s.Rotation = r
	s.Version = StateVersion
	return s
}

// ScaleOffset returns s with its offset multiplied by k, for moving between
// PDF points and raster pixels.
func (s PageTransformState) ScaleOffset(k float64) PageTransformState {
	s.Offset.X *= k
	s.Offset.Y *= k
	return s
}
