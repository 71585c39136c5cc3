package geometry

import (
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"strings"

	"golang.org/x/image/draw"
)

// Resampling selects the interpolation used when warping.
type Resampling string

const (
	Nearest    Resampling = "nearest"
	Bilinear   Resampling = "bilinear"
	CatmullRom Resampling = "catmullrom"
)

// ParseResampling accepts the names above, case-insensitively. An empty
// string selects Bilinear.
func ParseResampling(s string) (Resampling, error) {
	switch r := Resampling(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return Bilinear, nil
	case Nearest, Bilinear, CatmullRom:
		return r, nil
	}
	return "", fmt.Errorf("unknown resampling %q (want nearest, bilinear or catmullrom)", s)
}

func (r Resampling) interpolator() draw.Interpolator {
	switch r {
	case Nearest:
		return draw.NearestNeighbor
	case CatmullRom:
		return draw.CatmullRom
	default:
		return draw.BiLinear
	}
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	Resampling Resampling

	// Background fills the canvas around the rotated content. nil leaves it
	// transparent.
	Background color.Color
}

// Apply draws src transformed by st onto a new canvas sized by CanvasSize,
// so the rotated content is never clipped. src is not modified.
//
// The identity state returns an exact zero-origin copy of src.
func Apply(src image.Image, st PageTransformState, opts ApplyOptions) *image.NRGBA {
	sb := src.Bounds()
	w, h := sb.Dx(), sb.Dy()

	if st.IsIdentity() {
		out := image.NewNRGBA(image.Rect(0, 0, w, h))
		stddraw.Draw(out, out.Bounds(), src, sb.Min, stddraw.Src)
		return out
	}

	m, cw, ch := Matrix(w, h, st)
	// Matrix works in zero-origin source coordinates
	m = Multiply(m, translate(-float64(sb.Min.X), -float64(sb.Min.Y)))

	out := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	op := draw.Src
	if opts.Background != nil {
		stddraw.Draw(out, out.Bounds(), image.NewUniform(opts.Background), image.Point{}, stddraw.Src)
		op = draw.Over
	}
	opts.Resampling.interpolator().Transform(out, m, src, sb, op, nil)
	return out
}
