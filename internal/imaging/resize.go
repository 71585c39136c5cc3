package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Downscale shrinks img so that neither side exceeds maxDim, keeping the aspect ratio.
//
// It returns the (possibly unchanged) image and the scale factor that was
// applied, so callers can map coordinates back to the original: a point
// (x, y) in the result corresponds to (x/scale, y/scale) in img. A maxDim of
// zero or less, or an image already within the limit, returns img and 1.
//
// Lanczos resampling is used; it keeps thin ruling lines and text strokes
// intact better than box or linear filters at large reduction factors.
func Downscale(img image.Image, maxDim int) (image.Image, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img, 1
	}
	out := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	return out, float64(out.Bounds().Dx()) / float64(w)
}
