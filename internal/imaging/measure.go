package imaging

import (
	"fmt"
	"image"
	"math"
)

// CompareResult summarises the difference between two equally sized images.
type CompareResult struct {
	// MeanAbsDiff is the mean absolute per-channel difference (0-255 scale).
	MeanAbsDiff float64 `json:"mean_abs_diff"`

	// PSNR is the peak signal-to-noise ratio in dB. Identical images report +Inf.
	PSNR float64 `json:"psnr"`

	// PixelsDifferent counts pixels whose mean channel difference exceeds 10.
	PixelsDifferent int `json:"pixels_different"`

	// TotalPixels is the number of pixels compared.
	TotalPixels int `json:"total_pixels"`
}

// Compare measures how far b is from a inside region (in a's coordinates,
// offset by each image's own bounds minimum). A nil region compares the full
// images, which must then have the same size.
//
// Alpha is compared like a colour channel, so a transparent pixel differs from
// an opaque one of the same colour.
func Compare(a, b image.Image, region *image.Rectangle) (*CompareResult, error) {
	ab, bb := a.Bounds(), b.Bounds()
	var r image.Rectangle
	if region == nil {
		if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
			return nil, fmt.Errorf("size mismatch: %dx%d vs %dx%d", ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
		}
		r = image.Rect(0, 0, ab.Dx(), ab.Dy())
	} else {
		r = *region
		if r.Empty() || r.Min.X < 0 || r.Min.Y < 0 ||
			r.Max.X > ab.Dx() || r.Max.Y > ab.Dy() || r.Max.X > bb.Dx() || r.Max.Y > bb.Dy() {
			return nil, fmt.Errorf("region %v outside image bounds", r)
		}
	}

	total := r.Dx() * r.Dy()
	var sumAbs, sumSq float64
	different := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			r1, g1, b1, a1 := a.At(x+ab.Min.X, y+ab.Min.Y).RGBA()
			r2, g2, b2, a2 := b.At(x+bb.Min.X, y+bb.Min.Y).RGBA()

			dr := channelDiff(r1, r2)
			dg := channelDiff(g1, g2)
			db := channelDiff(b1, b2)
			da := channelDiff(a1, a2)

			sumAbs += dr + dg + db + da
			sumSq += dr*dr + dg*dg + db*db + da*da
			if (dr+dg+db+da)/4 > 10 {
				different++
			}
		}
	}

	samples := float64(total * 4)
	mse := sumSq / samples
	psnr := math.Inf(1)
	if mse > 0 {
		psnr = 10 * math.Log10(255*255/mse)
	}

	return &CompareResult{
		MeanAbsDiff:     sumAbs / samples,
		PSNR:            psnr,
		PixelsDifferent: different,
		TotalPixels:     total,
	}, nil
}

// channelDiff returns |a-b| of two 16-bit channel values on a 0-255 scale.
func channelDiff(a, b uint32) float64 {
	return math.Abs(float64(a>>8) - float64(b>>8))
}
