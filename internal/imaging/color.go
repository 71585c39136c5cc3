package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ToGray converts an image to 8-bit luminance using ITU-R BT.601 weights
// (0.299*R + 0.587*G + 0.114*B).
//
// Fully transparent pixels are treated as white, which is what a page looks
// like when a transparent export is placed on paper. The result always has
// zero-origin bounds.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			out.SetGray(x, y, color.Gray{Y: luminance(img.At(x+bounds.Min.X, y+bounds.Min.Y))})
		}
	}
	return out
}

// luminance composites c over white and returns its BT.601 luma.
func luminance(c color.Color) uint8 {
	r, g, b, a := c.RGBA()
	// premultiplied: add the white that shows through
	white := 0xffff - a
	rf := float64((r+white)>>8) / 255.0
	gf := float64((g+white)>>8) / 255.0
	bf := float64((b+white)>>8) / 255.0
	v := (0.299*rf + 0.587*gf + 0.114*bf) * 255.0
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}

// ParseBackground parses a fill color for export canvases.
//
// Accepted forms are "#RRGGBB", "#RGB" and the keyword "transparent" (or an
// empty string), which yields a zero color.
func ParseBackground(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "transparent") {
		return color.NRGBA{}, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid background color %q: %w", s, err)
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
