package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Format is an export target.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat accepts the export format names used by clients.
// "jpeg" is accepted as an alias of "jpg".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unknown export format %q (want pdf, jpg, png or webp)", s)
}

// MimeType returns the content type written for f.
func (f Format) MimeType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// IsRaster reports whether f is an image format rather than a document.
func (f Format) IsRaster() bool {
	return f == FormatJPEG || f == FormatPNG || f == FormatWebP
}

// EncodeOptions controls raster encoding.
type EncodeOptions struct {
	// JPEGQuality is 1-100.
	JPEGQuality int
	// WebPQuality is 0-100 and ignored when WebPLossless is set.
	WebPQuality  float32
	WebPLossless bool
	// Background is composited under transparent pixels for formats without
	// alpha (JPEG). A zero value means white.
	Background color.NRGBA
}

// Encode writes img in the given raster format.
//
// PNG and lossless WebP keep every pixel exactly. JPEG has no alpha channel,
// so transparent areas (for example the corners uncovered by a rotation) are
// filled with opts.Background first.
func Encode(img image.Image, format Format, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	case FormatJPEG:
		quality := opts.JPEGQuality
		if quality <= 0 {
			quality = 95
		}
		flat := flatten(img, opts.Background)
		if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
	case FormatWebP:
		wo := &webp.Options{Lossless: opts.WebPLossless, Quality: opts.WebPQuality}
		if err := webp.Encode(&buf, img, wo); err != nil {
			return nil, fmt.Errorf("failed to encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("format %q is not a raster format", format)
	}
	return buf.Bytes(), nil
}

// flatten composites img over an opaque background.
func flatten(img image.Image, bg color.NRGBA) *image.NRGBA {
	if bg.A == 0 {
		bg = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}
