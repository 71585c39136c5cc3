package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"net/http"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrEmptyInput is returned when Decode is given no bytes at all.
var ErrEmptyInput = errors.New("empty input")

// DecodeError reports that source bytes could not be turned into a raster.
//
// It is terminal for the unit it was produced for; callers processing several
// units should record it and continue with the next one.
type DecodeError struct {
	// MimeType is the sniffed content type of the input, e.g. "image/png".
	MimeType string

	// Err is the underlying decoder error.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image (%s): %v", e.MimeType, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Raster is an immutable, decoded page or image.
//
// The pixel data is always held as *image.NRGBA with bounds starting at (0,0),
// regardless of the source color model, so every consumer can index it the
// same way. A Raster must not be modified after it has been created; derive a
// new one instead.
type Raster struct {
	img    *image.NRGBA
	format string
}

// NewRaster wraps an already decoded image.
//
// The image is copied into a zero-origin NRGBA buffer, so later changes to img
// do not affect the Raster.
func NewRaster(img image.Image, format string) *Raster {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Raster{img: dst, format: format}
}

// Decode turns raw file bytes into a Raster.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. The returned
// error is a *DecodeError for anything other than empty input.
func Decode(data []byte) (*Raster, error) {
	if len(data) == 0 {
		return nil, &DecodeError{MimeType: "application/octet-stream", Err: ErrEmptyInput}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{MimeType: http.DetectContentType(data), Err: err}
	}
	return NewRaster(img, format), nil
}

// Image returns the underlying pixels. Callers must treat it as read-only.
func (r *Raster) Image() *image.NRGBA { return r.img }

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.img.Rect.Dx() }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.img.Rect.Dy() }

// Format returns the name of the format the raster was decoded from
// ("png", "jpeg", ...), or the name given to NewRaster.
func (r *Raster) Format() string { return r.format }

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Dimensions returns the raster size without exposing the pixels.
func (r *Raster) Dimensions() DimensionsResult {
	return DimensionsResult{Width: r.Width(), Height: r.Height()}
}
