//go:build cgo

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// EnvTessdataPrefix overrides the directory holding *.traineddata files.
const EnvTessdataPrefix = "TESSDATA_PREFIX"

type tesseractBackend struct {
	client *gosseract.Client
}

// newBackend creates the gosseract client and forces Tesseract to load by
// recognising a blank probe image, so a missing library or language pack is
// reported during initialisation rather than on first use.
func newBackend(language string) (backend, error) {
	client := gosseract.NewClient()

	if prefix := os.Getenv(EnvTessdataPrefix); prefix != "" {
		if err := client.SetTessdataPrefix(prefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: failed to set tessdata path: %v", ErrUnavailable, err)
		}
	}
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set language: %v", ErrUnavailable, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set page segmentation mode: %v", ErrUnavailable, err)
	}

	probe, err := blankPNG()
	if err != nil {
		client.Close()
		return nil, err
	}
	if err := client.SetImageFromBytes(probe); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := client.Text(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &tesseractBackend{client: client}, nil
}

func (t *tesseractBackend) recognize(png []byte) ([]box, error) {
	if err := t.client.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	words, err := t.client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}
	out := make([]box, 0, len(words))
	for _, w := range words {
		out = append(out, box{
			text:  w.Word,
			rect:  w.Box,
			conf:  w.Confidence / 100.0,
			block: w.BlockNum,
			par:   w.ParNum,
			line:  w.LineNum,
			word:  w.WordNum,
		})
	}
	return out, nil
}

func (t *tesseractBackend) version() string {
	return t.client.Version()
}

func (t *tesseractBackend) close() error {
	return t.client.Close()
}

func blankPNG() ([]byte, error) {
	img := imaging.New(32, 32, color.White)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, image.Image(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode probe image: %w", err)
	}
	return buf.Bytes(), nil
}
