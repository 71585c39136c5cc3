package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"codeberg.org/go-pdf/fpdf"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/geometry"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
)

// AssemblyPage is one raster page of a new document.
type AssemblyPage struct {
	Image image.Image
	State geometry.PageTransformState
}

// AssembleOptions controls Assemble.
type AssembleOptions struct {
	Apply geometry.ApplyOptions

	// Creator is written to the document info dictionary when set.
	Creator string
}

// Assemble builds a new PDF with one page per input. Each image is
// transformed, PNG-encoded and drawn at the origin of a page sized exactly
// to the transformed canvas (1 px = 1 pt).
func Assemble(pages []AssemblyPage, opts AssembleOptions) ([]byte, error) {
	if len(pages) == 0 {
		return nil, &CodecError{Op: "assemble", Err: errors.New("no pages")}
	}

	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opts.Creator != "" {
		pdf.SetCreator(opts.Creator, true)
	}

	for i, p := range pages {
		if p.Image == nil {
			return nil, &CodecError{Op: "assemble", Err: fmt.Errorf("page %d has no image", i+1)}
		}
		if err := p.State.Validate(); err != nil {
			return nil, &CodecError{Op: "assemble", Err: fmt.Errorf("page %d: %w", i+1, err)}
		}

		out := geometry.Apply(p.Image, p.State, opts.Apply)
		encoded, err := imaging.Encode(out, imaging.FormatPNG, imaging.EncodeOptions{})
		if err != nil {
			return nil, &CodecError{Op: "assemble", Err: fmt.Errorf("page %d: %w", i+1, err)}
		}

		w, h := float64(out.Bounds().Dx()), float64(out.Bounds().Dy())
		name := fmt.Sprintf("page-%d", i+1)
		imgOpts := fpdf.ImageOptions{ImageType: "PNG"}

		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(encoded))
		pdf.ImageOptions(name, 0, 0, w, h, false, imgOpts, 0, "")
		if pdf.Err() {
			return nil, &CodecError{Op: "assemble", Err: fmt.Errorf("page %d: %w", i+1, pdf.Error())}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &CodecError{Op: "write", Err: err}
	}
	logrus.WithFields(logrus.Fields{"pages": len(pages), "bytes": buf.Len()}).Debug("pdf assembled")
	return buf.Bytes(), nil
}
