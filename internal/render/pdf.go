package render

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
)

// Rasterizer turns document pages into rasters. Pages are numbered from 1.
type Rasterizer interface {
	PageCount(ctx context.Context, data []byte) (int, error)
	RenderPage(ctx context.Context, data []byte, page int) (*imaging.Raster, error)
}

// PDFRenderer rasterises PDF pages with MuPDF. All calls go through its Queue.
type PDFRenderer struct {
	queue *Queue
	dpi   float64
	log   *logrus.Entry
}

// NewPDFRenderer creates a renderer that renders at dpi through q.
func NewPDFRenderer(q *Queue, dpi float64) *PDFRenderer {
	return &PDFRenderer{
		queue: q,
		dpi:   dpi,
		log:   logrus.WithField("component", "render"),
	}
}

// PageCount returns the number of pages in a PDF.
func (r *PDFRenderer) PageCount(ctx context.Context, data []byte) (int, error) {
	var n int
	err := r.queue.Submit(ctx, func(ctx context.Context) error {
		doc, err := openPDF(data)
		if err != nil {
			return err
		}
		defer doc.Close()
		n = doc.NumPage()
		return nil
	})
	return n, err
}

// RenderPage rasterises one page (1-based) at the renderer's DPI.
func (r *PDFRenderer) RenderPage(ctx context.Context, data []byte, page int) (*imaging.Raster, error) {
	var img *image.RGBA
	err := r.queue.Submit(ctx, func(ctx context.Context) error {
		doc, err := openPDF(data)
		if err != nil {
			return err
		}
		defer doc.Close()

		if page < 1 || page > doc.NumPage() {
			return fmt.Errorf("page %d out of range (document has %d pages)", page, doc.NumPage())
		}
		img, err = doc.ImageDPI(page-1, r.dpi)
		if err != nil {
			return fmt.Errorf("failed to render page %d: %w", page, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"page": page, "width": img.Bounds().Dx(), "height": img.Bounds().Dy()}).Debug("page rendered")
	return imaging.NewRaster(img, "pdf"), nil
}

func openPDF(data []byte) (*fitz.Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &imaging.DecodeError{MimeType: "application/pdf", Err: err}
	}
	return doc, nil
}
