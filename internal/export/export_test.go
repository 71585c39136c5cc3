package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-deskew-mcp/internal/config"
	"github.com/ironsheep/image-deskew-mcp/internal/document"
	"github.com/ironsheep/image-deskew-mcp/internal/geometry"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
	"github.com/ironsheep/image-deskew-mcp/internal/session"
)

// fakeRasterizer renders every page as a white 144x72 raster with one dark
// pixel at (10, 10), i.e. a 72x36 pt page at 144 dpi.
type fakeRasterizer struct{}

func (fakeRasterizer) PageCount(ctx context.Context, data []byte) (int, error) { return 0, nil }

func (fakeRasterizer) RenderPage(ctx context.Context, data []byte, page int) (*imaging.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, 144, 72))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetNRGBA(10, 10, color.NRGBA{A: 255})
	return imaging.NewRaster(img, "pdf"), nil
}

// cancellingRasterizer cancels the batch once it has rendered page 1.
type cancellingRasterizer struct {
	fakeRasterizer
	cancel context.CancelFunc
}

func (c cancellingRasterizer) RenderPage(ctx context.Context, data []byte, page int) (*imaging.Raster, error) {
	r, err := c.fakeRasterizer.RenderPage(ctx, data, page)
	if page == 1 {
		c.cancel()
	}
	return r, err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pdfBytes(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "", "")
	for i := 0; i < pages; i++ {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: 72, Ht: 36})
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func newExporter(t *testing.T) (*Exporter, *session.Store) {
	t.Helper()
	store := session.NewStore(fakeRasterizer{})
	settings := config.Default().Export
	settings.Resampling = "nearest"
	return NewExporter(store, settings, 144), store
}

func decode(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()
	r, err := imaging.Decode(data)
	require.NoError(t, err)
	return r.Image()
}

func TestImage_IdentityAndQuarterTurn(t *testing.T) {
	e, store := newExporter(t)
	info, err := store.Load(context.Background(), "a.png", pngBytes(t, 40, 20))
	require.NoError(t, err)

	out, err := e.Image(context.Background(), info.ID, 1, imaging.FormatPNG)
	require.NoError(t, err)
	img := decode(t, out)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())

	st := geometry.Identity()
	st.Rotation = 90
	_, err = store.SetState(info.ID, 1, st)
	require.NoError(t, err)

	out, err = e.Image(context.Background(), info.ID, 1, imaging.FormatPNG)
	require.NoError(t, err)
	img = decode(t, out)
	assert.Equal(t, image.Rect(0, 0, 20, 40), img.Bounds())
}

func TestImage_JPEGCornersUseBackground(t *testing.T) {
	e, store := newExporter(t)
	info, err := store.Load(context.Background(), "a.png", pngBytes(t, 60, 60))
	require.NoError(t, err)
	st := geometry.Identity()
	st.Rotation = 45
	_, err = store.SetState(info.ID, 1, st)
	require.NoError(t, err)

	out, err := e.Image(context.Background(), info.ID, 1, imaging.FormatJPEG)
	require.NoError(t, err)
	img := decode(t, out)
	c := img.NRGBAAt(1, 1)
	assert.Equal(t, uint8(255), c.A)
	assert.Greater(t, c.R, uint8(240))

	pngOut, err := e.Image(context.Background(), info.ID, 1, imaging.FormatPNG)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), decode(t, pngOut).NRGBAAt(1, 1).A, "png corners stay transparent")
}

func TestImage_Errors(t *testing.T) {
	e, store := newExporter(t)
	info, err := store.Load(context.Background(), "a.png", pngBytes(t, 4, 4))
	require.NoError(t, err)

	_, err = e.Image(context.Background(), info.ID, 1, imaging.FormatPDF)
	assert.Error(t, err)
	_, err = e.Image(context.Background(), info.ID, 2, imaging.FormatPNG)
	assert.ErrorIs(t, err, session.ErrPageOutOfRange)
	_, err = e.Image(context.Background(), "u42", 1, imaging.FormatPNG)
	assert.ErrorIs(t, err, session.ErrUnknownUnit)
}

func TestImage_PDFOffsetScaledToPixels(t *testing.T) {
	e, store := newExporter(t)
	info, err := store.Load(context.Background(), "doc.pdf", pdfBytes(t, 1))
	require.NoError(t, err)

	st := geometry.Identity()
	st.Offset = geometry.Offset{X: 10}
	_, err = store.SetState(info.ID, 1, st)
	require.NoError(t, err)

	out, err := e.Image(context.Background(), info.ID, 1, imaging.FormatPNG)
	require.NoError(t, err)
	img := decode(t, out)
	// 10 pt at 144 dpi is 20 px
	assert.Equal(t, uint8(0), img.NRGBAAt(30, 10).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(50, 10).R)
}

func TestDocument(t *testing.T) {
	e, store := newExporter(t)

	src := pdfBytes(t, 2)
	doc, err := store.Load(context.Background(), "doc.pdf", src)
	require.NoError(t, err)
	out, err := e.Document(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, src, out, "untouched pdf is returned as is")

	img, err := store.Load(context.Background(), "a.png", pngBytes(t, 40, 20))
	require.NoError(t, err)
	st := geometry.Identity()
	st.Rotation = -90
	_, err = store.SetState(img.ID, 1, st)
	require.NoError(t, err)

	out, err = e.Document(context.Background(), img.ID)
	require.NoError(t, err)
	pages, err := document.Pages(out)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.InDelta(t, 20, pages[0].Width, 1e-6)
	assert.InDelta(t, 40, pages[0].Height, 1e-6)
}

func TestBatch(t *testing.T) {
	e, store := newExporter(t)
	a, err := store.Load(context.Background(), "a.png", pngBytes(t, 8, 8))
	require.NoError(t, err)
	d, err := store.Load(context.Background(), "doc.pdf", pdfBytes(t, 2))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	var seen []Progress
	res, err := e.Batch(context.Background(), []string{a.ID, d.ID, "u99"}, dir, imaging.FormatPNG, func(p Progress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)

	assert.False(t, res.Cancelled)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Exported, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "u99", res.Failed[0].ID)
	assert.NotEmpty(t, res.Failed[0].Error)

	assert.Equal(t, []string{filepath.Join(dir, "a_deskewed.png")}, res.Exported[0].Files)
	assert.Equal(t, []string{
		filepath.Join(dir, "doc_p1_deskewed.png"),
		filepath.Join(dir, "doc_p2_deskewed.png"),
	}, res.Exported[1].Files)
	for _, f := range append(res.Exported[0].Files, res.Exported[1].Files...) {
		assert.FileExists(t, f)
	}

	require.Len(t, seen, 3)
	for i, p := range seen {
		assert.Equal(t, i+1, p.Done)
		assert.Equal(t, 3, p.Total)
	}
}

func TestBatch_DuplicateNames(t *testing.T) {
	e, store := newExporter(t)
	a, err := store.Load(context.Background(), "scan.png", pngBytes(t, 8, 8))
	require.NoError(t, err)
	b, err := store.Load(context.Background(), "scan.png", pngBytes(t, 8, 8))
	require.NoError(t, err)

	dir := t.TempDir()
	res, err := e.Batch(context.Background(), []string{a.ID, b.ID}, dir, imaging.FormatPDF, nil)
	require.NoError(t, err)
	require.Len(t, res.Exported, 2)
	assert.Equal(t, filepath.Join(dir, "scan_deskewed.pdf"), res.Exported[0].Files[0])
	assert.Equal(t, filepath.Join(dir, "scan_"+b.ID+"_deskewed.pdf"), res.Exported[1].Files[0])
}

func TestBatch_CancelStopsAtUnitBoundary(t *testing.T) {
	e, store := newExporter(t)
	var ids []string
	for i := 0; i < 3; i++ {
		info, err := store.Load(context.Background(), "p.png", pngBytes(t, 8, 8))
		require.NoError(t, err)
		ids = append(ids, info.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()
	res, err := e.Batch(ctx, ids, dir, imaging.FormatPNG, func(p Progress) {
		if p.Done == 1 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	require.Len(t, res.Exported, 1)
	assert.Empty(t, res.Failed)
	assert.FileExists(t, res.Exported[0].Files[0])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBatch_CancelInsideUnitReportsWrittenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := session.NewStore(cancellingRasterizer{cancel: cancel})
	settings := config.Default().Export
	settings.Resampling = "nearest"
	e := NewExporter(store, settings, 144)

	d, err := store.Load(context.Background(), "doc.pdf", pdfBytes(t, 3))
	require.NoError(t, err)

	dir := t.TempDir()
	var seen []Progress
	res, err := e.Batch(ctx, []string{d.ID}, dir, imaging.FormatPNG, func(p Progress) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Exported)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "cancelled", res.Failed[0].Error)
	assert.Equal(t, []string{filepath.Join(dir, "doc_p1_deskewed.png")}, res.Failed[0].Files)
	assert.FileExists(t, res.Failed[0].Files[0])
	require.Len(t, seen, 1)
	assert.Equal(t, res.Failed[0], seen[0].Unit)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBatch_AlreadyCancelled(t *testing.T) {
	e, store := newExporter(t)
	info, err := store.Load(context.Background(), "p.png", pngBytes(t, 8, 8))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Batch(ctx, []string{info.ID}, t.TempDir(), imaging.FormatPNG, nil)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Exported)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "scan", stem("scan.tiff"))
	assert.Equal(t, "scan.v2", stem("/tmp/scan.v2.png"))
	assert.Equal(t, "unit", stem(""))
}
