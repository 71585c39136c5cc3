package render

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
)

// createTestPDF builds a PDF whose pages are 200x100 pt with a black bar in the middle.
func createTestPDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "", "")
	for i := 0; i < pages; i++ {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: 200, Ht: 100})
		pdf.SetFillColor(0, 0, 0)
		pdf.Rect(50, 40, 100, 20, "F")
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestPDFRenderer(t *testing.T) {
	q := NewQueue()
	defer q.Close()
	r := NewPDFRenderer(q, 72)
	data := createTestPDF(t, 2)

	n, err := r.PageCount(context.Background(), data)
	if err != nil {
		t.Skipf("MuPDF not usable here: %v", err)
	}
	assert.Equal(t, 2, n)

	raster, err := r.RenderPage(context.Background(), data, 2)
	require.NoError(t, err)
	assert.Equal(t, 200, raster.Width())
	assert.Equal(t, 100, raster.Height())

	bar := raster.Image().NRGBAAt(100, 50)
	assert.Less(t, bar.R, uint8(64), "bar should be dark")
	corner := raster.Image().NRGBAAt(5, 5)
	assert.Greater(t, corner.R, uint8(192), "page should be white")

	_, err = r.RenderPage(context.Background(), data, 3)
	assert.Error(t, err)
}

func TestPDFRenderer_Garbage(t *testing.T) {
	q := NewQueue()
	defer q.Close()
	r := NewPDFRenderer(q, 72)

	_, err := r.PageCount(context.Background(), []byte("not a pdf"))
	require.Error(t, err)
	var de *imaging.DecodeError
	assert.True(t, errors.As(err, &de))
}
