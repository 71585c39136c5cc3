package document

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/math/f64"

	"github.com/ironsheep/image-deskew-mcp/internal/geometry"
)

// PageSize is the media box of one page in PDF points.
type PageSize struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func readContext(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &CodecError{Op: "read", Err: err}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &CodecError{Op: "read", Err: err}
	}
	return ctx, nil
}

// Pages returns the media box of every page, in page order.
func Pages(data []byte) ([]PageSize, error) {
	ctx, err := readContext(data)
	if err != nil {
		return nil, err
	}
	sizes := make([]PageSize, 0, ctx.PageCount)
	for nr := 1; nr <= ctx.PageCount; nr++ {
		box, err := mediaBox(ctx, nr)
		if err != nil {
			return nil, &CodecError{Op: "read", Err: err}
		}
		sizes = append(sizes, PageSize{X: box.LL.X, Y: box.LL.Y, Width: box.Width(), Height: box.Height()})
	}
	return sizes, nil
}

// RotateInPlace applies per-page transforms (keyed by 1-based page number) to
// a PDF and returns the new document. Pages without a state or with an
// identity state keep their content streams untouched; if no page changes the
// input bytes are returned as a copy.
func RotateInPlace(data []byte, states map[int]geometry.PageTransformState) ([]byte, error) {
	ctx, err := readContext(data)
	if err != nil {
		return nil, err
	}

	pages := make([]int, 0, len(states))
	for nr, st := range states {
		if nr < 1 || nr > ctx.PageCount {
			return nil, &CodecError{Op: "transform", Err: fmt.Errorf("page %d out of range (document has %d pages)", nr, ctx.PageCount)}
		}
		if err := st.Validate(); err != nil {
			return nil, &CodecError{Op: "transform", Err: fmt.Errorf("page %d: %w", nr, err)}
		}
		if !st.IsIdentity() {
			pages = append(pages, nr)
		}
	}
	if len(pages) == 0 {
		return bytes.Clone(data), nil
	}
	sort.Ints(pages)

	for _, nr := range pages {
		if err := wrapPage(ctx, nr, states[nr]); err != nil {
			return nil, &CodecError{Op: "transform", Err: err}
		}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, &CodecError{Op: "write", Err: err}
	}
	logrus.WithFields(logrus.Fields{"pages": len(pages), "bytes": buf.Len()}).Debug("pdf pages transformed in place")
	return buf.Bytes(), nil
}

func mediaBox(ctx *model.Context, nr int) (*types.Rectangle, error) {
	d, _, inh, err := ctx.PageDict(nr, false)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", nr, err)
	}
	if d == nil || inh == nil || inh.MediaBox == nil {
		return nil, fmt.Errorf("page %d has no media box", nr)
	}
	return inh.MediaBox, nil
}

// wrapPage surrounds the existing content of page nr with "q <cm>" and "Q".
func wrapPage(ctx *model.Context, nr int, st geometry.PageTransformState) error {
	d, _, inh, err := ctx.PageDict(nr, false)
	if err != nil {
		return fmt.Errorf("page %d: %w", nr, err)
	}
	if d == nil || inh == nil || inh.MediaBox == nil {
		return fmt.Errorf("page %d has no media box", nr)
	}
	box := inh.MediaBox

	m := geometry.PageMatrix(box.LL.X, box.LL.Y, box.Width(), box.Height(), st)
	pre, err := newContentStream(ctx, []byte("q "+cmOperator(m)+"\n"))
	if err != nil {
		return err
	}
	post, err := newContentStream(ctx, []byte("\nQ\n"))
	if err != nil {
		return err
	}

	existing, err := contentRefs(ctx, d)
	if err != nil {
		return fmt.Errorf("page %d: %w", nr, err)
	}
	contents := make(types.Array, 0, len(existing)+2)
	contents = append(contents, *pre)
	contents = append(contents, existing...)
	contents = append(contents, *post)
	d["Contents"] = contents
	return nil
}

// cmOperator renders m as a PDF "cm" operator. f64.Aff3 is row-major
// {a, b, c, d, e, f} for x' = a·x + b·y + c; PDF orders the same
// coefficients as [a d b e c f].
func cmOperator(m f64.Aff3) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return f(m[0]) + " " + f(m[3]) + " " + f(m[1]) + " " + f(m[4]) + " " + f(m[2]) + " " + f(m[5]) + " cm"
}

func newContentStream(ctx *model.Context, content []byte) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

// contentRefs returns the page's content streams as a flat array.
func contentRefs(ctx *model.Context, page types.Dict) (types.Array, error) {
	o, found := page.Find("Contents")
	if !found || o == nil {
		return nil, nil
	}
	switch obj := o.(type) {
	case types.IndirectRef:
		target, err := ctx.Dereference(obj)
		if err != nil {
			return nil, err
		}
		if arr, ok := target.(types.Array); ok {
			return arr, nil
		}
		return types.Array{obj}, nil
	case types.Array:
		return obj, nil
	default:
		return nil, fmt.Errorf("unexpected /Contents entry %T", o)
	}
}
