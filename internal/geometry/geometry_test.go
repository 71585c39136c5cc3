package geometry

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
)

// createGradientImage creates a smooth image so interpolation error stays small.
func createGradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / (width - 1)),
				G: uint8(y * 255 / (height - 1)),
				B: uint8((x + y) * 255 / (width + height - 2)),
				A: 255,
			})
		}
	}
	return img
}

func TestBounds_100x200At30(t *testing.T) {
	w, h := Bounds(100, 200, 30)

	rad := 30 * math.Pi / 180
	assert.InDelta(t, 100*math.Cos(rad)+200*math.Sin(rad), w, 1e-9)
	assert.InDelta(t, 100*math.Sin(rad)+200*math.Cos(rad), h, 1e-9)
}

func TestBounds_SignIndependent(t *testing.T) {
	w1, h1 := Bounds(120, 80, 17)
	w2, h2 := Bounds(120, 80, -17)
	assert.InDelta(t, w1, w2, 1e-9)
	assert.InDelta(t, h1, h2, 1e-9)
}

func TestCanvasSize(t *testing.T) {
	tests := []struct {
		deg          float64
		wantW, wantH int
	}{
		{0, 100, 200},
		{90, 200, 100},
		{180, 100, 200},
		{30, 187, 224},
	}
	for _, tt := range tests {
		w, h := CanvasSize(100, 200, tt.deg)
		assert.Equal(t, tt.wantW, w, "width at %v", tt.deg)
		assert.Equal(t, tt.wantH, h, "height at %v", tt.deg)
	}
}

func TestMatrix_CentreMapsToCentre(t *testing.T) {
	st := Identity()
	st.Rotation = 37
	st.FlipHorizontal = true

	m, cw, ch := Matrix(100, 60, st)
	x, y := transformPoint(m, 50, 30)

	assert.InDelta(t, float64(cw)/2, x, 1e-9)
	assert.InDelta(t, float64(ch)/2, y, 1e-9)
}

func TestMatrix_PositiveIsClockwise(t *testing.T) {
	st := Identity()
	st.Rotation = 90

	m, cw, ch := Matrix(100, 100, st)
	// the right-hand middle of the source ends up at the bottom middle
	x, y := transformPoint(m, 100, 50)
	assert.InDelta(t, float64(cw)/2, x, 1e-9)
	assert.InDelta(t, float64(ch), y, 1e-9)
}

func TestMatrix_OffsetYIsUp(t *testing.T) {
	st := Identity()
	st.Offset = Offset{X: 10, Y: 5}

	m, _, _ := Matrix(100, 100, st)
	x, y := transformPoint(m, 50, 50)
	assert.InDelta(t, 60, x, 1e-9)
	assert.InDelta(t, 45, y, 1e-9)
}

func TestMatrix_FlipOrder(t *testing.T) {
	// mirroring after rotating differs from rotating after mirroring
	st := Identity()
	st.Rotation = 30
	st.FlipHorizontal = true
	m, cw, ch := Matrix(100, 100, st)

	swapped := Chain(
		translate(float64(cw)/2, float64(ch)/2),
		rotate(30*math.Pi/180),
		scale(-1, 1),
		translate(-50, -50),
	)
	x1, y1 := transformPoint(m, 0, 0)
	x2, y2 := transformPoint(swapped, 0, 0)
	assert.False(t, math.Abs(x1-x2) < 1e-6 && math.Abs(y1-y2) < 1e-6)
}

func TestInvertMatrix(t *testing.T) {
	st := PageTransformState{Rotation: -12.5, Offset: Offset{3, -7}, FlipVertical: true}
	m, _, _ := Matrix(80, 40, st)

	inv, ok := invert(m)
	require.True(t, ok)

	id := Multiply(inv, m)
	for i, want := range []float64{1, 0, 0, 0, 1, 0} {
		assert.InDelta(t, want, id[i], 1e-9)
	}

	_, ok = invert(scale(0, 1))
	assert.False(t, ok)
}

func TestPageMatrix_BaseTranslation(t *testing.T) {
	w, h := 612.0, 792.0
	st := Identity()
	st.Rotation = 5

	m := PageMatrix(0, 0, w, h, st)

	phi := -5 * math.Pi / 180
	baseX := w/2 - (w/2)*math.Cos(phi) + (h/2)*math.Sin(phi)
	baseY := h/2 - (w/2)*math.Sin(phi) - (h/2)*math.Cos(phi)
	assert.InDelta(t, baseX, m[2], 1e-9)
	assert.InDelta(t, baseY, m[5], 1e-9)

	// user space is y-up: a clockwise correction moves the top-right corner down
	_, y := transformPoint(m, w, h)
	assert.Less(t, y, h)
}

func TestPageMatrix_OffsetAddedOnTop(t *testing.T) {
	st := Identity()
	st.Offset = Offset{X: 12, Y: -4}

	m := PageMatrix(10, 20, 100, 100, st)
	x, y := transformPoint(m, 10, 20)
	assert.InDelta(t, 22, x, 1e-9)
	assert.InDelta(t, 16, y, 1e-9)
}

func TestApply_IdentityIsExact(t *testing.T) {
	src := createGradientImage(30, 20)

	out := Apply(src, Identity(), ApplyOptions{})

	res, err := imaging.Compare(src, out, nil)
	require.NoError(t, err)
	assert.Zero(t, res.PixelsDifferent)
}

func TestApply_CanvasAndBackground(t *testing.T) {
	src := createGradientImage(100, 200)
	st := Identity()
	st.Rotation = 30

	out := Apply(src, st, ApplyOptions{Background: color.NRGBA{255, 0, 0, 255}})

	cw, ch := CanvasSize(100, 200, 30)
	assert.Equal(t, image.Rect(0, 0, cw, ch), out.Bounds())
	// canvas corners are outside the rotated content
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, out.NRGBAAt(0, 0))

	clear := Apply(src, st, ApplyOptions{})
	assert.Equal(t, uint8(0), clear.NRGBAAt(0, 0).A)
}

func TestApply_RoundTrip(t *testing.T) {
	const w, h = 64, 48
	src := createGradientImage(w, h)

	for _, angle := range []float64{-30, -5, 0.5, 12, 45, 90, 180} {
		for _, flip := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
			st := PageTransformState{Version: StateVersion, Rotation: angle, FlipHorizontal: flip[0], FlipVertical: flip[1]}
			t.Run(fmt.Sprintf("%v_%v_%v", angle, flip[0], flip[1]), func(t *testing.T) {
				out := Apply(src, st, ApplyOptions{Resampling: Bilinear})

				m, _, _ := Matrix(w, h, st)
				inv, ok := invert(m)
				require.True(t, ok)

				back := image.NewNRGBA(image.Rect(0, 0, w, h))
				draw.BiLinear.Transform(back, inv, out, out.Bounds(), draw.Src, nil)

				interior := image.Rect(4, 4, w-4, h-4)
				res, err := imaging.Compare(src, back, &interior)
				require.NoError(t, err)
				assert.Less(t, res.MeanAbsDiff, 3.0)
			})
		}
	}
}

func TestParseResampling(t *testing.T) {
	r, err := ParseResampling("")
	require.NoError(t, err)
	assert.Equal(t, Bilinear, r)

	r, err = ParseResampling("CatmullRom")
	require.NoError(t, err)
	assert.Equal(t, CatmullRom, r)

	_, err = ParseResampling("lanczos")
	assert.Error(t, err)
}

func TestState(t *testing.T) {
	st := Identity()
	assert.True(t, st.IsIdentity())
	assert.Equal(t, StateVersion, st.Version)

	st.FlipVertical = true
	assert.False(t, st.IsIdentity())

	assert.InDelta(t, -90, PageTransformState{Rotation: 270}.Normalized().Rotation, 1e-9)
	assert.InDelta(t, 180, PageTransformState{Rotation: -180}.Normalized().Rotation, 1e-9)

	assert.Error(t, PageTransformState{Rotation: math.NaN()}.Validate())
	assert.NoError(t, st.Validate())

	moved := PageTransformState{Rotation: 3, Offset: Offset{X: 72, Y: -36}}.ScaleOffset(150.0 / 72)
	assert.InDelta(t, 150, moved.Offset.X, 1e-9)
	assert.InDelta(t, -75, moved.Offset.Y, 1e-9)
	assert.Equal(t, 3.0, moved.Rotation)
}

// invert returns the inverse of m. ok is false for a singular matrix.
func invert(m f64.Aff3) (inv f64.Aff3, ok bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 || math.IsNaN(det) {
		return f64.Aff3{}, false
	}
	return f64.Aff3{
		m[4] / det, -m[1] / det, (m[1]*m[5] - m[4]*m[2]) / det,
		-m[3] / det, m[0] / det, (m[3]*m[2] - m[0]*m[5]) / det,
	}, true
}

// transformPoint maps (x, y) through m.
func transformPoint(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}
