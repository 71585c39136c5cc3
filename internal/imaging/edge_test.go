package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestCannyEdges(t *testing.T) {
	img := createEdgeTestImage(100, 100)

	edges := CannyEdges(ToGray(img), 50, 150)

	if edges.Width != 100 || edges.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 100x100", edges.Width, edges.Height)
	}
	if edges.Count() == 0 {
		t.Error("expected edges around the black rectangle")
	}
}

func TestCannyEdges_DifferentThresholds(t *testing.T) {
	img := createEdgeTestImage(50, 50)
	gray := ToGray(img)

	tests := []struct {
		name      string
		low, high int
	}{
		{"low thresholds", 10, 50},
		{"medium thresholds", 50, 150},
		{"high thresholds", 100, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges := CannyEdges(gray, tt.low, tt.high)
			if edges.Count() == 0 {
				t.Error("black-on-white rectangle should produce edges at any threshold")
			}
		})
	}
}

func TestCannyEdges_UniformImage(t *testing.T) {
	img := createInMemoryImage(50, 50, color.RGBA{128, 128, 128, 255})

	edges := CannyEdges(ToGray(img), 50, 150)

	if n := edges.Count(); n != 0 {
		t.Errorf("uniform image should have no edges, got %d", n)
	}
}

func TestCannyEdges_StrongEdge(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}

	edges := CannyEdges(ToGray(img), 50, 150)

	edgeFound := false
	for x := 47; x <= 52; x++ {
		if edges.Edges[50][x] {
			edgeFound = true
			break
		}
	}
	if !edgeFound {
		t.Error("strong vertical edge was not detected")
	}

	// Far from the boundary there is nothing
	if edges.Edges[50][10] || edges.Edges[50][90] {
		t.Error("unexpected edge far from the boundary")
	}
}

func TestCannyEdges_SmallImage(t *testing.T) {
	img := createInMemoryImage(5, 5, color.RGBA{128, 128, 128, 255})

	edges := CannyEdges(ToGray(img), 50, 150)

	if edges.Width != 5 || edges.Height != 5 {
		t.Errorf("dimensions: got %dx%d, want 5x5", edges.Width, edges.Height)
	}
}

func TestEdgeMap_Image(t *testing.T) {
	m := &EdgeMap{Width: 3, Height: 2, Edges: [][]bool{{true, false, false}, {false, false, true}}}

	img := m.Image()

	if img.GrayAt(0, 0).Y != 255 || img.GrayAt(2, 1).Y != 255 {
		t.Error("edge pixels should be white")
	}
	if img.GrayAt(1, 0).Y != 0 {
		t.Error("non-edge pixels should be black")
	}
	if m.Count() != 2 {
		t.Errorf("Count: got %d, want 2", m.Count())
	}
}

func TestGaussianBlur(t *testing.T) {
	width, height := 10, 10
	img := make([][]float64, height)
	for y := 0; y < height; y++ {
		img[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			img[y][x] = 0.5
		}
	}

	blurred := gaussianBlur(img, width, height)

	// Uniform image should remain uniform after blur
	for y := 2; y < height-2; y++ {
		for x := 2; x < width-2; x++ {
			if absFloat(blurred[y][x]-0.5) > 0.01 {
				t.Errorf("blurred[%d][%d]: got %.3f, want ~0.5", y, x, blurred[y][x])
			}
		}
	}
}

func TestGaussianBlur_WithSpot(t *testing.T) {
	width, height := 11, 11
	img := make([][]float64, height)
	for y := 0; y < height; y++ {
		img[y] = make([]float64, width)
	}
	img[5][5] = 1.0

	blurred := gaussianBlur(img, width, height)

	if blurred[5][5] >= 1.0 {
		t.Error("bright spot should be reduced after blur")
	}
	if blurred[5][4] == 0 || blurred[5][6] == 0 || blurred[4][5] == 0 || blurred[6][5] == 0 {
		t.Error("neighbors should receive some brightness from blur")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}

	for _, tt := range tests {
		got := clamp(tt.val, tt.lo, tt.hi)
		if got != tt.want {
			t.Errorf("clamp(%d, %d, %d): got %d, want %d", tt.val, tt.lo, tt.hi, got, tt.want)
		}
	}
}

// Helper functions

// createEdgeTestImage creates an image with a black rectangle on white background
func createEdgeTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := height / 4; y < 3*height/4; y++ {
		for x := width / 4; x < 3*width/4; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

// createInMemoryImage creates a solid color image
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
