package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestCompare_Identical(t *testing.T) {
	a := createPatternImage(20, 20)

	res, err := Compare(a, a, nil)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if res.MeanAbsDiff != 0 || res.PixelsDifferent != 0 {
		t.Errorf("identical images should not differ: %+v", res)
	}
	if !math.IsInf(res.PSNR, 1) {
		t.Errorf("PSNR: got %f, want +Inf", res.PSNR)
	}
	if res.TotalPixels != 400 {
		t.Errorf("TotalPixels: got %d, want 400", res.TotalPixels)
	}
}

func TestCompare_Different(t *testing.T) {
	a := createInMemoryImage(10, 10, color.RGBA{0, 0, 0, 255})
	b := createInMemoryImage(10, 10, color.RGBA{0, 0, 0, 255})
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			b.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}

	res, err := Compare(a, b, nil)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if res.PixelsDifferent != 50 {
		t.Errorf("PixelsDifferent: got %d, want 50", res.PixelsDifferent)
	}
	if math.IsInf(res.PSNR, 1) {
		t.Error("PSNR should be finite for different images")
	}

	// the bottom half alone is identical
	region := image.Rect(0, 5, 10, 10)
	res, err = Compare(a, b, &region)
	if err != nil {
		t.Fatalf("Compare region failed: %v", err)
	}
	if res.PixelsDifferent != 0 {
		t.Errorf("region PixelsDifferent: got %d, want 0", res.PixelsDifferent)
	}
}

func TestCompare_Errors(t *testing.T) {
	a := createInMemoryImage(10, 10, color.White)
	b := createInMemoryImage(12, 10, color.White)

	if _, err := Compare(a, b, nil); err == nil {
		t.Error("expected size mismatch error")
	}

	region := image.Rect(0, 0, 20, 20)
	if _, err := Compare(a, a, &region); err == nil {
		t.Error("expected out-of-bounds region error")
	}
}
