package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestToGray(t *testing.T) {
	tests := []struct {
		name string
		c    color.Color
		want uint8
	}{
		{"white", color.RGBA{255, 255, 255, 255}, 255},
		{"black", color.RGBA{0, 0, 0, 255}, 0},
		{"red", color.RGBA{255, 0, 0, 255}, 76},
		{"green", color.RGBA{0, 255, 0, 255}, 150},
		{"blue", color.RGBA{0, 0, 255, 255}, 29},
		{"transparent is white", color.NRGBA{0, 0, 0, 0}, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					img.Set(x, y, tt.c)
				}
			}
			got := ToGray(img).GrayAt(1, 1).Y
			if diff := int(got) - int(tt.want); diff < -1 || diff > 1 {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestToGray_ZeroOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 15, 10))
	src.Set(5, 5, color.Black)

	g := ToGray(src)

	if g.Bounds() != image.Rect(0, 0, 10, 5) {
		t.Errorf("bounds: got %v", g.Bounds())
	}
	if g.GrayAt(0, 0).Y != 0 {
		t.Errorf("origin pixel: got %d, want 0", g.GrayAt(0, 0).Y)
	}
}

func TestParseBackground(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#FFFFFF", color.NRGBA{255, 255, 255, 255}, false},
		{"#ff0000", color.NRGBA{255, 0, 0, 255}, false},
		{"#000", color.NRGBA{0, 0, 0, 255}, false},
		{"transparent", color.NRGBA{}, false},
		{"", color.NRGBA{}, false},
		{"not-a-color", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackground(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
