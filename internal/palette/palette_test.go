package palette

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/desertthunder/prism/internal/models"
)

// testImage renders a 100x100 PNG split between two saturated colors.
func testImage(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	red := color.RGBA{R: 220, G: 30, B: 30, A: 255}
	blue := color.RGBA{R: 30, G: 30, B: 220, A: 255}

	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				img.Set(x, y, red)
			} else {
				img.Set(x, y, blue)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	t.Run("two tone image", func(t *testing.T) {
		colors := Extract(testImage(t), 2)
		if len(colors) == 0 {
			t.Fatal("expected at least one palette color")
		}

		for _, c := range colors {
			for _, channel := range c {
				if channel < 0 || channel > 255 {
					t.Errorf("channel out of range: %v", c)
				}
			}
		}
	})

	t.Run("garbage bytes return nil", func(t *testing.T) {
		if colors := Extract([]byte("definitely not an image"), 5); colors != nil {
			t.Errorf("expected nil for undecodable bytes, got %v", colors)
		}
	})

	t.Run("empty bytes return nil", func(t *testing.T) {
		if colors := Extract(nil, 5); colors != nil {
			t.Errorf("expected nil for empty input, got %v", colors)
		}
	})

	t.Run("non-positive count uses default", func(t *testing.T) {
		colors := Extract(testImage(t), 0)
		if len(colors) == 0 {
			t.Fatal("expected extraction with default count")
		}
	})
}

func TestDominant(t *testing.T) {
	c, ok := Dominant(testImage(t))
	if !ok {
		t.Fatal("expected a dominant color")
	}

	// The heaviest cluster must resemble one of the two painted colors.
	reddish := c[0] > 150 && c[2] < 100
	blueish := c[2] > 150 && c[0] < 100
	if !reddish && !blueish {
		t.Errorf("dominant color %v matches neither painted tone", c)
	}
}

func TestHex(t *testing.T) {
	if got := Hex(models.RGB{255, 0, 0}); got != "#ff0000" {
		t.Errorf("expected #ff0000, got %s", got)
	}
	if got := Hex(models.RGB{0, 0, 0}); got != "#000000" {
		t.Errorf("expected #000000, got %s", got)
	}
}
