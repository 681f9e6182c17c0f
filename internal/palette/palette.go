// package palette derives dominant color palettes from album art.
//
// Extraction is best effort: the visualizer renders white text when no
// palette is available, so failures here never block a snapshot.
package palette

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/EdlinOrg/prominentcolor"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/desertthunder/prism/internal/models"
)

// DefaultColors is the palette size used when the caller passes a
// non-positive count.
const DefaultColors = 5

// Extract computes up to count dominant colors from raw image bytes using
// k-means clustering, ordered by cluster weight.
//
// Pure function over the bytes; fetching the image is the caller's job.
// Returns nil on any decode or clustering failure.
func Extract(data []byte, count int) []models.RGB {
	if len(data) == 0 {
		return nil
	}
	if count <= 0 {
		count = DefaultColors
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	items, err := prominentcolor.KmeansWithAll(count, img, prominentcolor.ArgumentNoCropping, prominentcolor.DefaultSize, prominentcolor.GetDefaultMasks())
	if err != nil {
		return nil
	}

	colors := make([]models.RGB, 0, len(items))
	for _, item := range items {
		colors = append(colors, models.RGB{int(item.Color.R), int(item.Color.G), int(item.Color.B)})
	}

	if len(colors) == 0 {
		return nil
	}
	return colors
}

// Dominant returns the heaviest cluster color, when one could be extracted.
func Dominant(data []byte) (models.RGB, bool) {
	colors := Extract(data, 1)
	if len(colors) == 0 {
		return models.RGB{}, false
	}
	return colors[0], true
}

// Hex renders a palette entry as a #rrggbb string for logs and the TUI.
func Hex(c models.RGB) string {
	return colorful.Color{
		R: float64(c[0]) / 255.0,
		G: float64(c[1]) / 255.0,
		B: float64(c[2]) / 255.0,
	}.Hex()
}
