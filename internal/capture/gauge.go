package capture

import "image"

// DefaultDarkThreshold is the luma below which a gauge pixel counts as empty.
const DefaultDarkThreshold = 50

// GaugeOptions controls AnalyzeGauge.
type GaugeOptions struct {
	// Row is the sampled row relative to the image bounds. A negative value
	// samples the middle row.
	Row int
	// Threshold is the dark luma cut-off; zero means DefaultDarkThreshold.
	Threshold float64
}

// MiddleRow samples the vertical centre of the gauge.
var MiddleRow = GaugeOptions{Row: -1}

// AnalyzeGauge returns the percentage (0..100) of non-dark pixels along one
// row of a horizontal gauge image.
func AnalyzeGauge(img image.Image, opts GaugeOptions) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultDarkThreshold
	}
	row := opts.Row
	if row < 0 || row >= b.Dy() {
		row = b.Dy() / 2
	}

	y := b.Min.Y + row
	lit := 0
	for x := b.Min.X; x < b.Max.X; x++ {
		r, g, bl, _ := img.At(x, y).RGBA()
		if luminance(r, g, bl) >= threshold {
			lit++
		}
	}
	return float64(lit) * 100 / float64(b.Dx())
}
