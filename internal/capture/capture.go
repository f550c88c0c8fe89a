// Package capture grabs screen regions and runs the small amount of image
// analysis the macros need: gauge fill levels and template search.
package capture

import (
	"errors"
	"image"
)

// ErrUnsupportedPlatform is returned by the capture service where no
// screen capture backend exists.
var ErrUnsupportedPlatform = errors.New("screen capture not supported on this platform")

// Service captures a rectangle of the screen.
type Service interface {
	CaptureArea(r image.Rectangle) (image.Image, error)
}

// luminance returns the Rec. 601 luma of a colour, 0..255.
func luminance(r, g, b uint32) float64 {
	// RGBA() returns 16-bit channels.
	return (0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8))
}

// grayscale converts img into a row-major luma buffer.
func grayscale(img image.Image) ([]float64, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y*w+x] = luminance(r, g, bl)
		}
	}
	return out, w, h
}
