package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmacro/internal/logging"
	"vmacro/internal/logic"
	"vmacro/internal/osutils"
)

func gaugeImage(width, dark int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, 5))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 200, G: 30, B: 30, A: 255}}, image.Point{}, draw.Src)
	for x := width - dark; x < width; x++ {
		img.Set(x, 2, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	}
	return img
}

func TestAnalyzeGauge(t *testing.T) {
	assert.InDelta(t, 70.0, AnalyzeGauge(gaugeImage(10, 3), MiddleRow), 1e-9)
	assert.InDelta(t, 100.0, AnalyzeGauge(gaugeImage(10, 0), MiddleRow), 1e-9)
	assert.InDelta(t, 0.0, AnalyzeGauge(gaugeImage(10, 10), MiddleRow), 1e-9)

	// Row 0 is untouched by the dark segment.
	assert.InDelta(t, 100.0, AnalyzeGauge(gaugeImage(10, 3), GaugeOptions{Row: 0}), 1e-9)
	assert.Zero(t, AnalyzeGauge(nil, MiddleRow))
}

func TestAnalyzeGauge_Threshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	for x, v := range []uint8{0, 60, 120, 250} {
		img.SetGray(x, 0, color.Gray{Y: v})
	}
	assert.InDelta(t, 75.0, AnalyzeGauge(img, MiddleRow), 1e-9)
	assert.InDelta(t, 50.0, AnalyzeGauge(img, GaugeOptions{Row: -1, Threshold: 100}), 1e-9)
}

func pattern() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	for i := range img.Pix {
		img.Pix[i] = uint8(30 + i*17)
	}
	return img
}

func haystackWith(needle image.Image, at image.Point) *image.RGBA {
	h := image.NewRGBA(image.Rect(0, 0, 20, 15))
	draw.Draw(h, h.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(h, needle.Bounds().Add(at), needle, image.Point{}, draw.Src)
	return h
}

func TestFindTemplate(t *testing.T) {
	needle := pattern()
	hay := haystackWith(needle, image.Pt(5, 7))

	at, score, found := FindTemplate(hay, needle, 0.9)
	require.True(t, found)
	assert.Equal(t, image.Pt(5, 7), at)
	assert.InDelta(t, 1.0, score, 1e-9)

	blank := image.NewRGBA(image.Rect(0, 0, 20, 15))
	draw.Draw(blank, blank.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	_, score, found = FindTemplate(blank, needle, 0.9)
	assert.False(t, found)
	assert.Less(t, score, 0.9)

	_, _, found = FindTemplate(needle, hay, 0.1)
	assert.False(t, found, "needle larger than haystack")
}

type fakeCapture struct {
	img  image.Image
	err  error
	rect image.Rectangle
}

func (f *fakeCapture) CaptureArea(r image.Rectangle) (image.Image, error) {
	f.rect = r
	return f.img, f.err
}

func writePNG(t *testing.T, dir, name string, img image.Image) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestMatcher_Match(t *testing.T) {
	dir := t.TempDir()
	needle := pattern()
	writePNG(t, dir, "icon.png", needle)

	fc := &fakeCapture{img: haystackWith(needle, image.Pt(2, 2))}
	m := NewMatcher(fc, dir, logging.Discard())
	client := osutils.Rect{Left: 100, Top: 200, Right: 900, Bottom: 800}
	p := logic.ImageSearchPayload{
		Area:      logic.Area{X: 10, Y: 20, Width: 20, Height: 15},
		ImagePath: "icon.png",
	}

	found, err := m.Match(context.Background(), p, client)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, image.Rect(110, 220, 130, 235), fc.rect)

	// Cached: removing the file does not matter any more.
	require.NoError(t, os.Remove(filepath.Join(dir, "icon.png")))
	_, err = m.Match(context.Background(), p, client)
	require.NoError(t, err)

	m.Forget()
	_, err = m.Match(context.Background(), p, client)
	assert.Error(t, err)
}

func TestMatcher_CaptureFailure(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "icon.png", pattern())
	m := NewMatcher(&fakeCapture{err: errors.New("no screen")}, dir, logging.Discard())

	_, err := m.Match(context.Background(), logic.ImageSearchPayload{
		Area:      logic.Area{Width: 5, Height: 5},
		ImagePath: "icon.png",
	}, osutils.Rect{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Match(ctx, logic.ImageSearchPayload{ImagePath: "icon.png"}, osutils.Rect{})
	assert.ErrorIs(t, err, context.Canceled)
}
