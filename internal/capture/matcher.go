package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"vmacro/internal/logic"
	"vmacro/internal/osutils"
)

// Matcher evaluates image_search items: it captures the configured area of
// the target window and looks for the reference image in it.
type Matcher struct {
	capture Service
	baseDir string
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewMatcher creates a matcher. Relative image paths resolve against baseDir.
func NewMatcher(capture Service, baseDir string, logger *slog.Logger) *Matcher {
	return &Matcher{
		capture: capture,
		baseDir: baseDir,
		logger:  logger.With("component", "capture"),
		cache:   make(map[string]image.Image),
	}
}

// Match captures once and reports whether the reference image is visible.
// client is the target window client rectangle in screen coordinates.
func (m *Matcher) Match(ctx context.Context, p logic.ImageSearchPayload, client osutils.Rect) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	needle, err := m.reference(p.ImagePath)
	if err != nil {
		return false, err
	}

	area := p.Area.Scaled(client.Width(), client.Height())
	rect := image.Rect(client.Left+area.X, client.Top+area.Y, client.Left+area.X+area.Width, client.Top+area.Y+area.Height)
	shot, err := m.capture.CaptureArea(rect)
	if err != nil {
		return false, fmt.Errorf("capture %v: %w", rect, err)
	}

	at, score, found := FindTemplate(shot, needle, p.EffectiveThreshold())
	m.logger.Debug("image search", "image", p.ImagePath, "score", score, "found", found, "at", at)
	return found, nil
}

func (m *Matcher) reference(path string) (image.Image, error) {
	if !filepath.IsAbs(path) && m.baseDir != "" {
		path = filepath.Join(m.baseDir, path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if img, ok := m.cache[path]; ok {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode reference image %s: %w", path, err)
	}
	m.cache[path] = img
	return img, nil
}

// Forget drops cached reference images, e.g. after the files changed.
func (m *Matcher) Forget() {
	m.mu.Lock()
	m.cache = make(map[string]image.Image)
	m.mu.Unlock()
}
