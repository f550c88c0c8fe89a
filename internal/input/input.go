// Package input injects synthetic keyboard and mouse input into the session.
package input

import (
	"errors"
	"log/slog"
	"math"

	"vmacro/internal/logic"
	"vmacro/internal/osutils"
)

// ErrUnsupportedPlatform is returned by injectors on platforms without an
// input injection backend.
var ErrUnsupportedPlatform = errors.New("input injection not supported on this platform")

// KeyStroke identifies the physical key to send.
type KeyStroke struct {
	VirtualKey uint16
	ScanCode   uint16
	Extended   bool
}

// KeyStrokeFor builds the stroke for a recorded key item.
func KeyStrokeFor(p logic.KeyPayload) KeyStroke {
	return KeyStroke{
		VirtualKey: p.VirtualKey,
		ScanCode:   p.ScanCode,
		Extended:   p.Location == "right" || isExtendedKey(p.VirtualKey),
	}
}

func isExtendedKey(vk uint16) bool {
	switch vk {
	case logic.VKRCtrl, logic.VKRAlt, logic.VKLWin, logic.VKRWin,
		0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x2D, 0x2E, 0x6F:
		return true
	}
	return false
}

// Injector sends input to whatever window has focus.
type Injector interface {
	SendKey(k KeyStroke, pressed bool) error
	SendMouse(button logic.MouseButton, pressed bool) error
	// MoveTo moves the cursor to absolute screen coordinates.
	MoveTo(x, y int) error
	TypeText(text string) error
}

// ResolvePoint returns the screen position a mouse item targets. Ratios,
// when recorded, are resolved against the client rectangle of the target
// window; otherwise the recorded absolute coordinates are used.
func ResolvePoint(p logic.MousePayload, client osutils.Rect) (x, y int) {
	if (p.RatioX > 0 || p.RatioY > 0) && client.Width() > 0 && client.Height() > 0 {
		x = client.Left + int(math.Round(p.RatioX*float64(client.Width())))
		y = client.Top + int(math.Round(p.RatioY*float64(client.Height())))
		return x, y
	}
	return p.X, p.Y
}

// Logger is an Injector that only logs. It backs dry runs.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a logging injector.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger.With("component", "input")}
}

func (l *Logger) SendKey(k KeyStroke, pressed bool) error {
	l.logger.Info("key", "key", logic.KeyName(k.VirtualKey), "scan", k.ScanCode, "pressed", pressed)
	return nil
}

func (l *Logger) SendMouse(button logic.MouseButton, pressed bool) error {
	l.logger.Info("mouse", "button", button, "pressed", pressed)
	return nil
}

func (l *Logger) MoveTo(x, y int) error {
	l.logger.Info("move", "x", x, "y", y)
	return nil
}

func (l *Logger) TypeText(text string) error {
	l.logger.Info("text", "length", len([]rune(text)))
	return nil
}
