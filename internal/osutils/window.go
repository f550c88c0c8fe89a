// Package osutils provides the OS window and process queries the tool needs:
// the foreground window, its owning process, visible top-level windows and
// client-area geometry.
package osutils

import (
	"errors"
	"strings"
)

var (
	// ErrUnsupportedPlatform is returned when running on an unsupported OS
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrNoForegroundWindow is returned when no window has focus
	ErrNoForegroundWindow = errors.New("no foreground window")
)

// ProcessInfo identifies a process owning a top-level window.
type ProcessInfo struct {
	PID   uint32  `json:"pid"`
	Name  string  `json:"name"`
	Title string  `json:"title"`
	HWND  uintptr `json:"hwnd"`
}

// Rect is a window rectangle in screen coordinates.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Width returns the rectangle width.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the rectangle height.
func (r Rect) Height() int { return r.Bottom - r.Top }

// WindowService is the single point where OS window state enters the model.
type WindowService interface {
	ForegroundWindow() (uintptr, error)
	WindowProcessID(hwnd uintptr) (uint32, error)
	ListProcesses(filter string) ([]ProcessInfo, error)
	// ClientRect returns the client area of hwnd in screen coordinates.
	ClientRect(hwnd uintptr) (Rect, error)
}

// matchFilter reports whether p matches a case-insensitive substring filter
// on its image name or window title. An empty filter matches everything.
func matchFilter(p ProcessInfo, filter string) bool {
	if filter == "" {
		return true
	}
	f := strings.ToLower(filter)
	return strings.Contains(strings.ToLower(p.Name), f) || strings.Contains(strings.ToLower(p.Title), f)
}
