//go:build !windows

package input

import "vmacro/internal/logic"

// Unsupported is the injector on platforms without SendInput.
type Unsupported struct{}

// NewInjector returns the platform injector.
func NewInjector() Injector {
	return Unsupported{}
}

func (Unsupported) SendKey(KeyStroke, bool) error           { return ErrUnsupportedPlatform }
func (Unsupported) SendMouse(logic.MouseButton, bool) error { return ErrUnsupportedPlatform }
func (Unsupported) MoveTo(int, int) error                   { return ErrUnsupportedPlatform }
func (Unsupported) TypeText(string) error                   { return ErrUnsupportedPlatform }
