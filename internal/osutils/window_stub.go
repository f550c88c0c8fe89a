//go:build !windows

package osutils

// Unsupported is the window service on platforms without window queries.
type Unsupported struct{}

// NewWindowService returns the platform window service.
func NewWindowService() WindowService {
	return Unsupported{}
}

func (Unsupported) ForegroundWindow() (uintptr, error) { return 0, ErrUnsupportedPlatform }

func (Unsupported) WindowProcessID(hwnd uintptr) (uint32, error) {
	return 0, ErrUnsupportedPlatform
}

func (Unsupported) ListProcesses(filter string) ([]ProcessInfo, error) {
	return nil, ErrUnsupportedPlatform
}

func (Unsupported) ClientRect(hwnd uintptr) (Rect, error) { return Rect{}, ErrUnsupportedPlatform }
