//go:build !windows

package capture

import "image"

// Unsupported is the capture service on platforms without GDI.
type Unsupported struct{}

// NewService returns the platform capture service.
func NewService() Service {
	return Unsupported{}
}

func (Unsupported) CaptureArea(image.Rectangle) (image.Image, error) {
	return nil, ErrUnsupportedPlatform
}
