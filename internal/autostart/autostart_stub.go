//go:build !windows

package autostart

func enable(string) error { return ErrUnsupportedPlatform }

func disable() error { return ErrUnsupportedPlatform }

func isEnabled() bool { return false }
