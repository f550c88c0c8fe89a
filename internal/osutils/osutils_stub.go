//go:build !windows

package osutils

// IsElevated always reports false off Windows.
func IsElevated() bool { return false }
