//go:build windows

package osutils

import "golang.org/x/sys/windows"

// IsElevated reports whether the process token is elevated. Windows blocks
// hooks and SendInput from reaching elevated windows otherwise.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
