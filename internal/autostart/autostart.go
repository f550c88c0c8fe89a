// Package autostart registers the service to start at user login.
package autostart

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ValueName is the name the service is registered under.
const ValueName = "vmacro"

// ErrUnsupportedPlatform is returned where login start-up is not implemented.
var ErrUnsupportedPlatform = errors.New("autostart: unsupported platform")

// Enable registers the running executable to start on login.
func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	return enable(Command(exe))
}

// Disable removes the login registration. It is not an error if none exists.
func Disable() error { return disable() }

// IsEnabled reports whether a login registration exists.
func IsEnabled() bool { return isEnabled() }

// Command is the command line stored for exe. Paths with spaces are quoted.
func Command(exe string) string {
	if strings.ContainsAny(exe, " \t") && !strings.HasPrefix(exe, `"`) {
		return `"` + exe + `"`
	}
	return exe
}
