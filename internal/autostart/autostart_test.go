package autostart

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandQuotesPathsWithSpaces(t *testing.T) {
	assert.Equal(t, `C:\tools\vmacro.exe`, Command(`C:\tools\vmacro.exe`))
	assert.Equal(t, `"C:\Program Files\vmacro\vmacro.exe"`, Command(`C:\Program Files\vmacro\vmacro.exe`))
	assert.Equal(t, `"C:\a b\x.exe"`, Command(`"C:\a b\x.exe"`))
}

func TestUnsupportedPlatform(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("registry-backed on windows")
	}
	assert.ErrorIs(t, Enable(), ErrUnsupportedPlatform)
	assert.ErrorIs(t, Disable(), ErrUnsupportedPlatform)
	assert.False(t, IsEnabled())
}
