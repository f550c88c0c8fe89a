//go:build windows

package osutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowTextOfNullWindow(t *testing.T) {
	assert.Equal(t, "", windowText(0))
}

func TestListProcessesReturnsPIDs(t *testing.T) {
	procs, err := NewWindowService().ListProcesses("")
	require.NoError(t, err)
	for _, p := range procs {
		assert.NotZero(t, p.PID)
	}
}
