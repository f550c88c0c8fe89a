package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "vmacro.log")
	svc, err := New(Options{Level: LevelDebug, File: path})
	require.NoError(t, err)

	svc.For("executor").Info("run started", "logic", "A")
	NewSink(svc.Logger()).Log("gauge read", LevelWarn, "capture")
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "component=executor")
	assert.Contains(t, out, "source=capture")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	svc, err := New(Options{Level: LevelError, File: path})
	require.NoError(t, err)
	svc.Logger().Info("dropped")
	svc.Logger().Error("kept")
	require.NoError(t, svc.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}
