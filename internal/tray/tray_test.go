package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTray_MenuBookkeepingBeforeRun(t *testing.T) {
	tr := New("VMACRO", "idle")
	status := tr.AddStatus("Target: none")
	tr.AddSeparator()

	var toggled []bool
	box := tr.AddCheckbox("Timed trigger", false, func(on bool) { toggled = append(toggled, on) })
	quit := tr.AddMenuItem("Quit", func() {})

	tr.SetItemTitle(status, "Target: game.exe")
	item, ok := tr.Item(status)
	require.True(t, ok)
	assert.Equal(t, "Target: game.exe", item.Title)
	assert.True(t, item.Disabled)

	cb, _ := tr.Item(box)
	cb.Callback()
	cb.Callback()
	assert.Equal(t, []bool{true, false}, toggled)

	_, ok = tr.Item(1)
	assert.False(t, ok, "separators are not items")
	_, ok = tr.Item(quit + 1)
	assert.False(t, ok)

	tr.SetTooltip("active")
	assert.Equal(t, "active", tr.currentTooltip())
}

func TestGetIcon(t *testing.T) {
	icon := getIcon()
	assert.Len(t, icon, 1118)
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00}, icon[:4])
}
