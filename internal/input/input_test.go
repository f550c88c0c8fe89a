package input

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vmacro/internal/logging"
	"vmacro/internal/logic"
	"vmacro/internal/osutils"
)

func TestKeyStrokeFor(t *testing.T) {
	k := KeyStrokeFor(logic.KeyPayload{VirtualKey: logic.VKSpace, ScanCode: 0x39})
	assert.Equal(t, KeyStroke{VirtualKey: logic.VKSpace, ScanCode: 0x39}, k)

	assert.True(t, KeyStrokeFor(logic.KeyPayload{VirtualKey: 0x25}).Extended, "arrow keys are extended")
	assert.True(t, KeyStrokeFor(logic.KeyPayload{VirtualKey: logic.VKControl, Location: "right"}).Extended)
	assert.False(t, KeyStrokeFor(logic.KeyPayload{VirtualKey: logic.VKLCtrl}).Extended)
}

func TestResolvePoint(t *testing.T) {
	client := osutils.Rect{Left: 100, Top: 50, Right: 900, Bottom: 650}

	x, y := ResolvePoint(logic.MousePayload{X: 10, Y: 20, RatioX: 0.5, RatioY: 0.25}, client)
	assert.Equal(t, 500, x)
	assert.Equal(t, 200, y)

	x, y = ResolvePoint(logic.MousePayload{X: 10, Y: 20}, client)
	assert.Equal(t, 10, x)
	assert.Equal(t, 20, y)

	x, y = ResolvePoint(logic.MousePayload{X: 10, Y: 20, RatioX: 0.5, RatioY: 0.5}, osutils.Rect{})
	assert.Equal(t, 10, x, "unknown client size falls back to absolute coordinates")
	assert.Equal(t, 20, y)
}

func TestLoggerInjector(t *testing.T) {
	var inj Injector = NewLogger(logging.Discard())
	assert.NoError(t, inj.SendKey(KeyStroke{VirtualKey: logic.VKSpace}, true))
	assert.NoError(t, inj.SendMouse(logic.ButtonLeft, false))
	assert.NoError(t, inj.MoveTo(1, 2))
	assert.NoError(t, inj.TypeText("héllo"))
}
