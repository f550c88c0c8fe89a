package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTriggerKey(t *testing.T) {
	k, err := ParseTriggerKey("Ctrl+1")
	require.NoError(t, err)
	assert.Equal(t, uint16('1'), k.VirtualKey)
	assert.Equal(t, ModCtrl, k.Modifiers)
	assert.Equal(t, "Ctrl+1", k.String())

	k, err = ParseTriggerKey("shift+alt+f5")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x74), k.VirtualKey)
	assert.Equal(t, ModAlt|ModShift, k.Modifiers)
	assert.Equal(t, "Alt+Shift+F5", k.String())

	_, err = ParseTriggerKey("A+B")
	assert.Error(t, err)
	_, err = ParseTriggerKey("")
	assert.Error(t, err)
}

func TestTriggerKeyCombo(t *testing.T) {
	a := TriggerKey{VirtualKey: '1', Modifiers: ModCtrl, ScanCode: 2}
	b := TriggerKey{VirtualKey: '1', Modifiers: ModCtrl, Location: "numpad"}
	assert.Equal(t, a.Combo(), b.Combo())
	assert.True(t, a.Matches('1', ModCtrl))
	assert.False(t, a.Matches('1', ModCtrl|ModShift))
}

func TestKeyNames(t *testing.T) {
	assert.Equal(t, "Space", KeyName(VKSpace))
	assert.Equal(t, "F12", KeyName(0x7B))
	assert.Equal(t, "Q", KeyName('Q'))

	vk, err := VirtualKey("escape")
	require.NoError(t, err)
	assert.Equal(t, VKEscape, vk)

	_, err = VirtualKey("hyper")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestLogicValidate(t *testing.T) {
	trig := &TriggerKey{VirtualKey: '1', Modifiers: ModCtrl}
	l := &Logic{Name: "a", RepeatCount: 1, TriggerKey: trig, Items: []Item{{Order: 1, Payload: DelayPayload{Duration: 1}}}}
	require.NoError(t, l.Validate())

	l.Name = "  "
	assert.ErrorIs(t, l.Validate(), ErrEmptyName)
	l.Name = "a"

	l.RepeatCount = 0
	assert.ErrorIs(t, l.Validate(), ErrInvalidRepeat)
	l.RepeatCount = 1

	l.IsNested = true
	assert.ErrorIs(t, l.Validate(), ErrNestedTrigger)
	l.TriggerKey = nil
	require.NoError(t, l.Validate())

	l.IsNested = false
	assert.ErrorIs(t, l.Validate(), ErrMissingTrigger)
}

func TestLogicCloneIsDeep(t *testing.T) {
	l := &Logic{Name: "a", TriggerKey: &TriggerKey{VirtualKey: 'A'}, Items: []Item{{Order: 1, Payload: WriteTextPayload{Text: "x"}}}}
	c := l.Clone()
	c.TriggerKey.VirtualKey = 'B'
	c.Items[0].Payload = WriteTextPayload{Text: "y"}
	assert.Equal(t, uint16('A'), l.TriggerKey.VirtualKey)
	assert.Equal(t, "x", l.Items[0].Payload.(WriteTextPayload).Text)
}
