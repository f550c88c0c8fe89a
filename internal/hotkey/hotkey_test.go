package hotkey

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmacro/internal/logging"
	"vmacro/internal/logic"
)

func press(m *Manager, vk uint16, down bool) {
	m.DispatchKey(KeyEvent{VirtualKey: vk, Pressed: down})
}

func TestManager_ForceStopCombination(t *testing.T) {
	m := NewManager(logging.Discard())
	var fired atomic.Int32
	_, err := m.Register("Ctrl+Alt+Shift+Esc", func() { fired.Add(1) })
	require.NoError(t, err)

	press(m, logic.VKLCtrl, true)
	press(m, logic.VKRAlt, true)
	press(m, logic.VKShift, true)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	press(m, logic.VKEscape, true)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)

	press(m, logic.VKEscape, false)
	press(m, 0x41, true)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestManager_InjectedEventsNeverMatch(t *testing.T) {
	m := NewManager(logging.Discard())
	var fired atomic.Int32
	_, err := m.Register("F5", func() { fired.Add(1) })
	require.NoError(t, err)

	var seen []KeyEvent
	m.SubscribeKeys(func(ev KeyEvent) { seen = append(seen, ev) })

	m.DispatchKey(KeyEvent{VirtualKey: 0x74, Pressed: true, Injected: true})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Injected)
	assert.False(t, seen[0].Time.IsZero())
}

func TestManager_RegisterRejectsUnknownKey(t *testing.T) {
	m := NewManager(logging.Discard())
	_, err := m.Register("Ctrl+Bogus", func() {})
	assert.ErrorIs(t, err, logic.ErrUnknownKey)

	id, err := m.Register("", func() {})
	assert.NoError(t, err)
	assert.Zero(t, id)
}

func TestManager_MouseHotkeyAndSubscribers(t *testing.T) {
	m := NewManager(logging.Discard())
	var fired atomic.Int32
	_, err := m.Register("Mouse2+Mouse3", func() { fired.Add(1) })
	require.NoError(t, err)

	var buttons []logic.MouseButton
	unsub := m.SubscribeMouse(func(ev MouseEvent) { buttons = append(buttons, ev.Button) })

	m.DispatchMouse(MouseEvent{Button: logic.ButtonMiddle, Pressed: true})
	m.DispatchMouse(MouseEvent{Button: logic.ButtonRight, Pressed: true})
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)

	unsub()
	m.DispatchMouse(MouseEvent{Button: logic.ButtonLeft, Pressed: true})
	assert.Equal(t, []logic.MouseButton{logic.ButtonMiddle, logic.ButtonRight}, buttons)
}

func TestManager_Clear(t *testing.T) {
	m := NewManager(logging.Discard())
	var fired atomic.Int32
	_, err := m.Register("F1", func() { fired.Add(1) })
	require.NoError(t, err)
	m.Clear()

	press(m, 0x70, true)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestManager_WaitClick(t *testing.T) {
	m := NewManager(logging.Discard())
	done := make(chan error, 1)
	go func() { done <- m.WaitClick(context.Background(), logic.ButtonLeft) }()

	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.mouseSubs) == 1
	}, time.Second, time.Millisecond)

	m.DispatchMouse(MouseEvent{Button: logic.ButtonLeft, Pressed: false})
	m.DispatchMouse(MouseEvent{Button: logic.ButtonLeft, Pressed: true, Injected: true})
	m.DispatchMouse(MouseEvent{Button: logic.ButtonRight, Pressed: true})
	m.DispatchMouse(MouseEvent{Button: logic.ButtonRight, Pressed: false})
	select {
	case <-done:
		t.Fatal("returned before a real left click")
	case <-time.After(10 * time.Millisecond):
	}

	m.DispatchMouse(MouseEvent{Button: logic.ButtonLeft, Pressed: true})
	m.DispatchMouse(MouseEvent{Button: logic.ButtonLeft, Pressed: false})
	require.NoError(t, <-done)
}

func TestManager_WaitClickCancelled(t *testing.T) {
	m := NewManager(logging.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.WaitClick(ctx, logic.ButtonMiddle), context.DeadlineExceeded)
}
