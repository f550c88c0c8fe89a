package hotkey

import (
	"context"

	"vmacro/internal/logic"
)

// WaitClick blocks until the user presses and releases button, or ctx is
// done. Synthetic clicks do not count.
func (m *Manager) WaitClick(ctx context.Context, button logic.MouseButton) error {
	clicked := make(chan struct{})
	pressed := false
	var closed bool
	unsub := m.SubscribeMouse(func(ev MouseEvent) {
		if ev.Injected || ev.Button != button || closed {
			return
		}
		if ev.Pressed {
			pressed = true
			return
		}
		if pressed {
			closed = true
			close(clicked)
		}
	})
	defer unsub()

	select {
	case <-clicked:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
