// Package hotkey provides global system-wide keyboard and mouse monitoring:
// a raw event stream for trigger matching and a registry of string hotkeys
// such as the force-stop combination.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vmacro/internal/logic"
)

// KeyEvent is one keyboard transition seen by the global hook.
type KeyEvent struct {
	VirtualKey uint16
	ScanCode   uint16
	// Modifiers held at the time of the event.
	Modifiers logic.Modifiers
	Pressed   bool
	// Injected is set for synthetic input, including our own playback.
	Injected bool
	Time     time.Time
}

// MouseEvent is one mouse button transition seen by the global hook.
type MouseEvent struct {
	Button   logic.MouseButton
	Pressed  bool
	X, Y     int
	Injected bool
	Time     time.Time
}

// Manager handles global hotkey and mouse button registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // map of current keys/buttons pressed
	keySubs      map[int]func(KeyEvent)
	mouseSubs    map[int]func(MouseEvent)
	nextSub      int
	logger       *slog.Logger

	stopPlatform func()
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "ESC"]
	original string
	callback func()
}

// NewManager creates a new hotkey manager
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		currentState: make(map[string]bool),
		keySubs:      make(map[int]func(KeyEvent)),
		mouseSubs:    make(map[int]func(MouseEvent)),
		logger:       logger.With("component", "hotkey"),
	}
}

// Register registers a hotkey string (e.g. "Ctrl+Alt+1", "Mouse2+Mouse3") and a callback.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if strings.TrimSpace(hotkeyStr) == "" {
		return 0, nil
	}

	parts := strings.Split(hotkeyStr, "+")
	for i, p := range parts {
		name, err := canonicalPart(p)
		if err != nil {
			return 0, fmt.Errorf("hotkey %q: %w", hotkeyStr, err)
		}
		parts[i] = name
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	return len(m.hotkeys) - 1, nil
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// SubscribeKeys registers fn for every keyboard event. Handlers run on the
// hook thread and must return quickly.
func (m *Manager) SubscribeKeys(fn func(KeyEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	id := m.nextSub
	m.keySubs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.keySubs, id)
		m.mu.Unlock()
	}
}

// SubscribeMouse registers fn for every mouse button event.
func (m *Manager) SubscribeMouse(fn func(MouseEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	id := m.nextSub
	m.mouseSubs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.mouseSubs, id)
		m.mu.Unlock()
	}
}

// DispatchKey feeds a keyboard event through hotkey matching and out to
// subscribers. Injected events reach subscribers but never match hotkeys.
func (m *Manager) DispatchKey(ev KeyEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if !ev.Injected {
		m.UpdateState(stateName(ev.VirtualKey), ev.Pressed)
	}
	m.mu.RLock()
	subs := make([]func(KeyEvent), 0, len(m.keySubs))
	for _, fn := range m.keySubs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// DispatchMouse feeds a mouse button event through hotkey matching and out
// to subscribers.
func (m *Manager) DispatchMouse(ev MouseEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if !ev.Injected {
		if name := mouseStateName(ev.Button); name != "" {
			m.UpdateState(name, ev.Pressed)
		}
	}
	m.mu.RLock()
	subs := make([]func(MouseEvent), 0, len(m.mouseSubs))
	for _, fn := range m.mouseSubs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// UpdateState updates the internal state of a key or button and checks for matches.
func (m *Manager) UpdateState(key string, isDown bool) {
	m.mu.Lock()
	key = strings.ToUpper(key)
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	if isDown {
		m.checkMatches()
	}
}

func (m *Manager) checkMatches() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, hk := range m.hotkeys {
		match := true
		// All parts of the hotkey must be in currentState
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
		}

		if match {
			m.logger.Info("hotkey triggered", "hotkey", hk.original)
			go hk.callback()
		}
	}
}

// Start initiates the platform-specific global hooks.
// This is implemented in platform-specific files (hotkey_windows.go, hotkey_stub.go).
func (m *Manager) Start() error {
	return m.startPlatform()
}

// Stop removes the global hooks.
func (m *Manager) Stop() {
	m.mu.Lock()
	stop := m.stopPlatform
	m.stopPlatform = nil
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// stateName is the pressed-state key for a virtual key. Left and right
// modifier variants collapse onto one name.
func stateName(vk uint16) string {
	switch logic.ModifierFor(vk) {
	case logic.ModCtrl:
		return "CTRL"
	case logic.ModAlt:
		return "ALT"
	case logic.ModShift:
		return "SHIFT"
	case logic.ModWin:
		return "WIN"
	}
	return strings.ToUpper(logic.KeyName(vk))
}

func mouseStateName(b logic.MouseButton) string {
	switch b {
	case logic.ButtonLeft:
		return "MOUSE1"
	case logic.ButtonMiddle:
		return "MOUSE2"
	case logic.ButtonRight:
		return "MOUSE3"
	}
	return ""
}

func canonicalPart(p string) (string, error) {
	p = strings.ToUpper(strings.TrimSpace(p))
	switch p {
	case "MOUSE1", "MOUSE2", "MOUSE3", "MOUSE4", "MOUSE5":
		return p, nil
	}
	vk, err := logic.VirtualKey(p)
	if err != nil {
		return "", err
	}
	return stateName(vk), nil
}
