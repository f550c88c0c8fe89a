// Package process tracks the user-selected target process and whether its
// window currently has focus.
package process

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"vmacro/internal/osutils"
)

// Binding holds the selected target process. Activity is always computed
// from a fresh OS query; nothing is cached across decisions.
type Binding struct {
	mu       sync.RWMutex
	windows  osutils.WindowService
	selected *osutils.ProcessInfo
	logger   *slog.Logger
}

// NewBinding creates a binding with no target selected.
func NewBinding(windows osutils.WindowService, logger *slog.Logger) *Binding {
	return &Binding{
		windows: windows,
		logger:  logger.With("component", "process"),
	}
}

// SetSelected replaces the target. A nil info clears it.
func (b *Binding) SetSelected(info *osutils.ProcessInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if info == nil {
		b.selected = nil
		b.logger.Info("target cleared")
		return
	}
	cp := *info
	b.selected = &cp
	b.logger.Info("target selected", "pid", cp.PID, "name", cp.Name)
}

// Selected returns a copy of the current target, or nil.
func (b *Binding) Selected() *osutils.ProcessInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.selected == nil {
		return nil
	}
	cp := *b.selected
	return &cp
}

// Active returns the process owning the foreground window, or nil when the
// OS query fails.
func (b *Binding) Active() *osutils.ProcessInfo {
	hwnd, err := b.windows.ForegroundWindow()
	if err != nil {
		b.logger.Debug("foreground query failed", "error", err)
		return nil
	}
	pid, err := b.windows.WindowProcessID(hwnd)
	if err != nil {
		b.logger.Warn("window process query failed", "error", err)
		return nil
	}
	return &osutils.ProcessInfo{PID: pid, HWND: hwnd}
}

// IsSelectedActive reports whether the selected process owns the foreground
// window. It performs exactly one OS query.
func (b *Binding) IsSelectedActive() bool {
	sel := b.Selected()
	if sel == nil {
		return false
	}
	active := b.Active()
	return active != nil && active.PID == sel.PID
}

// TargetWindow returns the foreground window when it belongs to the
// selected process.
func (b *Binding) TargetWindow() (uintptr, bool) {
	sel := b.Selected()
	if sel == nil {
		return 0, false
	}
	active := b.Active()
	if active == nil || active.PID != sel.PID {
		return 0, false
	}
	return active.HWND, true
}

// ClientRect returns the client rectangle of the foreground target window.
func (b *Binding) ClientRect() (osutils.Rect, bool) {
	hwnd, ok := b.TargetWindow()
	if !ok {
		return osutils.Rect{}, false
	}
	r, err := b.windows.ClientRect(hwnd)
	if err != nil {
		b.logger.Warn("client rect query failed", "error", err)
		return osutils.Rect{}, false
	}
	return r, true
}

// SelectByName selects the first windowed process whose image name equals
// name, case-insensitively.
func (b *Binding) SelectByName(name string) (osutils.ProcessInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return osutils.ProcessInfo{}, fmt.Errorf("empty process name")
	}
	procs, err := b.windows.ListProcesses(name)
	if err != nil {
		return osutils.ProcessInfo{}, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		if strings.EqualFold(p.Name, name) {
			b.SetSelected(&p)
			return p, nil
		}
	}
	return osutils.ProcessInfo{}, fmt.Errorf("process %q not found", name)
}
