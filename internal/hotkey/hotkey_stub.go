//go:build !windows

package hotkey

func (m *Manager) startPlatform() error {
	m.logger.Warn("global hooks not supported on this platform")
	return nil
}
