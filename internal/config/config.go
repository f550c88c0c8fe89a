// Package config provides configuration management for the macro service.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
)

const appName = "vmacro"

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config represents the application configuration
type Config struct {
	// TargetProcess is the image name of the process to automate (e.g. "game.exe")
	TargetProcess string `json:"target_process"`

	// Storage selects where logics are persisted
	Storage StorageConfig `json:"storage"`

	// Execution tunes logic playback
	Execution ExecutionConfig `json:"execution"`

	// Process tunes foreground window tracking
	Process ProcessConfig `json:"process"`

	// TimedTrigger configures the key-sequence countdown
	TimedTrigger TimedTriggerConfig `json:"timed_trigger"`

	// General contains general application settings
	General GeneralConfig `json:"general"`
}

// StorageConfig selects the logic repository backend
type StorageConfig struct {
	// Backend is "json" or "sqlite"
	Backend string `json:"backend"`

	// Path is the data file; relative paths resolve against the config directory
	Path string `json:"path"`
}

// ExecutionConfig tunes the orchestrator
type ExecutionConfig struct {
	// MaxNestingDepth bounds nested-logic expansion (default: 16)
	MaxNestingDepth int `json:"max_nesting_depth"`

	// ImagePollIntervalMs is how often image_search items re-check (default: 100)
	ImagePollIntervalMs int `json:"image_poll_interval_ms"`

	// ImageDir is where relative image_search paths resolve
	ImageDir string `json:"image_dir,omitempty"`
}

// ProcessConfig tunes the activity monitor
type ProcessConfig struct {
	// PollIntervalMs is the foreground sampling period (default: 100)
	PollIntervalMs int `json:"poll_interval_ms"`
}

// TimedTriggerConfig configures the auxiliary countdown feature
type TimedTriggerConfig struct {
	// Enabled is the feature toggle
	Enabled bool `json:"enabled"`

	// ArmKeys are the group A key names; pressing any arms the sequence
	ArmKeys []string `json:"arm_keys"`

	// ConfirmKey is the group B key name; releasing it while armed starts the countdown
	ConfirmKey string `json:"confirm_key"`

	// DurationMs is the countdown length (default: 10000)
	DurationMs int `json:"duration_ms"`

	// SequenceTimeoutMs is how long an armed sequence waits for confirm (default: 10000)
	SequenceTimeoutMs int `json:"sequence_timeout_ms"`

	// ResumeOnReopen restarts an interrupted countdown when the target regains focus
	ResumeOnReopen *bool `json:"resume_on_reopen,omitempty"`
}

// Resume reports the effective resume_on_reopen setting (default: true).
func (t TimedTriggerConfig) Resume() bool {
	return t.ResumeOnReopen == nil || *t.ResumeOnReopen
}

// Duration returns the countdown length.
func (t TimedTriggerConfig) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}

// SequenceTimeout returns the arm timeout.
func (t TimedTriggerConfig) SequenceTimeout() time.Duration {
	return time.Duration(t.SequenceTimeoutMs) * time.Millisecond
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// ForceStopHotkey aborts the running logic (e.g. "Ctrl+Alt+Shift+Esc")
	ForceStopHotkey string `json:"force_stop_hotkey"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level"`

	// LogFile, when set, receives a copy of the log
	LogFile string `json:"log_file,omitempty"`

	// ShowNotifications shows tray notifications when a run fails
	ShowNotifications bool `json:"show_notifications"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendJSON,
			Path:    "logics.json",
		},
		Execution: ExecutionConfig{
			MaxNestingDepth:     16,
			ImagePollIntervalMs: 100,
		},
		Process: ProcessConfig{
			PollIntervalMs: 100,
		},
		TimedTrigger: TimedTriggerConfig{
			Enabled:           false,
			ArmKeys:           []string{"F1", "F2"},
			ConfirmKey:        "F3",
			DurationMs:        10000,
			SequenceTimeoutMs: 10000,
		},
		General: GeneralConfig{
			ForceStopHotkey:   "Ctrl+Alt+Shift+Esc",
			LogLevel:          "info",
			ShowNotifications: true,
		},
	}
}

// Validate replaces out-of-range values with defaults and reports what it
// changed.
func (c *Config) Validate() []string {
	def := DefaultConfig()
	var fixed []string
	fix := func(field string) { fixed = append(fixed, field) }

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend != BackendJSON && c.Storage.Backend != BackendSQLite {
		fix("storage.backend")
		c.Storage.Backend = def.Storage.Backend
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		fix("storage.path")
		if c.Storage.Backend == BackendSQLite {
			c.Storage.Path = "logics.db"
		} else {
			c.Storage.Path = def.Storage.Path
		}
	}
	if c.Execution.MaxNestingDepth < 1 || c.Execution.MaxNestingDepth > 256 {
		fix("execution.max_nesting_depth")
		c.Execution.MaxNestingDepth = def.Execution.MaxNestingDepth
	}
	if c.Execution.ImagePollIntervalMs < 10 {
		fix("execution.image_poll_interval_ms")
		c.Execution.ImagePollIntervalMs = def.Execution.ImagePollIntervalMs
	}
	if c.Process.PollIntervalMs < 10 {
		fix("process.poll_interval_ms")
		c.Process.PollIntervalMs = def.Process.PollIntervalMs
	}
	if c.TimedTrigger.DurationMs <= 0 {
		fix("timed_trigger.duration_ms")
		c.TimedTrigger.DurationMs = def.TimedTrigger.DurationMs
	}
	if c.TimedTrigger.SequenceTimeoutMs <= 0 {
		fix("timed_trigger.sequence_timeout_ms")
		c.TimedTrigger.SequenceTimeoutMs = def.TimedTrigger.SequenceTimeoutMs
	}
	if c.General.ForceStopHotkey == "" {
		fix("general.force_stop_hotkey")
		c.General.ForceStopHotkey = def.General.ForceStopHotkey
	}
	return fixed
}

func (c *Config) clone() *Config {
	cp := *c
	cp.TimedTrigger.ArmKeys = slices.Clone(c.TimedTrigger.ArmKeys)
	if c.TimedTrigger.ResumeOnReopen != nil {
		v := *c.TimedTrigger.ResumeOnReopen
		cp.TimedTrigger.ResumeOnReopen = &v
	}
	return &cp
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
	logger     *slog.Logger
}

// NewManager creates a new configuration manager
func NewManager(logger *slog.Logger) (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath, logger), nil
}

// NewManagerAt creates a manager for an explicit config file path.
func NewManagerAt(path string, logger *slog.Logger) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
		logger:     logger.With("component", "config"),
	}
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, appName)
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", appName)
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the config file path.
func (m *Manager) Path() string { return m.configPath }

// Dir returns the directory holding the config file.
func (m *Manager) Dir() string { return filepath.Dir(m.configPath) }

// Resolve makes a relative path absolute against the config directory.
func (m *Manager) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir(), path)
}

// Load reads the configuration from disk
func (m *Manager) Load() error {
	m.mu.Lock()
	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		// No config file, use defaults
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("parse %s: %w", m.configPath, err)
	}
	if fixed := cfg.Validate(); len(fixed) > 0 {
		m.logger.Warn("invalid settings replaced with defaults", "fields", fixed)
	}
	m.config = cfg
	fn := m.onChanged
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	m.logger.Info("saving configuration", "path", m.configPath, "bytes", len(data))
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.clone()
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config.clone()
	fn := m.onChanged
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Update applies fn to the configuration under the lock and notifies.
func (m *Manager) Update(fn func(*Config)) {
	m.mu.Lock()
	fn(m.config)
	cb := m.onChanged
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
