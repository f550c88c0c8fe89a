// Package logging owns the process-wide logger. One logger is built at
// startup and handed to every component, which tags it with its own
// component name.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level mirrors the levels used by the tool's log sink.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) slog() slog.Level {
	switch Level(strings.ToLower(string(l))) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options configures the logging service.
type Options struct {
	Level Level
	// File, when set, receives a copy of every record.
	File string
	// Stderr controls whether records are also written to stderr.
	Stderr bool
}

// Service is the process-wide logging service. It is created once with New
// and closed on shutdown.
type Service struct {
	logger *slog.Logger
	file   *os.File
	once   sync.Once
}

// New builds the logging service.
func New(opts Options) (*Service, error) {
	var writers []io.Writer
	if opts.Stderr {
		writers = append(writers, os.Stderr)
	}

	s := &Service{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		s.file = f
		writers = append(writers, f)
	}

	var w io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	s.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level.slog()}))
	return s, nil
}

// Logger returns the root logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

// For returns a logger tagged with the component name.
func (s *Service) For(component string) *slog.Logger {
	return s.logger.With("component", component)
}

// Close flushes and closes the log file, if any.
func (s *Service) Close() error {
	var err error
	s.once.Do(func() {
		if s.file != nil {
			err = s.file.Close()
		}
	})
	return err
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Sink is the fire-and-forget log contract consumed by collaborators that
// only know about (message, level, source).
type Sink interface {
	Log(message string, level Level, source string)
}

type slogSink struct {
	logger *slog.Logger
}

// NewSink adapts a slog logger to the Sink contract. Log never panics.
func NewSink(logger *slog.Logger) Sink {
	return &slogSink{logger: logger}
}

func (s *slogSink) Log(message string, level Level, source string) {
	defer func() { _ = recover() }()
	s.logger.Log(context.Background(), level.slog(), message, "source", source)
}
