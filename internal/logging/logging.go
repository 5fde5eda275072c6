// Package logging manages the process-wide slog setup: a stderr-only
// bootstrap logger available before configuration loads, upgraded in place
// to a stderr-text + rotated-JSON-file fanout once the log file path and
// level are known.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager owns the logger lifecycle. Components obtain a logger via
// Logger() once and keep it; Upgrade and SetLevel affect every held
// reference through the swappable handler.
type Manager struct {
	handler  *SwappableHandler
	logger   *slog.Logger
	fileSink *lumberjack.Logger
	level    *slog.LevelVar
	mu       sync.Mutex
}

// NewManager creates a logging manager in bootstrap mode: text to stderr
// only, at info level. Call Upgrade once configuration is available.
func NewManager() *Manager {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	opts := &slog.HandlerOptions{Level: level}
	bootstrap := slog.NewTextHandler(os.Stderr, opts)

	handler := NewSwappableHandler(bootstrap)
	logger := slog.New(handler)

	return &Manager{
		handler: handler,
		logger:  logger,
		level:   level,
	}
}

// Logger returns the current logger instance.
// The returned logger is stable across Upgrade calls.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Upgrade transitions from bootstrap mode to full mode: text to stderr
// plus size-rotated JSON to logFilePath. Returns an error if the log
// location cannot be created or written.
func (m *Manager) Upgrade(logFilePath string, level slog.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q; %w", dir, err)
	}

	// Touch the file up front so an unwritable location fails Upgrade
	// rather than the first log record.
	probe, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q; %w", logFilePath, err)
	}
	_ = probe.Close()

	if m.fileSink != nil {
		_ = m.fileSink.Close()
	}
	m.fileSink = &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    50, // megabytes per file
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	}

	m.level.Set(level)

	opts := &slog.HandlerOptions{Level: m.level}

	fullHandler := slogmulti.Fanout(
		slog.NewTextHandler(os.Stderr, opts),
		slog.NewJSONHandler(m.fileSink, opts),
	)

	// Atomic swap - all future log calls use the new handler
	m.handler.Swap(fullHandler)

	return nil
}

// SetLevel changes the log level at runtime.
// Applies immediately to all future log calls.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Close shuts the file sink down. Safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fileSink != nil {
		err := m.fileSink.Close()
		m.fileSink = nil
		return err
	}
	return nil
}
