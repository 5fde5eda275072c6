package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// upgradedManager returns a Manager already upgraded to full mode with a
// log file in a temp dir.
func upgradedManager(t *testing.T, level slog.Level) (*Manager, string) {
	t.Helper()

	mgr := NewManager()
	t.Cleanup(func() { _ = mgr.Close() })

	logFile := filepath.Join(t.TempDir(), "memorizer.log")
	if err := mgr.Upgrade(logFile, level); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	return mgr, logFile
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	return string(content)
}

func TestNewManager_BootstrapMode(t *testing.T) {
	mgr := NewManager()
	defer mgr.Close()

	if mgr.Logger() == nil {
		t.Fatal("Logger() returned nil in bootstrap mode")
	}
}

func TestManager_Logger_StableAcrossUpgrade(t *testing.T) {
	mgr := NewManager()
	defer mgr.Close()

	before := mgr.Logger()

	logFile := filepath.Join(t.TempDir(), "memorizer.log")
	if err := mgr.Upgrade(logFile, slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}

	if mgr.Logger() != before {
		t.Error("Logger() identity changed across Upgrade; held references would go stale")
	}
}

func TestManager_Upgrade_WritesJSONToFile(t *testing.T) {
	mgr, logFile := upgradedManager(t, slog.LevelInfo)

	mgr.Logger().Info("test message", "key", "value")

	content := readLog(t, logFile)
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace([]byte(content)), &entry); err != nil {
		t.Fatalf("log file is not valid JSON: %v\ncontent: %s", err, content)
	}
	if entry["msg"] != "test message" || entry["key"] != "value" {
		t.Errorf("log entry missing fields: %v", entry)
	}
}

func TestManager_Upgrade_CreatesParentDirs(t *testing.T) {
	mgr := NewManager()
	defer mgr.Close()

	logFile := filepath.Join(t.TempDir(), "nested", "dirs", "memorizer.log")
	if err := mgr.Upgrade(logFile, slog.LevelInfo); err != nil {
		t.Fatalf("Upgrade() should create parent directories, got: %v", err)
	}

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestManager_Upgrade_FailsForUnwritableLocations(t *testing.T) {
	t.Run("path is a directory", func(t *testing.T) {
		mgr := NewManager()
		defer mgr.Close()

		if err := mgr.Upgrade(t.TempDir(), slog.LevelInfo); err == nil {
			t.Error("Upgrade() should error when the path is a directory")
		}
	})

	t.Run("read-only directory", func(t *testing.T) {
		if os.Getuid() == 0 {
			t.Skip("permission checks don't apply to root")
		}

		mgr := NewManager()
		defer mgr.Close()

		readOnlyDir := filepath.Join(t.TempDir(), "readonly")
		if err := os.Mkdir(readOnlyDir, 0444); err != nil {
			t.Fatal(err)
		}
		defer os.Chmod(readOnlyDir, 0755)

		if err := mgr.Upgrade(filepath.Join(readOnlyDir, "memorizer.log"), slog.LevelInfo); err == nil {
			t.Error("Upgrade() should error for a read-only directory")
		}
	})
}

func TestManager_Close_Idempotent(t *testing.T) {
	mgr, _ := upgradedManager(t, slog.LevelInfo)

	if err := mgr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestSwappableHandler_TextFormatBeforeSwap(t *testing.T) {
	var buf bytes.Buffer
	sh := NewSwappableHandler(slog.NewTextHandler(&buf, nil))
	logger := slog.New(sh)

	logger.Info("bootstrap test", "foo", "bar")

	output := buf.String()
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("bootstrap output should be text, got JSON-like: %s", output)
	}
	if !strings.Contains(output, "foo=bar") {
		t.Errorf("text output should carry key=value pairs, got: %s", output)
	}
}

func TestManager_LevelFiltering(t *testing.T) {
	mgr, logFile := upgradedManager(t, slog.LevelInfo)
	logger := mgr.Logger()

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := readLog(t, logFile)

	if strings.Contains(output, "debug message") {
		t.Error("debug should be suppressed at info level")
	}
	for _, want := range []string{"info message", "warn message", "error message"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in log output", want)
		}
	}
}

func TestManager_SetLevel_TakesEffectImmediately(t *testing.T) {
	mgr, logFile := upgradedManager(t, slog.LevelInfo)

	mgr.Logger().Debug("before level change")
	mgr.SetLevel(slog.LevelDebug)
	mgr.Logger().Debug("after level change")

	output := readLog(t, logFile)
	if strings.Contains(output, "before level change") {
		t.Error("debug logged before SetLevel(Debug)")
	}
	if !strings.Contains(output, "after level change") {
		t.Error("debug missing after SetLevel(Debug)")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input     string
		wantLevel slog.Level
		wantOK    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", slog.LevelInfo, false},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run("input_"+tt.input, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.wantLevel || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.wantLevel, tt.wantOK)
			}
			if def := ParseLevelOrDefault(tt.input); def != tt.wantLevel {
				t.Errorf("ParseLevelOrDefault(%q) = %v, want %v", tt.input, def, tt.wantLevel)
			}
		})
	}
}

func TestLogger_With_ChildCarriesContextToFile(t *testing.T) {
	mgr, logFile := upgradedManager(t, slog.LevelInfo)

	child := mgr.Logger().With("component", "daemon", "version", "v1")
	if child == mgr.Logger() {
		t.Error("With() should return a new logger instance")
	}

	child.Info("structured message", "request_id", "abc-123", "count", 42)

	content := readLog(t, logFile)
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace([]byte(content)), &entry); err != nil {
		t.Fatalf("log file should be valid JSON: %v\ncontent: %s", err, content)
	}

	if entry["component"] != "daemon" || entry["version"] != "v1" {
		t.Errorf("child context missing from entry: %v", entry)
	}
	if entry["request_id"] != "abc-123" {
		t.Errorf("call-site attr missing from entry: %v", entry)
	}
	if count, ok := entry["count"].(float64); !ok || count != 42 {
		t.Errorf("count = %v, want 42", entry["count"])
	}
}

func TestLogger_PerComponentChildren(t *testing.T) {
	mgr, logFile := upgradedManager(t, slog.LevelDebug)

	// The injection pattern the daemon uses: one child logger per component.
	mgr.Logger().With("component", "watcher").Info("watcher started")
	mgr.Logger().With("component", "optimizer").Debug("optimize pass", "pruned", 3)

	lines := strings.Split(strings.TrimSpace(readLog(t, logFile)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("parsing first line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("parsing second line: %v", err)
	}

	if first["component"] != "watcher" {
		t.Errorf("first line component = %v, want watcher", first["component"])
	}
	if second["component"] != "optimizer" {
		t.Errorf("second line component = %v, want optimizer", second["component"])
	}
	if pruned, ok := second["pruned"].(float64); !ok || pruned != 3 {
		t.Errorf("pruned = %v, want 3", second["pruned"])
	}
}
