package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit_NoConfigFile_UsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MEMORIZER_CONFIG_DIR", tmpDir)
	t.Setenv("HOME", tmpDir)

	origDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	t.Cleanup(func() { os.Chdir(origDir) })

	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error when no config file exists: %v", err)
	}

	if path := ConfigFilePath(); path != "" {
		t.Errorf("ConfigFilePath() = %q, want empty string when no config file", path)
	}
}

func TestInit_ConfigInEnvDir_LoadsFromEnvDir(t *testing.T) {
	envDir := t.TempDir()
	configPath := filepath.Join(envDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("agent:\n  max_files_per_folder: 500\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("MEMORIZER_CONFIG_DIR", envDir)
	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	loadedPath := ConfigFilePath()
	if loadedPath != configPath {
		t.Errorf("ConfigFilePath() = %q, want %q", loadedPath, configPath)
	}
}

func TestInit_ConfigInDefaultDir_LoadsFromDefaultDir(t *testing.T) {
	tmpHome := t.TempDir()
	defaultDir := filepath.Join(tmpHome, ".config", "memorizer")
	if err := os.MkdirAll(defaultDir, 0755); err != nil {
		t.Fatalf("failed to create default dir: %v", err)
	}

	configPath := filepath.Join(defaultDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("agent:\n  max_files_per_folder: 500\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("MEMORIZER_CONFIG_DIR", "")
	t.Setenv("HOME", tmpHome)
	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	loadedPath := ConfigFilePath()
	if loadedPath != configPath {
		t.Errorf("ConfigFilePath() = %q, want %q", loadedPath, configPath)
	}
}

func TestInit_InvalidYAML_ReturnsFatalError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	invalidYAML := "agent:\n  max_files_per_folder: [invalid yaml"
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("MEMORIZER_CONFIG_DIR", tmpDir)
	Reset()

	err := Init()
	if err == nil {
		t.Fatal("Init() should return error for invalid YAML, got nil")
	}
}

func TestInit_UnreadableFile_ReturnsFatalError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("skipping test when running as root")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("agent:\n  max_files_per_folder: 10\n"), 0000); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer func() { _ = os.Chmod(configPath, 0644) }()

	t.Setenv("MEMORIZER_CONFIG_DIR", tmpDir)
	Reset()

	err := Init()
	if err == nil {
		t.Fatal("Init() should return error for unreadable file, got nil")
	}
}

func TestEnvOverride_SimpleKey_OverridesFileValue(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("agent:\n  max_files_per_folder: 500\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("MEMORIZER_CONFIG_DIR", tmpDir)
	t.Setenv("MEMORIZER_AGENT_MAX_FILES_PER_FOLDER", "9999")
	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg.Agent.MaxFilesPerFolder != 9999 {
		t.Errorf("Get().Agent.MaxFilesPerFolder = %d, want 9999 (env override)", cfg.Agent.MaxFilesPerFolder)
	}
}

func TestEnvOverride_NoFileValue_UsesEnvValue(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("MEMORIZER_CONFIG_DIR", tmpDir)
	t.Setenv("HOME", tmpDir)

	origDir, _ := os.Getwd()
	os.Chdir(tmpDir)
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("MEMORIZER_TREE_BASE_DIR", "/tmp/custom-tree")
	Reset()

	err := Init()
	if err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg.Tree.BaseDir != "/tmp/custom-tree" {
		t.Errorf("Get().Tree.BaseDir = %q, want /tmp/custom-tree (env value)", cfg.Tree.BaseDir)
	}
}

func TestGet_ReturnsTypedConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `tree:
  base_dir: /tmp/tree-data
agent:
  max_files_per_folder: 250
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("MEMORIZER_CONFIG_DIR", tmpDir)
	Reset()

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	if cfg.Tree.BaseDir != "/tmp/tree-data" {
		t.Errorf("Get().Tree.BaseDir = %q, want /tmp/tree-data", cfg.Tree.BaseDir)
	}
	if cfg.Agent.MaxFilesPerFolder != 250 {
		t.Errorf("Get().Agent.MaxFilesPerFolder = %d, want 250", cfg.Agent.MaxFilesPerFolder)
	}
}

func TestGet_BeforeInit_ReturnsNil(t *testing.T) {
	Reset()
	if cfg := Get(); cfg != nil {
		t.Errorf("Get() before Init() = %v, want nil", cfg)
	}
}

func TestMustGet_BeforeInit_Panics(t *testing.T) {
	Reset()
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustGet() before Init() should panic")
		}
	}()
	_ = MustGet()
}

func TestReload_ValidConfig_UpdatesValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("agent:\n  max_files_per_folder: 500\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("MEMORIZER_CONFIG_DIR", tmpDir)
	Reset()

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg.Agent.MaxFilesPerFolder != 500 {
		t.Errorf("Get().Agent.MaxFilesPerFolder = %d, want 500", cfg.Agent.MaxFilesPerFolder)
	}

	if err := os.WriteFile(configPath, []byte("agent:\n  max_files_per_folder: 999\n"), 0644); err != nil {
		t.Fatalf("failed to update config file: %v", err)
	}

	if err := Reload(); err != nil {
		t.Fatalf("Reload() returned error: %v", err)
	}

	cfg = Get()
	if cfg.Agent.MaxFilesPerFolder != 999 {
		t.Errorf("Get().Agent.MaxFilesPerFolder = %d after reload, want 999", cfg.Agent.MaxFilesPerFolder)
	}
}

func TestReload_InvalidConfig_RetainsPreviousValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("agent:\n  max_files_per_folder: 500\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("MEMORIZER_CONFIG_DIR", tmpDir)
	Reset()

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	cfg := Get()
	if cfg.Agent.MaxFilesPerFolder != 500 {
		t.Errorf("Get().Agent.MaxFilesPerFolder = %d, want 500", cfg.Agent.MaxFilesPerFolder)
	}

	if err := os.WriteFile(configPath, []byte("agent:\n  max_files_per_folder: [invalid yaml"), 0644); err != nil {
		t.Fatalf("failed to corrupt config file: %v", err)
	}

	err := Reload()
	if err == nil {
		t.Error("Reload() should return error for invalid YAML")
	}

	cfg = Get()
	if cfg.Agent.MaxFilesPerFolder != 500 {
		t.Errorf("Get().Agent.MaxFilesPerFolder = %d after failed reload, want 500 (retained)", cfg.Agent.MaxFilesPerFolder)
	}
}

func TestExpandHome(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME environment variable not set")
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"no tilde", "/absolute/path", "/absolute/path"},
		{"relative path", "relative/path", "relative/path"},
		{"tilde only", "~", home},
		{"tilde with slash", "~/config", filepath.Join(home, "config")},
		{"tilde with nested path", "~/.config/memorizer", filepath.Join(home, ".config/memorizer")},
		{"tilde not at start", "/path/to/~", "/path/to/~"},
		{"tilde without slash", "~invalid", "~invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandHome(tt.input)
			if got != tt.want {
				t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandHome_NoHome(t *testing.T) {
	origHome := os.Getenv("HOME")
	defer func() { _ = os.Setenv("HOME", origHome) }()

	_ = os.Unsetenv("HOME")

	input := "~/.config/memorizer"
	got := expandHome(input)
	if got != input {
		t.Errorf("expandHome(%q) with no HOME = %q, want %q (unchanged)", input, got, input)
	}
}

func TestExpandPath_ExpandsTilde(t *testing.T) {
	home := os.Getenv("HOME")
	if home == "" {
		t.Skip("HOME environment variable not set")
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tilde path", "~/.config/memorizer/app.log", filepath.Join(home, ".config/memorizer/app.log")},
		{"absolute path", "/var/log/memorizer.log", "/var/log/memorizer.log"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandPath(tt.input)
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
