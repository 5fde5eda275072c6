package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig_ReturnsTypedConfig(t *testing.T) {
	// Create temp directory with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `log_level: debug
log_file: /var/log/test.log
tree:
  base_dir: /var/lib/memorizer/tree
  spill_nodes: true
agent:
  max_files_per_folder: 250
  auto_cross_link: false
  summary_file_count: 5
  summary_line_count: 3
optimizer:
  max_idle_days: 30
  min_siblings_for_merge: 4
  max_depth_threshold: 5
watcher:
  debounce_window_ms: 250
  directories:
    - path: /home/user/notes
      enabled: true
      mode: realtime
query:
  max_results: 50
  keyword_weight: 0.6
embeddings:
  enabled: true
  provider: openai
  model: text-embedding-3-small
  dimensions: 1536
  api_key_env: TEST_EMBED_KEY
database:
  registry_path: /tmp/registry.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	// Verify values
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Tree.BaseDir != "/var/lib/memorizer/tree" {
		t.Errorf("Tree.BaseDir = %q, want %q", cfg.Tree.BaseDir, "/var/lib/memorizer/tree")
	}
	if !cfg.Tree.SpillNodes {
		t.Error("Tree.SpillNodes = false, want true")
	}
	if cfg.Agent.MaxFilesPerFolder != 250 {
		t.Errorf("Agent.MaxFilesPerFolder = %d, want %d", cfg.Agent.MaxFilesPerFolder, 250)
	}
	if cfg.Optimizer.MinSiblingsForMerge != 4 {
		t.Errorf("Optimizer.MinSiblingsForMerge = %d, want %d", cfg.Optimizer.MinSiblingsForMerge, 4)
	}
	if len(cfg.Watcher.Directories) != 1 || cfg.Watcher.Directories[0].Path != "/home/user/notes" {
		t.Errorf("Watcher.Directories = %+v, want one entry for /home/user/notes", cfg.Watcher.Directories)
	}
	if cfg.Watcher.Directories[0].Mode != "realtime" {
		t.Errorf("Watcher.Directories[0].Mode = %q, want %q", cfg.Watcher.Directories[0].Mode, "realtime")
	}
	if cfg.Query.MaxResults != 50 {
		t.Errorf("Query.MaxResults = %d, want %d", cfg.Query.MaxResults, 50)
	}
	if cfg.Embeddings.Dimensions != 1536 {
		t.Errorf("Embeddings.Dimensions = %d, want %d", cfg.Embeddings.Dimensions, 1536)
	}
	if cfg.Database.RegistryPath != "/tmp/registry.db" {
		t.Errorf("Database.RegistryPath = %q, want %q", cfg.Database.RegistryPath, "/tmp/registry.db")
	}
}

func TestLoad_InvalidConfig_ReturnsValidationError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// min_siblings_for_merge below the allowed minimum
	configContent := `optimizer:
  min_siblings_for_merge: 1
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	_, err := LoadFromPath(configPath)
	if err == nil {
		t.Fatal("LoadFromPath() expected error for invalid optimizer threshold")
	}

	if !IsValidationError(err) {
		t.Errorf("expected validation error, got %T: %v", err, err)
	}
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("LoadFromPath() expected error for missing file")
	}
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `invalid: [yaml: content`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	_, err := LoadFromPath(configPath)
	if err == nil {
		t.Fatal("LoadFromPath() expected error for invalid YAML")
	}
}

func TestLoadWithDefaults_ReturnsDefaultConfig(t *testing.T) {
	cfg := LoadWithDefaults()

	if cfg == nil {
		t.Fatal("LoadWithDefaults() returned nil")
	}

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.Tree.BaseDir != DefaultTreeBaseDir {
		t.Errorf("Tree.BaseDir = %q, want %q", cfg.Tree.BaseDir, DefaultTreeBaseDir)
	}
	if cfg.Embeddings.Provider != DefaultEmbeddingsProvider {
		t.Errorf("Embeddings.Provider = %q, want %q", cfg.Embeddings.Provider, DefaultEmbeddingsProvider)
	}
}

func TestLoad_UsesViperDefaults_WhenKeysNotInFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Minimal config - should get defaults for unspecified keys
	configContent := `log_level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	// Specified value
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}

	// Default values
	if cfg.Tree.BaseDir != DefaultTreeBaseDir {
		t.Errorf("Tree.BaseDir = %q, want default %q", cfg.Tree.BaseDir, DefaultTreeBaseDir)
	}
	if cfg.Query.MaxResults != DefaultQueryMaxResults {
		t.Errorf("Query.MaxResults = %d, want default %d", cfg.Query.MaxResults, DefaultQueryMaxResults)
	}
}
