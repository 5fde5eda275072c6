package config

import "os"

// Config is the root configuration structure for the application.
type Config struct {
	LogLevel    string            `yaml:"log_level" mapstructure:"log_level"`
	LogFile     string            `yaml:"log_file" mapstructure:"log_file"`
	Tree        TreeConfig        `yaml:"tree" mapstructure:"tree"`
	Agent       AgentConfig       `yaml:"agent" mapstructure:"agent"`
	Optimizer   OptimizerConfig   `yaml:"optimizer" mapstructure:"optimizer"`
	Watcher     WatcherConfig     `yaml:"watcher" mapstructure:"watcher"`
	Query       QueryConfig       `yaml:"query" mapstructure:"query"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" mapstructure:"embeddings"`
	Defaults    DefaultsConfig    `yaml:"defaults" mapstructure:"defaults"`
	Daemon      DaemonConfig      `yaml:"daemon" mapstructure:"daemon"`
	Database    DatabaseConfig    `yaml:"database" mapstructure:"database"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
	MCP         MCPConfig         `yaml:"mcp" mapstructure:"mcp"`
	GraphMirror GraphMirrorConfig `yaml:"graph_mirror" mapstructure:"graph_mirror"`
}

// DatabaseConfig locates the SQLite file-state registry that backs the
// watcher's incremental indexer.
type DatabaseConfig struct {
	// RegistryPath is the SQLite database file tracking per-file scan
	// state (size, mtime, hash) across daemon restarts.
	RegistryPath string `yaml:"registry_path" mapstructure:"registry_path"`
}

// GraphMirrorConfig controls the optional write-only FalkorDB mirror of the
// knowledge tree (internal/graphmirror). Disabled by default; the tree's
// own JSON persistence (internal/treestore) is always authoritative.
type GraphMirrorConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	GraphName   string `yaml:"graph_name" mapstructure:"graph_name"`
	PasswordEnv string `yaml:"password_env" mapstructure:"password_env"`
}

// MCPConfig controls the Model Context Protocol server that exposes the
// Operational API (IndexDirectory/QueryContext/GetNodeContext/ListDomains)
// as tools.
type MCPConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`
	BasePath   string `yaml:"base_path" mapstructure:"base_path"`
}

// DaemonConfig controls the long-running "memorizer daemon" process: the
// watcher, periodic optimizer, and autosave loop.
type DaemonConfig struct {
	// PIDFile is where the running daemon's process id is recorded so
	// "daemon stop"/"daemon status" can find it.
	PIDFile string `yaml:"pid_file" mapstructure:"pid_file"`

	// AutosaveIntervalSeconds controls how often the daemon persists the
	// tree to disk even without an explicit save trigger.
	AutosaveIntervalSeconds int `yaml:"autosave_interval_seconds" mapstructure:"autosave_interval_seconds"`

	// OptimizeIntervalSeconds controls how often the daemon runs the
	// optimizer's prune/merge/compress pass. Zero disables periodic
	// optimization.
	OptimizeIntervalSeconds int `yaml:"optimize_interval_seconds" mapstructure:"optimize_interval_seconds"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint exposed by
// the daemon.
type MetricsConfig struct {
	Enabled                bool   `yaml:"enabled" mapstructure:"enabled"`
	ListenAddr             string `yaml:"listen_addr" mapstructure:"listen_addr"`
	CollectIntervalSeconds int    `yaml:"collect_interval_seconds" mapstructure:"collect_interval_seconds"`
}

// TreeConfig controls where the persisted ContextTree lives on disk.
type TreeConfig struct {
	// BaseDir is the directory holding tree.json, tree.json.bak, and the
	// optional nodes/ spill directory.
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`

	// SpillNodes enables writing individual node JSON files under
	// BaseDir/nodes/ in addition to the consolidated tree.json.
	SpillNodes bool `yaml:"spill_nodes" mapstructure:"spill_nodes"`
}

// AgentConfig controls the orchestrator's folder-processing pipeline.
type AgentConfig struct {
	// Extensions restricts processing to these file extensions; empty
	// means no restriction beyond the walker's default excludes.
	Extensions []string `yaml:"extensions,flow" mapstructure:"extensions"`

	MaxFilesPerFolder int  `yaml:"max_files_per_folder" mapstructure:"max_files_per_folder"`
	MaxDepth          *int `yaml:"max_depth,omitempty" mapstructure:"max_depth"`
	AutoCrossLink     bool `yaml:"auto_cross_link" mapstructure:"auto_cross_link"`
	SummaryFileCount  int  `yaml:"summary_file_count" mapstructure:"summary_file_count"`
	SummaryLineCount  int  `yaml:"summary_line_count" mapstructure:"summary_line_count"`

	// KnownDomains pre-registers domain names that exist before the first
	// folder is processed (e.g. restored from a different tree source).
	KnownDomains []string `yaml:"known_domains,flow" mapstructure:"known_domains"`

	// HeuristicOnly forces heuristic DocumentAnalysis even if a pluggable
	// analyzer is wired up, for deterministic/offline operation.
	HeuristicOnly bool `yaml:"heuristic_only" mapstructure:"heuristic_only"`

	// AddFileReferences adds a FileReference leaf under each Document
	// node, enabling the optimizer's stale-leaf pruning.
	AddFileReferences bool `yaml:"add_file_references" mapstructure:"add_file_references"`
}

// OptimizerConfig controls the three-phase tree maintenance pass.
type OptimizerConfig struct {
	EnablePruneStale   bool `yaml:"enable_prune_stale" mapstructure:"enable_prune_stale"`
	EnableMergeSimilar bool `yaml:"enable_merge_similar" mapstructure:"enable_merge_similar"`
	EnableCompressDeep bool `yaml:"enable_compress_deep" mapstructure:"enable_compress_deep"`

	MaxIdleDays         int    `yaml:"max_idle_days" mapstructure:"max_idle_days"`
	MinAccessCount      uint64 `yaml:"min_access_count" mapstructure:"min_access_count"`
	MinSiblingsForMerge int    `yaml:"min_siblings_for_merge" mapstructure:"min_siblings_for_merge"`
	MaxDepthThreshold   int    `yaml:"max_depth_threshold" mapstructure:"max_depth_threshold"`
}

// WatchedDirectory is the YAML-facing mirror of watcher.DirectoryConfig;
// Mode is a string here since WatchMode has no yaml/mapstructure tags.
type WatchedDirectory struct {
	Path                  string   `yaml:"path" mapstructure:"path"`
	Enabled               bool     `yaml:"enabled" mapstructure:"enabled"`
	Mode                  string   `yaml:"mode" mapstructure:"mode"` // "realtime", "scheduled", "manual"
	ExcludePatterns       []string `yaml:"exclude_patterns,flow" mapstructure:"exclude_patterns"`
	Priority              int      `yaml:"priority" mapstructure:"priority"`
	MaxDepth              *int     `yaml:"max_depth,omitempty" mapstructure:"max_depth"`
	FollowSymlinks        bool     `yaml:"follow_symlinks" mapstructure:"follow_symlinks"`
	RescanIntervalSeconds int      `yaml:"rescan_interval_seconds" mapstructure:"rescan_interval_seconds"`
}

// WatcherConfig lists the directories kept in sync with the tree.
type WatcherConfig struct {
	Directories         []WatchedDirectory `yaml:"directories" mapstructure:"directories"`
	DebounceWindowMs    int                `yaml:"debounce_window_ms" mapstructure:"debounce_window_ms"`
	DeleteGracePeriodMs int                `yaml:"delete_grace_period_ms" mapstructure:"delete_grace_period_ms"`
}

// QueryConfig controls retrieval.
type QueryConfig struct {
	MaxResults          int     `yaml:"max_results" mapstructure:"max_results"`
	KeywordWeight       float64 `yaml:"keyword_weight" mapstructure:"keyword_weight"`
	SemanticWeight      float64 `yaml:"semantic_weight" mapstructure:"semantic_weight"`
	RecencyWeight       float64 `yaml:"recency_weight" mapstructure:"recency_weight"`
	MinRelevance        float64 `yaml:"min_relevance" mapstructure:"min_relevance"`
	ExpandRelated       bool    `yaml:"expand_related" mapstructure:"expand_related"`
	RecencyHalfLifeDays float64 `yaml:"recency_half_life_days" mapstructure:"recency_half_life_days"`
}

// EmbeddingsConfig holds embeddings provider configuration.
type EmbeddingsConfig struct {
	Enabled         bool    `yaml:"enabled" mapstructure:"enabled"`
	Provider        string  `yaml:"provider" mapstructure:"provider"`
	Model           string  `yaml:"model" mapstructure:"model"`
	Dimensions      int     `yaml:"dimensions" mapstructure:"dimensions"`
	APIKey          *string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	APIKeyEnv       string  `yaml:"api_key_env" mapstructure:"api_key_env"`
	MaxCacheEntries int     `yaml:"max_cache_entries" mapstructure:"max_cache_entries"`

	// CacheRedisAddr, when set, backs the query-vector cache with a shared
	// Redis instance instead of the in-process LRU.
	CacheRedisAddr string `yaml:"cache_redis_addr,omitempty" mapstructure:"cache_redis_addr"`
}

// ResolveAPIKey returns the API key from config or falls back to environment variable.
func (c *EmbeddingsConfig) ResolveAPIKey() string {
	if c.APIKey != nil && *c.APIKey != "" {
		return *c.APIKey
	}
	return os.Getenv(c.APIKeyEnv)
}

// DefaultsConfig holds default skip/include patterns applied by the walker
// when an AgentConfig or WatchedDirectory doesn't set its own.
type DefaultsConfig struct {
	Skip    SkipDefaults    `yaml:"skip" mapstructure:"skip"`
	Include IncludeDefaults `yaml:"include" mapstructure:"include"`
}

// SkipDefaults holds default patterns to skip.
type SkipDefaults struct {
	Extensions  []string `yaml:"extensions,flow" mapstructure:"extensions"`
	Directories []string `yaml:"directories,flow" mapstructure:"directories"`
	Files       []string `yaml:"files,flow" mapstructure:"files"`
	Hidden      bool     `yaml:"hidden" mapstructure:"hidden"`
}

// IncludeDefaults holds default patterns to include (override skip).
type IncludeDefaults struct {
	Extensions  []string `yaml:"extensions,flow" mapstructure:"extensions"`
	Directories []string `yaml:"directories,flow" mapstructure:"directories"`
	Files       []string `yaml:"files,flow" mapstructure:"files"`
}
