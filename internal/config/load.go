package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and returns the typed configuration.
// It searches for configuration files in priority order:
//  1. Directory specified by MEMORIZER_CONFIG_DIR environment variable
//  2. ~/.config/memorizer/
//  3. Current working directory (.)
//
// If no config file is found, returns an error directing the user to run
// "memorizer config edit", which creates one. If a config file exists but is invalid, returns a validation
// error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MEMORIZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setViperDefaults(v)

	if envPath := os.Getenv("MEMORIZER_CONFIG_DIR"); envPath != "" {
		v.AddConfigPath(envPath)
	}

	if home := os.Getenv("HOME"); home != "" {
		v.AddConfigPath(filepath.Join(home, ".config", "memorizer"))
	}

	v.AddConfigPath(".")

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("no config file found; run 'memorizer config edit' to create one")
		}
		return nil, fmt.Errorf("failed to read config; %w", err)
	}

	return unmarshalConfig(v)
}

// LoadFromPath reads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MEMORIZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setViperDefaults(v)

	err := v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read config from %s; %w", path, err)
	}

	return unmarshalConfig(v)
}

// LoadWithDefaults returns configuration using defaults only.
// Use this in contexts where a config file is not required.
func LoadWithDefaults() *Config {
	cfg := NewDefaultConfig()
	return &cfg
}

// unmarshalConfig converts viper config to typed Config struct.
func unmarshalConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	err := v.Unmarshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setViperDefaults registers all default configuration values with a viper instance.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)

	v.SetDefault("tree.base_dir", DefaultTreeBaseDir)
	v.SetDefault("tree.spill_nodes", DefaultTreeSpillNodes)

	v.SetDefault("agent.max_files_per_folder", DefaultAgentMaxFilesPerFolder)
	v.SetDefault("agent.auto_cross_link", DefaultAgentAutoCrossLink)
	v.SetDefault("agent.summary_file_count", DefaultAgentSummaryFileCount)
	v.SetDefault("agent.summary_line_count", DefaultAgentSummaryLineCount)

	v.SetDefault("optimizer.enable_prune_stale", DefaultOptimizerEnablePruneStale)
	v.SetDefault("optimizer.enable_merge_similar", DefaultOptimizerEnableMergeSimilar)
	v.SetDefault("optimizer.enable_compress_deep", DefaultOptimizerEnableCompressDeep)
	v.SetDefault("optimizer.max_idle_days", DefaultOptimizerMaxIdleDays)
	v.SetDefault("optimizer.min_access_count", DefaultOptimizerMinAccessCount)
	v.SetDefault("optimizer.min_siblings_for_merge", DefaultOptimizerMinSiblingsForMerge)
	v.SetDefault("optimizer.max_depth_threshold", DefaultOptimizerMaxDepthThreshold)

	v.SetDefault("watcher.debounce_window_ms", DefaultWatcherDebounceWindowMs)
	v.SetDefault("watcher.delete_grace_period_ms", DefaultWatcherDeleteGracePeriodMs)

	v.SetDefault("query.max_results", DefaultQueryMaxResults)
	v.SetDefault("query.keyword_weight", DefaultQueryKeywordWeight)
	v.SetDefault("query.semantic_weight", DefaultQuerySemanticWeight)
	v.SetDefault("query.recency_weight", DefaultQueryRecencyWeight)
	v.SetDefault("query.min_relevance", DefaultQueryMinRelevance)
	v.SetDefault("query.expand_related", DefaultQueryExpandRelated)
	v.SetDefault("query.recency_half_life_days", DefaultQueryRecencyHalfLifeDays)

	v.SetDefault("embeddings.enabled", DefaultEmbeddingsEnabled)
	v.SetDefault("embeddings.provider", DefaultEmbeddingsProvider)
	v.SetDefault("embeddings.model", DefaultEmbeddingsModel)
	v.SetDefault("embeddings.dimensions", DefaultEmbeddingsDimensions)
	v.SetDefault("embeddings.api_key_env", DefaultEmbeddingsAPIKeyEnv)
	v.SetDefault("embeddings.max_cache_entries", DefaultEmbeddingsMaxCacheEntries)

	v.SetDefault("defaults.skip.extensions", DefaultSkipExtensions)
	v.SetDefault("defaults.skip.directories", DefaultSkipDirectories)
	v.SetDefault("defaults.skip.files", DefaultSkipFiles)
	v.SetDefault("defaults.skip.hidden", true)

	v.SetDefault("database.registry_path", DefaultDatabaseRegistryPath)

	v.SetDefault("daemon.pid_file", DefaultDaemonPIDFile)
	v.SetDefault("daemon.autosave_interval_seconds", DefaultDaemonAutosaveIntervalSeconds)
	v.SetDefault("daemon.optimize_interval_seconds", DefaultDaemonOptimizeIntervalSeconds)

	v.SetDefault("metrics.enabled", DefaultMetricsEnabled)
	v.SetDefault("metrics.listen_addr", DefaultMetricsListenAddr)
	v.SetDefault("metrics.collect_interval_seconds", DefaultMetricsCollectIntervalSeconds)

	v.SetDefault("mcp.enabled", DefaultMCPEnabled)
	v.SetDefault("mcp.listen_addr", DefaultMCPListenAddr)
	v.SetDefault("mcp.base_path", DefaultMCPBasePath)

	v.SetDefault("graph_mirror.enabled", DefaultGraphMirrorEnabled)
	v.SetDefault("graph_mirror.host", DefaultGraphMirrorHost)
	v.SetDefault("graph_mirror.port", DefaultGraphMirrorPort)
	v.SetDefault("graph_mirror.graph_name", DefaultGraphMirrorGraphName)
	v.SetDefault("graph_mirror.password_env", DefaultGraphMirrorPasswordEnv)
}
