package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	// Logging defaults.
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/memorizer/memorizer.log"

	// Tree defaults.
	DefaultTreeBaseDir    = "~/.config/memorizer/tree"
	DefaultTreeSpillNodes = false

	// Agent defaults.
	DefaultAgentMaxFilesPerFolder = 1000
	DefaultAgentAutoCrossLink     = true
	DefaultAgentSummaryFileCount  = 10
	DefaultAgentSummaryLineCount  = 5

	// Optimizer defaults.
	DefaultOptimizerEnablePruneStale    = true
	DefaultOptimizerEnableMergeSimilar  = true
	DefaultOptimizerEnableCompressDeep  = true
	DefaultOptimizerMaxIdleDays         = 90
	DefaultOptimizerMinAccessCount      = 2
	DefaultOptimizerMinSiblingsForMerge = 5
	DefaultOptimizerMaxDepthThreshold   = 6

	// Watcher defaults.
	DefaultWatcherDebounceWindowMs    = 500
	DefaultWatcherDeleteGracePeriodMs = 2000

	// Query defaults.
	DefaultQueryMaxResults          = 20
	DefaultQueryKeywordWeight       = 0.5
	DefaultQuerySemanticWeight      = 0.35
	DefaultQueryRecencyWeight       = 0.15
	DefaultQueryMinRelevance        = 0.1
	DefaultQueryExpandRelated       = true
	DefaultQueryRecencyHalfLifeDays = 30.0

	// Embeddings provider defaults.
	DefaultEmbeddingsEnabled         = false
	DefaultEmbeddingsProvider        = "openai"
	DefaultEmbeddingsModel           = "text-embedding-3-large"
	DefaultEmbeddingsDimensions      = 3072
	DefaultEmbeddingsAPIKeyEnv       = "OPENAI_API_KEY"
	DefaultEmbeddingsMaxCacheEntries = 10000

	// Database defaults.
	DefaultDatabaseRegistryPath = "~/.config/memorizer/registry.db"

	// Daemon defaults.
	DefaultDaemonPIDFile                 = "~/.config/memorizer/memorizer.pid"
	DefaultDaemonAutosaveIntervalSeconds = 300
	DefaultDaemonOptimizeIntervalSeconds = 3600

	// Metrics defaults.
	DefaultMetricsEnabled                = false
	DefaultMetricsListenAddr             = "127.0.0.1:9090"
	DefaultMetricsCollectIntervalSeconds = 15

	// MCP defaults.
	DefaultMCPEnabled    = false
	DefaultMCPListenAddr = "127.0.0.1:9091"
	DefaultMCPBasePath   = "/mcp"

	// Graph mirror defaults.
	DefaultGraphMirrorEnabled     = false
	DefaultGraphMirrorHost        = "localhost"
	DefaultGraphMirrorPort        = 6379
	DefaultGraphMirrorGraphName   = "memorizer"
	DefaultGraphMirrorPasswordEnv = "MEMORIZER_GRAPHMIRROR_PASSWORD"
)

// NewDefaultConfig returns a Config populated with all default values.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		Tree: TreeConfig{
			BaseDir:    DefaultTreeBaseDir,
			SpillNodes: DefaultTreeSpillNodes,
		},
		Agent: AgentConfig{
			MaxFilesPerFolder: DefaultAgentMaxFilesPerFolder,
			AutoCrossLink:     DefaultAgentAutoCrossLink,
			SummaryFileCount:  DefaultAgentSummaryFileCount,
			SummaryLineCount:  DefaultAgentSummaryLineCount,
		},
		Optimizer: OptimizerConfig{
			EnablePruneStale:    DefaultOptimizerEnablePruneStale,
			EnableMergeSimilar:  DefaultOptimizerEnableMergeSimilar,
			EnableCompressDeep:  DefaultOptimizerEnableCompressDeep,
			MaxIdleDays:         DefaultOptimizerMaxIdleDays,
			MinAccessCount:      DefaultOptimizerMinAccessCount,
			MinSiblingsForMerge: DefaultOptimizerMinSiblingsForMerge,
			MaxDepthThreshold:   DefaultOptimizerMaxDepthThreshold,
		},
		Watcher: WatcherConfig{
			DebounceWindowMs:    DefaultWatcherDebounceWindowMs,
			DeleteGracePeriodMs: DefaultWatcherDeleteGracePeriodMs,
		},
		Query: QueryConfig{
			MaxResults:          DefaultQueryMaxResults,
			KeywordWeight:       DefaultQueryKeywordWeight,
			SemanticWeight:      DefaultQuerySemanticWeight,
			RecencyWeight:       DefaultQueryRecencyWeight,
			MinRelevance:        DefaultQueryMinRelevance,
			ExpandRelated:       DefaultQueryExpandRelated,
			RecencyHalfLifeDays: DefaultQueryRecencyHalfLifeDays,
		},
		Embeddings: EmbeddingsConfig{
			Enabled:         DefaultEmbeddingsEnabled,
			Provider:        DefaultEmbeddingsProvider,
			Model:           DefaultEmbeddingsModel,
			Dimensions:      DefaultEmbeddingsDimensions,
			APIKey:          nil,
			APIKeyEnv:       DefaultEmbeddingsAPIKeyEnv,
			MaxCacheEntries: DefaultEmbeddingsMaxCacheEntries,
		},
		Defaults: DefaultsConfig{
			Skip: SkipDefaults{
				Extensions:  DefaultSkipExtensions,
				Directories: DefaultSkipDirectories,
				Files:       DefaultSkipFiles,
				Hidden:      DefaultSkipHidden,
			},
			Include: IncludeDefaults{
				Extensions:  []string{},
				Directories: []string{},
				Files:       []string{},
			},
		},
		Database: DatabaseConfig{
			RegistryPath: DefaultDatabaseRegistryPath,
		},
		Daemon: DaemonConfig{
			PIDFile:                 DefaultDaemonPIDFile,
			AutosaveIntervalSeconds: DefaultDaemonAutosaveIntervalSeconds,
			OptimizeIntervalSeconds: DefaultDaemonOptimizeIntervalSeconds,
		},
		Metrics: MetricsConfig{
			Enabled:                DefaultMetricsEnabled,
			ListenAddr:             DefaultMetricsListenAddr,
			CollectIntervalSeconds: DefaultMetricsCollectIntervalSeconds,
		},
		MCP: MCPConfig{
			Enabled:    DefaultMCPEnabled,
			ListenAddr: DefaultMCPListenAddr,
			BasePath:   DefaultMCPBasePath,
		},
		GraphMirror: GraphMirrorConfig{
			Enabled:     DefaultGraphMirrorEnabled,
			Host:        DefaultGraphMirrorHost,
			Port:        DefaultGraphMirrorPort,
			GraphName:   DefaultGraphMirrorGraphName,
			PasswordEnv: DefaultGraphMirrorPasswordEnv,
		},
	}
}

// setDefaults registers all default configuration values with the global
// viper instance. Retained for callers that use viper's package-level API
// directly; Load/LoadFromPath use setViperDefaults on a scoped instance.
func setDefaults() {
	setViperDefaults(viper.GetViper())
}
