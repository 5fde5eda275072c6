// Package metrics exposes Prometheus instrumentation for the memorizer
// daemon: the shape of the knowledge tree, the ingestion pipeline's
// throughput, optimizer activity, retrieval latency, and the health of the
// optional provider/cache backends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "memorizer"
)

// Tree metrics track the current shape of the knowledge tree.
var (
	// TreeNodesTotal is the number of nodes in the tree.
	TreeNodesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tree_nodes_total",
		Help:      "Number of nodes in the knowledge tree",
	})

	// TreeDomainsTotal is the number of Domain nodes under the root.
	TreeDomainsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tree_domains_total",
		Help:      "Number of domain nodes under the root",
	})

	// TreeMaxDepth is the deepest level currently present in the tree.
	TreeMaxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tree_max_depth",
		Help:      "Deepest level currently present in the tree",
	})
)

// Ingestion metrics track the folder-processing pipeline.
var (
	// FoldersProcessedTotal counts process-folder runs by outcome.
	FoldersProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "folders_processed_total",
		Help:      "Folder-processing runs by outcome",
	}, []string{"outcome"})

	// FilesProcessedTotal counts files read during folder processing.
	FilesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_processed_total",
		Help:      "Files read during folder processing",
	})

	// EntitiesExtractedTotal counts extracted entities.
	EntitiesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entities_extracted_total",
		Help:      "Entities extracted during folder processing",
	})

	// RelationshipsExtractedTotal counts extracted relationships.
	RelationshipsExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relationships_extracted_total",
		Help:      "Relationships extracted during folder processing",
	})

	// CrossLinksCreatedTotal counts cross-links added by the agent.
	CrossLinksCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cross_links_created_total",
		Help:      "Cross-links created between tree branches",
	})

	// FolderProcessingDuration is a histogram of per-folder processing time.
	FolderProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "folder_processing_duration_seconds",
		Help:      "Duration of folder-processing runs in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	})
)

// Optimizer metrics track the prune/merge/compress maintenance passes.
var (
	// OptimizerRunsTotal counts optimizer passes.
	OptimizerRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "optimizer_runs_total",
		Help:      "Optimizer passes executed",
	})

	// OptimizerNodesPrunedTotal counts nodes removed by the prune phase.
	OptimizerNodesPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "optimizer_nodes_pruned_total",
		Help:      "Nodes removed by the optimizer's prune phase",
	})

	// OptimizerNodesMergedTotal counts nodes collapsed by sibling merging.
	OptimizerNodesMergedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "optimizer_nodes_merged_total",
		Help:      "Nodes collapsed by the optimizer's sibling-merge phase",
	})
)

// Persistence metrics track tree saves.
var (
	// TreeSavesTotal counts save attempts by outcome.
	TreeSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tree_saves_total",
		Help:      "Tree save attempts by outcome",
	}, []string{"outcome"})
)

// Query metrics track retrieval operations.
var (
	// QueriesTotal counts queries by kind (keyword, full).
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Retrieval operations by kind",
	}, []string{"kind"})

	// QueryDuration is a histogram of retrieval latency by kind.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Retrieval latency in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~2s
	}, []string{"kind"})
)

// Cache metrics track cache operations.
var (
	// CacheHitsTotal is the total number of cache hits by cache type.
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits",
	}, []string{"cache"})

	// CacheMissesTotal is the total number of cache misses by cache type.
	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses",
	}, []string{"cache"})
)

// Provider metrics track AI provider API usage.
var (
	// ProviderRequestsTotal is the total number of provider API requests.
	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Total number of provider API requests",
	}, []string{"provider", "operation"})

	// ProviderErrorsTotal is the total number of provider API errors.
	ProviderErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_errors_total",
		Help:      "Total number of provider API errors",
	}, []string{"provider", "operation"})

	// ProviderTokensTotal is the total number of tokens consumed.
	ProviderTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_tokens_total",
		Help:      "Total number of tokens consumed",
	}, []string{"provider", "type"})
)

// Watcher metrics track filesystem monitoring.
var (
	// WatcherEventsTotal is the total number of filesystem events.
	WatcherEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "watcher_events_total",
		Help:      "Total number of filesystem events",
	}, []string{"type"})

	// WatcherPathsTotal is the total number of paths being watched.
	WatcherPathsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "watcher_paths_total",
		Help:      "Total number of paths being watched",
	})
)

// MCP metrics track the operational API.
var (
	// MCPRequestsTotal is the total number of MCP tool calls.
	MCPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mcp_requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"method"})
)

// Daemon metrics track daemon health and uptime.
var (
	// DaemonInfo provides daemon version and build information.
	DaemonInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_info",
		Help:      "Daemon version and build information",
	}, []string{"version", "go_version"})

	// DaemonStartTime is the unix timestamp when the daemon started.
	DaemonStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daemon_start_time_seconds",
		Help:      "Unix timestamp when the daemon started",
	})

	// ComponentStatus tracks the health status of daemon components.
	ComponentStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "component_status",
		Help:      "Health status of daemon components (1=healthy, 0=unhealthy)",
	}, []string{"component"})
)
