package metrics

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leefowlercu/memorizer/internal/version"
)

// MetricsProvider is implemented by components that refresh their gauges on
// a collection tick (e.g. the daemon's tree-shape snapshot).
type MetricsProvider interface {
	// CollectMetrics refreshes the component's gauges.
	CollectMetrics(ctx context.Context) error
}

// Collector drives periodic gauge refreshes across registered providers
// and reports each provider's health via ComponentStatus.
type Collector struct {
	mu        sync.RWMutex
	providers map[string]MetricsProvider
	interval  time.Duration
	stopCh    chan struct{}
	running   bool
}

// NewCollector creates a collector ticking at interval.
func NewCollector(interval time.Duration) *Collector {
	return &Collector{
		providers: make(map[string]MetricsProvider),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Register adds a metrics provider to the collector.
func (c *Collector) Register(name string, provider MetricsProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = provider
}

// Unregister removes a metrics provider from the collector.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.providers, name)
}

// Start begins periodic collection. Safe to call once per collector.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	DaemonStartTime.Set(float64(time.Now().Unix()))
	DaemonInfo.WithLabelValues(version.Get().Version, runtime.Version()).Set(1)

	c.collect(ctx)
	go c.run(ctx)

	return nil
}

// Stop halts periodic collection.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	close(c.stopCh)
	c.running = false
	return nil
}

func (c *Collector) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	c.mu.RLock()
	providers := make(map[string]MetricsProvider, len(c.providers))
	for k, v := range c.providers {
		providers[k] = v
	}
	c.mu.RUnlock()

	for name, provider := range providers {
		if err := provider.CollectMetrics(ctx); err != nil {
			ComponentStatus.WithLabelValues(name).Set(0)
		} else {
			ComponentStatus.WithLabelValues(name).Set(1)
		}
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a handler for a specific registry.
func HandlerFor(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordFolderProcessed records one process-folder run.
func RecordFolderProcessed(duration time.Duration, filesProcessed, entities, relationships, crossLinks int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	FoldersProcessedTotal.WithLabelValues(outcome).Inc()
	FolderProcessingDuration.Observe(duration.Seconds())
	FilesProcessedTotal.Add(float64(filesProcessed))
	EntitiesExtractedTotal.Add(float64(entities))
	RelationshipsExtractedTotal.Add(float64(relationships))
	CrossLinksCreatedTotal.Add(float64(crossLinks))
}

// RecordOptimizerRun records one optimizer pass.
func RecordOptimizerRun(pruned, merged int) {
	OptimizerRunsTotal.Inc()
	OptimizerNodesPrunedTotal.Add(float64(pruned))
	OptimizerNodesMergedTotal.Add(float64(merged))
}

// RecordTreeSave records one save attempt.
func RecordTreeSave(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	TreeSavesTotal.WithLabelValues(outcome).Inc()
}

// RecordQuery records one retrieval operation.
func RecordQuery(kind string, duration time.Duration) {
	QueriesTotal.WithLabelValues(kind).Inc()
	QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordProviderRequest records a provider API request.
func RecordProviderRequest(provider, operation string, duration time.Duration, tokens int, err error) {
	ProviderRequestsTotal.WithLabelValues(provider, operation).Inc()
	if tokens > 0 {
		ProviderTokensTotal.WithLabelValues(provider, "total").Add(float64(tokens))
	}
	if err != nil {
		ProviderErrorsTotal.WithLabelValues(provider, operation).Inc()
	}
}

// RecordCacheAccess records a cache access.
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordWatcherEvent records a filesystem event.
func RecordWatcherEvent(eventType string) {
	WatcherEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordMCPRequest records an MCP tool call.
func RecordMCPRequest(method string) {
	MCPRequestsTotal.WithLabelValues(method).Inc()
}

// UpdateTreeMetrics refreshes the tree-shape gauges.
func UpdateTreeMetrics(nodes, domains, maxDepth int) {
	TreeNodesTotal.Set(float64(nodes))
	TreeDomainsTotal.Set(float64(domains))
	TreeMaxDepth.Set(float64(maxDepth))
}

// UpdateWatcherMetrics refreshes the watcher gauges.
func UpdateWatcherMetrics(pathCount int) {
	WatcherPathsTotal.Set(float64(pathCount))
}
