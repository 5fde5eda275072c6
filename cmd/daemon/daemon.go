// Package daemon provides the "daemon" command tree (start/stop/status),
// which hosts the directory watcher, periodic optimizer, and autosave loop
// as a single long-running process with a pidfile and sd_notify readiness.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	systemdDaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/leefowlercu/memorizer/internal/agent"
	"github.com/leefowlercu/memorizer/internal/cmdutil"
	"github.com/leefowlercu/memorizer/internal/config"
	"github.com/leefowlercu/memorizer/internal/events"
	"github.com/leefowlercu/memorizer/internal/graphmirror"
	"github.com/leefowlercu/memorizer/internal/mcp"
	"github.com/leefowlercu/memorizer/internal/metrics"
	"github.com/leefowlercu/memorizer/internal/optimizer"
	"github.com/leefowlercu/memorizer/internal/query"
	"github.com/leefowlercu/memorizer/internal/registry"
	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/internal/treestore"
	"github.com/leefowlercu/memorizer/internal/watcher"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// DaemonCmd is the parent command for daemon lifecycle management.
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background watcher/optimizer/autosave daemon",
	Long: "Manage the long-running daemon process that keeps the knowledge " +
		"tree in sync with its watched directories: it hosts the directory " +
		"watcher, runs the optimizer on a fixed interval, and autosaves the " +
		"tree periodically.",
}

func init() {
	DaemonCmd.AddCommand(startCmd, stopCmd, statusCmd)
}

var foreground bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	Long: "Start the daemon. This implementation always runs in the " +
		"foreground (suitable for systemd Type=notify units or a supervised " +
		"process); use --foreground explicitly to document intent in scripts.",
	PreRunE: validateDaemon,
	RunE:    runStart,
}

var stopCmd = &cobra.Command{
	Use:     "stop",
	Short:   "Stop a running daemon by its pidfile",
	PreRunE: validateDaemon,
	RunE:    runStop,
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Report whether the daemon is running",
	PreRunE: validateDaemon,
	RunE:    runStatus,
}

func init() {
	startCmd.Flags().BoolVar(&foreground, "foreground", true, "run in the foreground (the only supported mode)")
}

func validateDaemon(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg := config.MustGet()
	pidPath := config.ExpandPath(cfg.Daemon.PIDFile)

	if pid, running, _ := readPIDFile(pidPath); running {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing pidfile %s; %w", pidPath, err)
	}
	defer os.Remove(pidPath)

	logger := slog.Default()
	out := cmd.OutOrStdout()

	t, store, err := cmdutil.OpenTree(logger)
	if err != nil {
		return err
	}

	bus := events.NewBus(events.WithLogger(logger))
	defer bus.Close()
	config.SetEventBus(bus)
	defer config.SetEventBus(nil)

	unsubscribe := bus.Subscribe(events.ConfigReloaded, func(ev events.Event) {
		if payload, ok := ev.Payload.(events.ConfigReloadEvent); ok {
			logger.Info("configuration reloaded",
				"changed_sections", payload.ChangedSections,
				"hot_reloadable", payload.ReloadableChanges)
		}
	})
	defer unsubscribe()

	reg, err := registry.Open(cmd.Context(), config.ExpandPath(cfg.Database.RegistryPath))
	if err != nil {
		return fmt.Errorf("opening file-state registry; %w", err)
	}
	defer reg.Close()

	w, err := watcher.New(watcher.WithStateStore(reg))
	if err != nil {
		return fmt.Errorf("creating watcher; %w", err)
	}

	for _, wd := range cfg.Watcher.Directories {
		if !wd.Enabled {
			continue
		}
		dcfg, err := wd.ToDirectoryConfig()
		if err != nil {
			return fmt.Errorf("watched directory %s; %w", wd.Path, err)
		}
		if err := w.Watch(dcfg); err != nil {
			return fmt.Errorf("watching %s; %w", wd.Path, err)
		}
	}

	agentOpts := []agent.Option{agent.WithLogger(logger)}

	var mirror *graphmirror.Mirror
	if cfg.GraphMirror.Enabled {
		mirror = graphmirror.New(graphmirror.WithConfig(graphmirror.Config{
			Host:        cfg.GraphMirror.Host,
			Port:        cfg.GraphMirror.Port,
			GraphName:   cfg.GraphMirror.GraphName,
			PasswordEnv: cfg.GraphMirror.PasswordEnv,
		}), graphmirror.WithLogger(logger))
		agentOpts = append(agentOpts, agent.WithMirror(mirror))
	}

	orch := agent.New(t, agent.Config{
		Extensions:        cfg.Agent.Extensions,
		MaxFilesPerFolder: cfg.Agent.MaxFilesPerFolder,
		MaxDepth:          cfg.Agent.MaxDepth,
		AutoCrossLink:     cfg.Agent.AutoCrossLink,
		SummaryFileCount:  cfg.Agent.SummaryFileCount,
		SummaryLineCount:  cfg.Agent.SummaryLineCount,
		KnownDomains:      cfg.Agent.KnownDomains,
		HeuristicOnly:     cfg.Agent.HeuristicOnly,
		AddFileReferences: cfg.Agent.AddFileReferences,
	}, agentOpts...)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if mirror != nil {
		if err := mirror.Start(ctx); err != nil {
			return fmt.Errorf("starting graph mirror; %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mirror.Stop(shutdownCtx)
		}()
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher; %w", err)
	}
	defer w.Stop()

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector(durationOrDefault(cfg.Metrics.CollectIntervalSeconds, 15))
		collector.Register("tree", treeGauges{t})
		collector.Register("watcher", watcherGauges{w})
		if err := collector.Start(ctx); err != nil {
			logger.Warn("starting metrics collector failed", "error", err)
		}
		defer collector.Stop(context.Background())

		go serveMetrics(ctx, cfg.Metrics.ListenAddr, logger)
	}

	if cfg.MCP.Enabled {
		qcfg := query.Config{
			MaxResults:          cfg.Query.MaxResults,
			KeywordWeight:       cfg.Query.KeywordWeight,
			SemanticWeight:      cfg.Query.SemanticWeight,
			RecencyWeight:       cfg.Query.RecencyWeight,
			MinRelevance:        cfg.Query.MinRelevance,
			ExpandRelated:       cfg.Query.ExpandRelated,
			RecencyHalfLifeDays: cfg.Query.RecencyHalfLifeDays,
		}
		engineOpts := append([]query.Option{query.WithLogger(logger)}, cmdutil.EmbeddingsOptions(cfg, logger)...)
		engine := query.New(t, qcfg, engineOpts...)

		mcpCfg := mcp.DefaultConfig()
		mcpCfg.BasePath = cfg.MCP.BasePath
		mcpServer := mcp.NewServer(t, store, orch, engine, mcpCfg, logger)
		if err := mcpServer.Start(ctx); err != nil {
			return fmt.Errorf("starting mcp server; %w", err)
		}
		go serveMCP(ctx, cfg.MCP.ListenAddr, mcpServer, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mcpServer.Stop(shutdownCtx)
		}()
	}

	ok, err := systemdDaemon.SdNotify(false, systemdDaemon.SdNotifyReady)
	if err != nil {
		logger.Warn("sd_notify readiness failed", "error", err)
	} else if ok {
		logger.Info("notified systemd readiness")
	}

	fmt.Fprintf(out, "daemon started (pid %d), pidfile %s\n", os.Getpid(), pidPath)

	runLoops(ctx, logger, bus, t, store, orch, w, cfg)

	_, _ = systemdDaemon.SdNotify(false, systemdDaemon.SdNotifyStopping)
	if err := store.Save(t); err != nil {
		logger.Error("final save before shutdown failed", "error", err)
	}
	fmt.Fprintln(out, "daemon stopped")
	return nil
}

// runLoops blocks, fanning watcher events into incremental reindexing and
// driving the autosave and periodic-optimize tickers, until ctx is canceled.
func runLoops(ctx context.Context, logger *slog.Logger, bus events.Bus, t *tree.ContextTree, store *treestore.TreeStore, orch *agent.Orchestrator, w watcher.Watcher, cfg *config.Config) {
	autosave := time.NewTicker(durationOrDefault(cfg.Daemon.AutosaveIntervalSeconds, 300))
	defer autosave.Stop()

	var optimizeTick <-chan time.Time
	if cfg.Daemon.OptimizeIntervalSeconds > 0 {
		optimizeTicker := time.NewTicker(durationOrDefault(cfg.Daemon.OptimizeIntervalSeconds, 3600))
		defer optimizeTicker.Stop()
		optimizeTick = optimizeTicker.C
	}

	optCfg := optimizer.Config{
		EnablePruneStale:    cfg.Optimizer.EnablePruneStale,
		EnableMergeSimilar:  cfg.Optimizer.EnableMergeSimilar,
		EnableCompressDeep:  cfg.Optimizer.EnableCompressDeep,
		MaxIdleDays:         cfg.Optimizer.MaxIdleDays,
		MinAccessCount:      cfg.Optimizer.MinAccessCount,
		MinSiblingsForMerge: cfg.Optimizer.MinSiblingsForMerge,
		MaxDepthThreshold:   cfg.Optimizer.MaxDepthThreshold,
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			metrics.RecordWatcherEvent(ev.Kind.String())
			folder := ev.Path
			if ev.Attributes.IsFile {
				folder = filepath.Dir(ev.Path)
			}
			_ = bus.Publish(ctx, events.NewIndexStarted(folder))
			result, err := orch.ProcessFolder(ctx, folder)
			if err != nil {
				metrics.RecordFolderProcessed(0, 0, 0, 0, 0, err)
				logger.Debug("incremental reindex skipped", "path", folder, "error", err)
				_ = bus.Publish(ctx, events.NewIndexCompleted(events.IndexEvent{Path: folder, Error: err.Error()}))
				continue
			}
			metrics.RecordFolderProcessed(
				time.Duration(result.ProcessingTimeMs)*time.Millisecond,
				result.FilesProcessed, result.EntitiesExtracted,
				result.RelationshipsExtracted, result.CrossLinksCreated, nil)
			_ = bus.Publish(ctx, events.NewIndexCompleted(events.IndexEvent{
				Path:                   folder,
				NodesCreated:           result.NodesCreated,
				EntitiesExtracted:      result.EntitiesExtracted,
				RelationshipsExtracted: result.RelationshipsExtracted,
				CrossLinksCreated:      result.CrossLinksCreated,
				FilesProcessed:         result.FilesProcessed,
				Errors:                 fileErrorStrings(result.Errors),
			}))

		case <-autosave.C:
			err := store.Save(t)
			metrics.RecordTreeSave(err)
			if err != nil {
				logger.Error("autosave failed", "error", err)
			} else {
				logger.Debug("autosave complete")
				_ = bus.Publish(ctx, events.NewTreeSaved(t.NodeCount()))
			}

		case <-optimizeTick:
			result := optimizer.Optimize(t, optCfg)
			metrics.RecordOptimizerRun(result.NodesPruned, result.NodesMerged)
			logger.Info("periodic optimize complete", "pruned", result.NodesPruned, "merged", result.NodesMerged)
			_ = bus.Publish(ctx, events.NewOptimizeCompleted(result.NodesPruned, result.NodesMerged, result.DepthReducedBy))
		}
	}
}

// treeGauges refreshes the tree-shape gauges on each collection tick.
type treeGauges struct {
	t *tree.ContextTree
}

func (g treeGauges) CollectMetrics(ctx context.Context) error {
	domains := 0
	for _, n := range g.t.NodesAtDepth(1) {
		if n.Type == types.NodeTypeDomain {
			domains++
		}
	}
	metrics.UpdateTreeMetrics(g.t.NodeCount(), domains, g.t.MaxDepth())
	return nil
}

// watcherGauges refreshes the watched-path gauge on each collection tick.
type watcherGauges struct {
	w watcher.Watcher
}

func (g watcherGauges) CollectMetrics(ctx context.Context) error {
	metrics.UpdateWatcherMetrics(len(g.w.WatchedPaths()))
	return nil
}

// fileErrorStrings flattens per-file failures for the index event payload.
func fileErrorStrings(errs []agent.FileError) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, fe := range errs {
		out[i] = fe.Error()
	}
	return out
}

func durationOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	srv := &http.Server{Addr: addr, Handler: metrics.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "error", err)
	}
}

func serveMCP(ctx context.Context, addr string, s *mcp.Server, logger *slog.Logger) {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("mcp server failed", "error", err)
	}
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg := config.MustGet()
	pidPath := config.ExpandPath(cfg.Daemon.PIDFile)

	pid, running, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("reading pidfile %s; %w", pidPath, err)
	}
	if !running {
		return fmt.Errorf("daemon is not running")
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signaling pid %d; %w", pid, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sent SIGTERM to pid %d\n", pid)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.MustGet()
	pidPath := config.ExpandPath(cfg.Daemon.PIDFile)

	pid, running, err := readPIDFile(pidPath)
	out := cmd.OutOrStdout()
	if err != nil {
		fmt.Fprintf(out, "stopped (unreadable pidfile; %v)\n", err)
		return nil
	}
	if pid == 0 {
		fmt.Fprintln(out, "stopped (no pidfile)")
		return nil
	}
	if running {
		fmt.Fprintf(out, "running (pid %d)\n", pid)
	} else {
		fmt.Fprintf(out, "stopped (stale pidfile for pid %d)\n", pid)
	}
	return nil
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false, fmt.Errorf("malformed pidfile; %w", err)
	}

	if err := syscall.Kill(pid, 0); err != nil {
		return pid, false, nil
	}
	return pid, true, nil
}
