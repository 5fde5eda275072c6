// Package watch provides the "watch" command, which runs the directory
// watcher in the foreground, incrementally re-indexing changed folders as
// events arrive.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/memorizer/internal/agent"
	"github.com/leefowlercu/memorizer/internal/cmdutil"
	"github.com/leefowlercu/memorizer/internal/config"
	"github.com/leefowlercu/memorizer/internal/metrics"
	"github.com/leefowlercu/memorizer/internal/registry"
	"github.com/leefowlercu/memorizer/internal/tui"
	"github.com/leefowlercu/memorizer/internal/watcher"
)

var useTUI bool

// WatchCmd runs the directory watcher in the foreground.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch configured directories and incrementally re-index changes",
	Long: "Watch the directories listed under watcher.directories in the " +
		"configuration file, printing each FileEvent as it arrives and " +
		"re-running the agent's folder-processing pipeline on the owning " +
		"project whenever a watched path changes.",
	Example: "  memorizer watch\n  memorizer watch --tui",
	PreRunE: validateWatch,
	RunE:    runWatch,
}

func init() {
	WatchCmd.Flags().BoolVar(&useTUI, "tui", false, "show a live dashboard instead of a plain event log")
}

func validateWatch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.MustGet()

	reg, err := registry.Open(cmd.Context(), config.ExpandPath(cfg.Database.RegistryPath))
	if err != nil {
		return fmt.Errorf("opening file-state registry; %w", err)
	}
	defer reg.Close()

	w, err := watcher.New(watcher.WithStateStore(reg))
	if err != nil {
		return fmt.Errorf("creating watcher; %w", err)
	}

	var watched []string
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
		watched = append(watched, wd.Path)
	}

	if len(watched) == 0 {
		return fmt.Errorf("no enabled directories configured under watcher.directories")
	}

	t, store, err := cmdutil.OpenTree(nil)
	if err != nil {
		return err
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
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher; %w", err)
	}
	defer w.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "watching %d director(ies); press ctrl-c to stop\n", len(watched))

	reindexFn := func(path string) {
		owningProject := ownerOf(watched, path)
		if _, err := orch.ProcessFolder(ctx, owningProject); err != nil {
			slog.Default().Warn("incremental reindex failed", "path", owningProject, "error", err)
			return
		}
		if err := store.Save(t); err != nil {
			slog.Default().Warn("saving tree after incremental reindex failed", "error", err)
		}
	}

	if useTUI {
		return tui.RunWatchDashboard(ctx, w.Events(), reindexFn, watched)
	}

	return plainEventLoop(ctx, out, w, reindexFn)
}

func plainEventLoop(ctx context.Context, out io.Writer, w watcher.Watcher, reindexFn func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "[%s] %-16s %s\n", ev.Timestamp.Format("15:04:05"), ev.Kind, ev.Path)
			metrics.RecordWatcherEvent(ev.Kind.String())
			reindexFn(ev.Path)
		}
	}
}

// ownerOf returns the watched root directory that contains path, or path
// itself if none match (e.g. the event path is already a root).
func ownerOf(watched []string, path string) string {
	for _, root := range watched {
		if rel, err := filepath.Rel(root, path); err == nil && rel != ".." && len(rel) > 0 && rel[0] != '.' {
			return root
		}
	}
	return path
}
