package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	configcmd "github.com/leefowlercu/memorizer/cmd/config"
	"github.com/leefowlercu/memorizer/cmd/daemon"
	"github.com/leefowlercu/memorizer/cmd/domains"
	"github.com/leefowlercu/memorizer/cmd/index"
	"github.com/leefowlercu/memorizer/cmd/node"
	"github.com/leefowlercu/memorizer/cmd/optimize"
	"github.com/leefowlercu/memorizer/cmd/providers"
	"github.com/leefowlercu/memorizer/cmd/query"
	"github.com/leefowlercu/memorizer/cmd/version"
	"github.com/leefowlercu/memorizer/cmd/watch"
	"github.com/leefowlercu/memorizer/internal/config"
	"github.com/leefowlercu/memorizer/internal/logging"
)

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

// Quiet suppresses non-error output when true
var Quiet bool

var memorizerCmd = &cobra.Command{
	Use:   "memorizer",
	Short: "Builds and serves a persistent knowledge tree over your documents",
	Long: "Memorizer ingests a directory of files into a persistent, hierarchical " +
		"knowledge tree rooted at the user: it chunks documents, extracts entities and " +
		"relationships, detects the dominant domain, places the material in the tree, and " +
		"weaves cross-links between semantically related branches.\n\n" +
		"A background daemon can keep registered directories in sync, re-indexing the tree " +
		"incrementally as files are added, changed, or removed.\n\n",
	PersistentPreRunE: runInitialize,
}

func init() {
	// Create logging Manager in bootstrap mode (stderr text only)
	logManager = logging.NewManager()
	slog.SetDefault(logManager.Logger())

	// Register global flags
	memorizerCmd.PersistentFlags().BoolVarP(&Quiet, "quiet", "q", false, "Suppress non-error output")

	// Register subcommands
	memorizerCmd.AddCommand(version.VersionCmd)
	memorizerCmd.AddCommand(index.IndexCmd)
	memorizerCmd.AddCommand(query.QueryCmd)
	memorizerCmd.AddCommand(node.NodeCmd)
	memorizerCmd.AddCommand(domains.DomainsCmd)
	memorizerCmd.AddCommand(watch.WatchCmd)
	memorizerCmd.AddCommand(optimize.OptimizeCmd)
	memorizerCmd.AddCommand(daemon.DaemonCmd)
	memorizerCmd.AddCommand(providers.ProvidersCmd)
	memorizerCmd.AddCommand(configcmd.ConfigCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	// Initialize config subsystem
	if err := config.Init(); err != nil {
		return err
	}

	// Upgrade logging after config is available
	cfg := config.Get()
	logFile := config.ExpandPath(cfg.LogFile)
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logging.DefaultLevel
		if cfg.LogLevel != "" {
			logger.Warn("invalid log level configured, using default", "configured", cfg.LogLevel, "default", "info")
		}
	}

	if err := logManager.Upgrade(logFile, level); err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
		// Don't return error - continue with bootstrap mode
	}

	return nil
}

func Execute() error {
	memorizerCmd.SilenceErrors = true
	memorizerCmd.SilenceUsage = true

	// Ensure logging is properly closed on exit
	defer func() { _ = logManager.Close() }()

	err := memorizerCmd.Execute()

	if err != nil {
		cmd, _, _ := memorizerCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = memorizerCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Printf("\n")
			cmd.SetOut(os.Stdout)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}
