// Package index provides the "index" command, which runs the agent
// orchestrator's process_folder pipeline against a path and
// persists the resulting tree.
package index

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/memorizer/internal/agent"
	"github.com/leefowlercu/memorizer/internal/cmdutil"
	"github.com/leefowlercu/memorizer/internal/config"
	"github.com/leefowlercu/memorizer/internal/treestore"
)

var printTree bool

// IndexCmd ingests a folder into the persisted knowledge tree.
var IndexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Ingest a folder into the knowledge tree",
	Long: "Ingest a folder into the knowledge tree.\n\n" +
		"Walks the given directory, detects its dominant domain, extracts " +
		"entities and relationships from each file, and places the resulting " +
		"nodes under the tree rooted at the user. The tree is loaded from " +
		"and saved back to the configured base directory.",
	Args:    cobra.ExactArgs(1),
	Example: "  memorizer index ~/projects/my-rust-crate",
	PreRunE: validateIndex,
	RunE:    runIndex,
}

func init() {
	IndexCmd.Flags().BoolVar(&printTree, "print-tree", false, "print the tree structure after indexing")
}

func validateIndex(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	path, err := cmdutil.ResolvePath(args[0])
	if err != nil {
		return fmt.Errorf("resolving path; %w", err)
	}

	cfg := config.MustGet()
	t, store, err := cmdutil.OpenTree(nil)
	if err != nil {
		return err
	}

	agentCfg := agent.Config{
		Extensions:        cfg.Agent.Extensions,
		MaxFilesPerFolder: cfg.Agent.MaxFilesPerFolder,
		MaxDepth:          cfg.Agent.MaxDepth,
		AutoCrossLink:     cfg.Agent.AutoCrossLink,
		SummaryFileCount:  cfg.Agent.SummaryFileCount,
		SummaryLineCount:  cfg.Agent.SummaryLineCount,
		KnownDomains:      cfg.Agent.KnownDomains,
		HeuristicOnly:     cfg.Agent.HeuristicOnly,
		AddFileReferences: cfg.Agent.AddFileReferences,
	}

	orch := agent.New(t, agentCfg)

	start := time.Now()
	result, err := orch.ProcessFolder(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("indexing %s; %w", path, err)
	}

	if err := store.Save(t); err != nil {
		return fmt.Errorf("saving tree; %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "domain:              %s\n", result.Domain)
	fmt.Fprintf(out, "files processed:     %d\n", result.FilesProcessed)
	fmt.Fprintf(out, "nodes created:       %d\n", result.NodesCreated)
	fmt.Fprintf(out, "entities extracted:  %d\n", result.EntitiesExtracted)
	fmt.Fprintf(out, "relationships:       %d\n", result.RelationshipsExtracted)
	fmt.Fprintf(out, "cross-links created: %d\n", result.CrossLinksCreated)
	fmt.Fprintf(out, "processing time:     %dms (wall: %s)\n", result.ProcessingTimeMs, time.Since(start).Round(time.Millisecond))
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "errors:              %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  - %s\n", e.Error())
		}
	}

	if printTree {
		fmt.Fprintln(out)
		fmt.Fprint(out, treestore.ExportStructure(t))
	}

	return nil
}
