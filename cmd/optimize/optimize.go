// Package optimize provides the "optimize" command, which runs the
// optimizer's prune/merge/compress passes against the persisted tree.
package optimize

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/memorizer/internal/cmdutil"
	"github.com/leefowlercu/memorizer/internal/config"
	"github.com/leefowlercu/memorizer/internal/optimizer"
)

var dryRun bool

// OptimizeCmd runs tree maintenance.
var OptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Prune, merge, and compress the knowledge tree",
	Long: "Run the tree's three-phase maintenance pass: prune stale file " +
		"references, merge similar sibling groups into summary nodes, and " +
		"compress branches deeper than the configured threshold.",
	Example: "  memorizer optimize --dry-run",
	PreRunE: validateOptimize,
	RunE:    runOptimize,
}

func init() {
	OptimizeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without mutating or saving the tree")
}

func validateOptimize(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	t, store, err := cmdutil.OpenTree(nil)
	if err != nil {
		return err
	}

	cfg := config.MustGet()
	optCfg := optimizer.Config{
		EnablePruneStale:    cfg.Optimizer.EnablePruneStale,
		EnableMergeSimilar:  cfg.Optimizer.EnableMergeSimilar,
		EnableCompressDeep:  cfg.Optimizer.EnableCompressDeep,
		MaxIdleDays:         cfg.Optimizer.MaxIdleDays,
		MinAccessCount:      cfg.Optimizer.MinAccessCount,
		MinSiblingsForMerge: cfg.Optimizer.MinSiblingsForMerge,
		MaxDepthThreshold:   cfg.Optimizer.MaxDepthThreshold,
	}

	out := cmd.OutOrStdout()

	if dryRun {
		analysis := optimizer.Analyze(t, optCfg)
		fmt.Fprintf(out, "stale leaves:      %d\n", analysis.StaleLeafCount)
		fmt.Fprintf(out, "mergeable groups:  %d\n", analysis.MergeableGroups)
		fmt.Fprintf(out, "max depth:         %d (threshold %d, excessive=%v)\n",
			analysis.MaxDepth, analysis.MaxDepthThreshold, analysis.ExcessiveDepth)
		return nil
	}

	result := optimizer.Optimize(t, optCfg)
	if err := store.Save(t); err != nil {
		return fmt.Errorf("saving optimized tree; %w", err)
	}

	fmt.Fprintf(out, "nodes pruned:        %d\n", result.NodesPruned)
	fmt.Fprintf(out, "nodes merged:        %d\n", result.NodesMerged)
	fmt.Fprintf(out, "depth reduced by:    %d\n", result.DepthReducedBy)
	fmt.Fprintf(out, "storage saved:       %d bytes\n", result.StorageSavedBytes)

	return nil
}
