// Package query provides the "query" command, which runs keyword (and,
// when embeddings are configured, blended semantic) retrieval against the
// persisted knowledge tree.
package query

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/memorizer/internal/cmdutil"
	"github.com/leefowlercu/memorizer/internal/config"
	"github.com/leefowlercu/memorizer/internal/query"
)

var maxResults int

// QueryCmd searches the knowledge tree by keyword.
var QueryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the knowledge tree",
	Long: "Search the knowledge tree by keyword.\n\n" +
		"Tokenizes the query, drops stop-words, and ranks nodes whose name, " +
		"summary, or keywords contain the most matching tokens.",
	Args:    cobra.MinimumNArgs(1),
	Example: "  memorizer query \"rust async runtime\"",
	PreRunE: validateQuery,
	RunE:    runQuery,
}

func init() {
	QueryCmd.Flags().IntVar(&maxResults, "max-results", 0, "cap the number of results (0 uses the configured default)")
}

func validateQuery(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	t, _, err := cmdutil.OpenTree(nil)
	if err != nil {
		return err
	}

	cfg := config.MustGet()
	qcfg := query.Config{
		MaxResults:          cfg.Query.MaxResults,
		KeywordWeight:       cfg.Query.KeywordWeight,
		SemanticWeight:      cfg.Query.SemanticWeight,
		RecencyWeight:       cfg.Query.RecencyWeight,
		MinRelevance:        cfg.Query.MinRelevance,
		ExpandRelated:       cfg.Query.ExpandRelated,
		RecencyHalfLifeDays: cfg.Query.RecencyHalfLifeDays,
	}
	if maxResults > 0 {
		qcfg.MaxResults = maxResults
	}

	embOpts := cmdutil.EmbeddingsOptions(cfg, nil)
	engine := query.New(t, qcfg, embOpts...)

	text := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	if len(embOpts) > 0 {
		full, err := engine.QueryFull(cmd.Context(), text)
		if err != nil {
			return fmt.Errorf("running full retrieval; %w", err)
		}
		if len(full.Nodes) == 0 {
			fmt.Fprintln(out, "no matches")
			return nil
		}
		for _, sn := range full.Nodes {
			fmt.Fprintf(out, "%-8s %5.2f %-36s %s\n", sn.Node.NodeTypeLabel, sn.Score, sn.Node.ID, sn.Node.Name)
			if sn.Node.Summary != "" {
				fmt.Fprintf(out, "               %s\n", sn.Node.Summary)
			}
		}
		fmt.Fprintf(out, "\n%d result(s) in %dms%s\n", len(full.Nodes), full.ProcessingTimeMs, truncatedSuffix(full.Truncated))
		return nil
	}

	resp := engine.Query(text)
	if len(resp.Nodes) == 0 {
		fmt.Fprintln(out, "no matches")
		return nil
	}

	for _, n := range resp.Nodes {
		fmt.Fprintf(out, "%-8s %-36s %s\n", n.NodeTypeLabel, n.ID, n.Name)
		if n.Summary != "" {
			fmt.Fprintf(out, "         %s\n", n.Summary)
		}
	}
	fmt.Fprintf(out, "\n%d result(s) in %dms%s\n", len(resp.Nodes), resp.ProcessingTimeMs, truncatedSuffix(resp.Truncated))

	return nil
}

func truncatedSuffix(truncated bool) string {
	if truncated {
		return " (truncated)"
	}
	return ""
}
