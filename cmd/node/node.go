// Package node provides the "node" command, which prints a single
// ContextNode's details along with its ancestry and related nodes.
package node

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/memorizer/internal/cmdutil"
	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// NodeCmd inspects a single node by id.
var NodeCmd = &cobra.Command{
	Use:     "node <id>",
	Short:   "Show a node's details, ancestry, and related nodes",
	Args:    cobra.ExactArgs(1),
	Example: "  memorizer node 3f8a1c2e-...",
	PreRunE: validateNode,
	RunE:    runNode,
}

func validateNode(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runNode(cmd *cobra.Command, args []string) error {
	id := args[0]

	t, _, err := cmdutil.OpenTree(nil)
	if err != nil {
		return err
	}

	n, ok := t.Get(id)
	if !ok {
		return fmt.Errorf("node %s; not found", id)
	}

	ancestry, err := t.GetAncestry(id)
	if err != nil {
		return fmt.Errorf("resolving ancestry for %s; %w", id, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:         %s\n", n.ID)
	fmt.Fprintf(out, "type:       %s\n", n.Type)
	fmt.Fprintf(out, "name:       %s\n", n.Name)
	fmt.Fprintf(out, "depth:      %d\n", n.Depth)
	if n.Path != "" {
		fmt.Fprintf(out, "path:       %s\n", n.Path)
	}
	fmt.Fprintf(out, "confidence: %.2f\n", n.Confidence)
	fmt.Fprintf(out, "summary:    %s\n", n.Summary)
	if len(n.Keywords) > 0 {
		fmt.Fprintf(out, "keywords:   %v\n", n.Keywords)
	}

	fmt.Fprintln(out, "\nancestry:")
	for _, a := range ancestry {
		fmt.Fprintf(out, "  %s%s [%s]\n", indent(a.Depth), a.Name, a.Type)
	}

	if len(n.RelatedNodes) > 0 {
		fmt.Fprintln(out, "\nrelated:")
		for _, r := range n.RelatedNodes {
			printRelated(out, t, r)
		}
	}

	if len(n.Entities) > 0 {
		fmt.Fprintln(out, "\nentities:")
		for _, e := range n.Entities {
			fmt.Fprintf(out, "  [%s] %s (%.2f)\n", e.Type, e.Name, e.Confidence)
		}
	}

	return nil
}

func printRelated(out io.Writer, t *tree.ContextTree, r types.RelatedNode) {
	target, ok := t.Get(r.NodeID)
	name := r.NodeID
	if ok {
		name = target.Name
	}
	fmt.Fprintf(out, "  %s -> %s (%.2f)\n", r.LinkType, name, r.Strength)
}

func indent(depth int) string {
	s := ""
	for i := 0; i < depth; i++ {
		s += "  "
	}
	return s
}
