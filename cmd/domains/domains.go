// Package domains provides the "domains" command, which lists the
// top-level Domain nodes beneath the tree's root.
package domains

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/memorizer/internal/cmdutil"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// DomainsCmd lists known domains.
var DomainsCmd = &cobra.Command{
	Use:     "domains",
	Short:   "List domains in the knowledge tree",
	Example: "  memorizer domains",
	PreRunE: validateDomains,
	RunE:    runDomains,
}

func validateDomains(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runDomains(cmd *cobra.Command, args []string) error {
	t, _, err := cmdutil.OpenTree(nil)
	if err != nil {
		return err
	}

	var domains []types.ContextNode
	for _, n := range t.NodesAtDepth(1) {
		if n.Type == types.NodeTypeDomain {
			domains = append(domains, n)
		}
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i].Name < domains[j].Name })

	out := cmd.OutOrStdout()
	if len(domains) == 0 {
		fmt.Fprintln(out, "no domains")
		return nil
	}

	for _, d := range domains {
		fmt.Fprintf(out, "%-20s %d item(s)\n", d.Name, len(d.Children))
	}

	return nil
}
