// Command forestctl is the operator CLI: it checks mapping and rule
// configurations against a GeoPackage without running a consolidation, and
// previews the chunk plan a run would use.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "forestctl",
		Short:         "Operator tooling for the forest inventory consolidation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd())
	root.AddCommand(newPlanCmd())
	return root
}
