package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skogdata/forest-etl/internal/adapter/gpkg"
	"github.com/skogdata/forest-etl/internal/domain"
)

func newPlanCmd() *cobra.Command {
	var (
		gpkgPath  string
		baseLayer string
		chunkSize int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the chunk plan a consolidation run would use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if baseLayer == "" {
				return fmt.Errorf("--base-layer is required")
			}

			catalog, err := gpkg.Open(gpkgPath, quietLogger())
			if err != nil {
				return err
			}
			defer catalog.Close() //nolint:errcheck

			ids, err := catalog.JoinIDs(cmd.Context(), baseLayer)
			if err != nil {
				return err
			}
			chunks := domain.PartitionIDs(ids, chunkSize)

			fmt.Fprintf(cmd.OutOrStdout(), "base layer:   %s\n", baseLayer)
			fmt.Fprintf(cmd.OutOrStdout(), "identifiers:  %d\n", len(ids))
			fmt.Fprintf(cmd.OutOrStdout(), "chunk size:   %d\n", chunkSize)
			fmt.Fprintf(cmd.OutOrStdout(), "chunks:       %d\n", len(chunks))
			if n := len(chunks); n > 0 {
				last := chunks[n-1]
				fmt.Fprintf(cmd.OutOrStdout(), "last chunk:   %d identifiers\n", len(last.JoinIDs))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gpkgPath, "gpkg", "data/forest_inventory.gpkg", "GeoPackage to plan against")
	cmd.Flags().StringVar(&baseLayer, "base-layer", "", "layer whose identifiers define the record universe")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "join identifiers per chunk")
	return cmd
}
