package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := ensureApp(false)
	if err != nil {
		return err
	}

	stats, err := a.ingest.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("index stats: %w", err)
	}

	mode := "exact scan"
	if stats.Approximate {
		mode = "approximate graph"
	}

	cmd.Printf("Documents:  %d\n", stats.Documents)
	cmd.Printf("Entries:    %d\n", stats.Entries)
	cmd.Printf("Dimension:  %d\n", stats.Dimension)
	cmd.Printf("Disk size:  %d bytes\n", stats.DiskSize)
	cmd.Printf("Query mode: %s\n", mode)
	return nil
}
