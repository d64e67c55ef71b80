package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.pdf ...]",
	Short: "Ingest PDF documents",
	Long: `Extracts text from the given PDF files, splits it into overlapping
chunks, embeds them and adds them to the vector index. Re-uploading a
file whose text is already indexed is a no-op.

Plain .txt files are ingested as raw text.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := ensureApp(true)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	for _, path := range args {
		if strings.EqualFold(filepath.Ext(path), ".txt") {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			doc, err := a.ingest.Ingest(ctx, filepath.Base(path), string(data))
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			cmd.Printf("Ingested %s: %d chunks (document %s)\n", doc.Filename, doc.ChunkCount, doc.ID)
			continue
		}

		doc, err := a.ingest.IngestFile(ctx, path)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		cmd.Printf("Ingested %s: %d pages, %d chunks (document %s)\n",
			doc.Filename, doc.PageCount, doc.ChunkCount, doc.ID)
	}

	return nil
}
