package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage ingested documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its index entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	a, err := ensureApp(false)
	if err != nil {
		return err
	}

	docs, err := a.ingest.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested yet.")
		return nil
	}

	for i := range docs {
		d := &docs[i]
		status := ""
		if d.Deleted {
			status = " (deleted)"
		}
		cmd.Printf("  %s%s\n", d.ID, status)
		cmd.Printf("    File:     %s\n", d.Filename)
		if d.PageCount > 0 {
			cmd.Printf("    Pages:    %d\n", d.PageCount)
		}
		cmd.Printf("    Chunks:   %d\n", d.ChunkCount)
		cmd.Printf("    Ingested: %s\n", d.IngestedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	a, err := ensureApp(false)
	if err != nil {
		return err
	}

	docID := args[0]
	if err := a.ingest.Delete(cmd.Context(), docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	cmd.Printf("Deleted document %s.\n", docID)
	return nil
}
