package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

var (
	askK           int
	askJSON        bool
	askShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the ingested documents",
	Long: `Retrieves the most relevant passages for the question and generates
an answer grounded in them, with [S#] citations pointing back to the
source documents.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askK, "k", "k", 0, "number of passages to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the retrieved passages instead of answering")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := ensureApp(true)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	question := args[0]

	if askShowContext {
		chunks, err := a.chat.Retrieve(ctx, question, domain.RetrievalOptions{K: askK})
		if err != nil {
			return describeAskError(err)
		}
		for i, rc := range chunks {
			cmd.Printf("[%d] %s (%.3f)\n%s\n\n", i+1, rc.Chunk.ID, rc.Score, rc.Chunk.Content)
		}
		return nil
	}

	answer, err := a.chat.Ask(ctx, question, domain.RetrievalOptions{K: askK})
	if err != nil {
		return describeAskError(err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	if len(answer.Citations) > 0 {
		cmd.Println("\nSources:")
		for _, c := range answer.Citations {
			cmd.Printf("  [%s] %s (chunk %s)\n", c.Marker, c.Filename, c.ChunkID)
		}
	}
	return nil
}

// describeAskError maps domain errors to actionable messages.
func describeAskError(err error) error {
	if errors.Is(err, domain.ErrEmptyIndex) {
		return errors.New("no documents ingested yet; run `docuchat ingest <file.pdf>` first")
	}
	return err
}
