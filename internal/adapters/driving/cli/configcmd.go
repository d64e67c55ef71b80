package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/docuchat/docuchat-cli/internal/config"
)

var (
	keyForEmbedding  bool
	keyForGeneration bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage docuchat configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := configDir
		if dir == "" {
			d, err := config.DefaultDir()
			if err != nil {
				return err
			}
			dir = d
		}
		cmd.Println(filepath.Join(dir, "config.toml"))
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store an API key",
	Long: `Prompts for an API key without echoing it and stores it in the
config file. Use --embedding and/or --generation to choose which key
to set; with neither flag the key is stored for both.`,
	Args: cobra.NoArgs,
	RunE: runConfigSetKey,
}

func init() {
	configSetKeyCmd.Flags().BoolVar(&keyForEmbedding, "embedding", false, "set the embedding provider key")
	configSetKeyCmd.Flags().BoolVar(&keyForGeneration, "generation", false, "set the generation provider key")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetKeyCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigSetKey(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}

	cmd.Print("API key: ")
	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}

	key := strings.TrimSpace(string(keyBytes))
	if key == "" {
		return errors.New("empty key")
	}

	both := !keyForEmbedding && !keyForGeneration
	if keyForEmbedding || both {
		cfg.Embedding.APIKey = key
	}
	if keyForGeneration || both {
		cfg.Generation.APIKey = key
	}

	if err := cfg.Save(configDir); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	cmd.Println("Key saved.")
	return nil
}
