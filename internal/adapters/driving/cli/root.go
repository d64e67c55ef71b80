// Package cli wires configuration, adapters and services into the
// docuchat command tree.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docuchat/docuchat-cli/internal/adapters/driven/embedding"
	embgemini "github.com/docuchat/docuchat-cli/internal/adapters/driven/embedding/gemini"
	embopenai "github.com/docuchat/docuchat-cli/internal/adapters/driven/embedding/openai"
	llmgemini "github.com/docuchat/docuchat-cli/internal/adapters/driven/llm/gemini"
	"github.com/docuchat/docuchat-cli/internal/adapters/driven/storage/sqlite"
	"github.com/docuchat/docuchat-cli/internal/adapters/driven/vector"
	"github.com/docuchat/docuchat-cli/internal/chunker"
	"github.com/docuchat/docuchat-cli/internal/config"
	"github.com/docuchat/docuchat-cli/internal/core/domain"
	"github.com/docuchat/docuchat-cli/internal/core/ports/driven"
	"github.com/docuchat/docuchat-cli/internal/core/ports/driving"
	"github.com/docuchat/docuchat-cli/internal/core/services"
	"github.com/docuchat/docuchat-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
)

// app holds the wired application for the lifetime of one command.
type app struct {
	cfg     *config.Config
	store   *sqlite.Store
	index   *vector.Index
	ingest  driving.IngestService
	chat    driving.ChatService
	cleanup []func() error
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "docuchat",
	Short: "Chat with your PDF documents",
	Long: `docuchat ingests PDF documents, indexes their content as vector
embeddings and answers natural-language questions grounded in the
indexed text, with citations back to the source passages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.docuchat)")
}

// Execute runs the root command.
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}

// ensureApp wires the application on first use. Commands that talk to
// the embedding or generation APIs pass needRemote so a missing key
// fails early with a helpful message.
func ensureApp(needRemote bool) (*app, error) {
	if current != nil {
		return current, nil
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	dataDir, err := cfg.DataDirectory()
	if err != nil {
		return nil, err
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	a.store = store
	a.cleanup = append(a.cleanup, store.Close)

	a.index = vector.New(
		vector.WithApproxThreshold(cfg.Index.ApproxThreshold),
		vector.WithSearchWidth(cfg.Index.SearchWidth),
	)

	indexPath, err := cfg.IndexPath()
	if err != nil {
		return nil, err
	}

	splitter, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	var embedder *embedding.Adapter
	var generator *llmgemini.GenerationService
	if needRemote {
		embedder, err = buildEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		a.cleanup = append(a.cleanup, embedder.Close)

		generator, err = llmgemini.NewGenerationService(llmgemini.Config{
			APIKey:  cfg.Generation.APIKey,
			Model:   cfg.Generation.Model,
			BaseURL: cfg.Generation.BaseURL,
			Timeout: cfg.Generation.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("generation service: %w (set it with `docuchat config set-key --generation`)", err)
		}
		a.cleanup = append(a.cleanup, generator.Close)
	}

	ingest := services.NewIngestService(store, embedder, a.index, splitter, indexPath)
	if err := ingest.LoadIndex(); err != nil {
		if !errors.Is(err, domain.ErrIndexLoad) {
			return nil, err
		}
		// First run or unreadable snapshot: start empty, it will be
		// rewritten on the next ingest.
		logger.Warn("Index snapshot unavailable: %v", err)
	}
	a.ingest = ingest

	if needRemote {
		a.chat = services.NewChatService(store, embedder, a.index, generator,
			services.WithRetrievalK(cfg.Retrieval.K),
			services.WithOverfetchFactor(cfg.Retrieval.OverfetchFactor),
			services.WithMaxContextTokens(cfg.Retrieval.MaxContextTokens),
		)
	}

	current = a
	return a, nil
}

// buildEmbedder constructs the configured embedding backend wrapped in
// the batching/retry/cache adapter.
func buildEmbedder(cfg *config.Config) (*embedding.Adapter, error) {
	var backend driven.EmbeddingService
	var err error

	switch cfg.Embedding.Provider {
	case "openai":
		backend, err = embopenai.NewEmbeddingService(embopenai.Config{
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
			Timeout: cfg.Embedding.Timeout,
		})
	default:
		backend, err = embgemini.NewEmbeddingService(embgemini.Config{
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
			Timeout: cfg.Embedding.Timeout,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("embedding service: %w (set it with `docuchat config set-key --embedding`)", err)
	}

	return embedding.New(backend,
		embedding.WithMaxBatchSize(cfg.Embedding.BatchMax),
		embedding.WithCacheSize(cfg.Embedding.CacheSize),
		embedding.WithTimeout(cfg.Embedding.Timeout),
	), nil
}

// teardown closes everything the app opened, last first.
func teardown() {
	if current == nil {
		return
	}
	for i := len(current.cleanup) - 1; i >= 0; i-- {
		if err := current.cleanup[i](); err != nil {
			logger.Warn("Cleanup: %v", err)
		}
	}
	current = nil
}
