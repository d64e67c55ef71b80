// Package config loads and persists docuchat configuration from a
// TOML file under the user's config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

// Default configuration values.
const (
	DefaultChunkSize            = 1000
	DefaultChunkOverlap         = 200
	DefaultRetrievalK           = 4
	DefaultOverfetchFactor      = 3
	DefaultMaxContextTokens     = 3000
	DefaultEmbeddingBatchMax    = 100
	DefaultEmbeddingCacheSize   = 4096
	DefaultApproxIndexThreshold = 10000
	DefaultSearchWidth          = 64
	DefaultEmbedTimeout         = 60 * time.Second
	DefaultGenerateTimeout      = 120 * time.Second
)

// Config is the full docuchat configuration.
type Config struct {
	// DataDir is where the SQLite database and vector index live.
	// Empty means ~/.docuchat/data.
	DataDir string `toml:"data_dir"`

	Chunking   Chunking   `toml:"chunking"`
	Retrieval  Retrieval  `toml:"retrieval"`
	Embedding  Embedding  `toml:"embedding"`
	Generation Generation `toml:"generation"`
	Index      Index      `toml:"index"`
}

// Chunking controls how document text is split.
type Chunking struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// Retrieval controls similarity search behaviour.
type Retrieval struct {
	// K is the number of chunks returned per query.
	K int `toml:"k"`

	// OverfetchFactor widens candidate retrieval so deleted-document
	// filtering still leaves K results.
	OverfetchFactor int `toml:"overfetch_factor"`

	// MaxContextTokens caps the assembled prompt context.
	MaxContextTokens int `toml:"max_context_tokens"`
}

// Embedding configures the embedding provider.
type Embedding struct {
	// Provider is "gemini" or "openai".
	Provider string `toml:"provider"`

	APIKey    string        `toml:"api_key"`
	Model     string        `toml:"model"`
	BaseURL   string        `toml:"base_url"`
	BatchMax  int           `toml:"batch_max"`
	CacheSize int           `toml:"cache_size"`
	Timeout   time.Duration `toml:"timeout"`
}

// Generation configures the answer generation provider.
type Generation struct {
	APIKey  string        `toml:"api_key"`
	Model   string        `toml:"model"`
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

// Index configures the vector index.
type Index struct {
	// ApproxThreshold is the entry count above which queries switch
	// to the approximate graph. Zero keeps the default.
	ApproxThreshold int `toml:"approx_threshold"`

	// SearchWidth is the graph search beam width.
	SearchWidth int `toml:"search_width"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Chunking: Chunking{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: Retrieval{
			K:                DefaultRetrievalK,
			OverfetchFactor:  DefaultOverfetchFactor,
			MaxContextTokens: DefaultMaxContextTokens,
		},
		Embedding: Embedding{
			Provider:  "gemini",
			BatchMax:  DefaultEmbeddingBatchMax,
			CacheSize: DefaultEmbeddingCacheSize,
			Timeout:   DefaultEmbedTimeout,
		},
		Generation: Generation{
			Timeout: DefaultGenerateTimeout,
		},
		Index: Index{
			ApproxThreshold: DefaultApproxIndexThreshold,
			SearchWidth:     DefaultSearchWidth,
		},
	}
}

// DefaultDir returns the docuchat config directory (~/.docuchat).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".docuchat"), nil
}

// Load reads the configuration from configDir/config.toml, applying
// defaults for anything unset. A missing file yields pure defaults.
// If configDir is empty, the default directory is used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	cfg := Default()

	data, err := os.ReadFile(filepath.Join(configDir, "config.toml"))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Unmarshalling into a defaulted struct keeps defaults for any
	// field the file does not mention.
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %v", domain.ErrConfig, err)
	}

	return cfg, nil
}

// Save writes the configuration to configDir/config.toml with
// restricted permissions (it holds API keys).
func (c *Config) Save(configDir string) error {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		configDir = dir
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	return os.WriteFile(filepath.Join(configDir, "config.toml"), data, 0600)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", domain.ErrConfig)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, size)", domain.ErrConfig)
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("%w: retrieval k must be positive", domain.ErrConfig)
	}
	if c.Retrieval.OverfetchFactor < 1 {
		return fmt.Errorf("%w: overfetch factor must be at least 1", domain.ErrConfig)
	}
	if c.Retrieval.MaxContextTokens <= 0 {
		return fmt.Errorf("%w: max context tokens must be positive", domain.ErrConfig)
	}
	switch c.Embedding.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfig, c.Embedding.Provider)
	}
	return nil
}

// DataDirectory resolves the configured data directory, defaulting to
// ~/.docuchat/data.
func (c *Config) DataDirectory() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// IndexPath returns the vector index snapshot path inside the data
// directory.
func (c *Config) IndexPath() (string, error) {
	dir, err := c.DataDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.dcvx"), nil
}
