package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
	"github.com/docuchat/docuchat-cli/internal/core/ports/driven"
	"github.com/docuchat/docuchat-cli/internal/logger"
)

// Ensure Adapter implements the interface.
var _ driven.EmbeddingService = (*Adapter)(nil)

// Default configuration values.
const (
	DefaultMaxBatchSize = 100
	DefaultCacheSize    = 4096
	DefaultMaxAttempts  = 3
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultTimeout      = 60 * time.Second
	DefaultRateLimit    = 5 // requests per second
)

// Adapter wraps an EmbeddingService backend. It splits large inputs
// into batches, retries transient failures with exponential backoff,
// rate-limits outbound calls and caches embeddings by text hash.
type Adapter struct {
	backend driven.EmbeddingService

	maxBatchSize int
	maxAttempts  int
	baseDelay    time.Duration
	timeout      time.Duration
	limiter      *rate.Limiter
	cache        *lruCache

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures the adapter.
type Option func(*Adapter)

// WithMaxBatchSize caps the number of texts per backend call.
func WithMaxBatchSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxBatchSize = n
		}
	}
}

// WithCacheSize caps the embedding cache entry count. Zero disables
// the cache.
func WithCacheSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.cache = newLRUCache(n)
		} else {
			a.cache = nil
		}
	}
}

// WithMaxAttempts sets the retry budget per batch.
func WithMaxAttempts(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the initial backoff delay; it doubles per attempt.
func WithBaseDelay(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.baseDelay = d
		}
	}
}

// WithTimeout sets the per-call timeout on backend requests.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithRateLimit sets the outbound request rate in requests per second.
func WithRateLimit(rps float64) Option {
	return func(a *Adapter) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates an adapter around the given backend.
func New(backend driven.EmbeddingService, opts ...Option) *Adapter {
	a := &Adapter{
		backend:      backend,
		maxBatchSize: DefaultMaxBatchSize,
		maxAttempts:  DefaultMaxAttempts,
		baseDelay:    DefaultBaseDelay,
		timeout:      DefaultTimeout,
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		cache:        newLRUCache(DefaultCacheSize),
		sleep:        sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Embed generates a vector embedding for a single text.
func (a *Adapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for texts, preserving order and
// length. Cached texts are not re-sent; the rest are embedded in
// batches of at most the configured size.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, len(texts))

	// Satisfy what we can from the cache.
	var missing []int
	for i, text := range texts {
		if a.cache != nil {
			if vec, ok := a.cache.get(textKey(text)); ok {
				result[i] = vec
				continue
			}
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		logger.Debug("Embedding batch fully served from cache (%d texts)", len(texts))
		return result, nil
	}
	logger.Debug("Embedding %d of %d texts (%d cached)", len(missing), len(texts), len(texts)-len(missing))

	for start := 0; start < len(missing); start += a.maxBatchSize {
		end := start + a.maxBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batchIdx := missing[start:end]

		batch := make([]string, len(batchIdx))
		for i, idx := range batchIdx {
			batch[i] = texts[idx]
		}

		vecs, err := a.embedWithRetry(ctx, batch)
		if err != nil {
			return nil, &domain.EmbeddingServiceError{
				Op:         "embed batch",
				BatchStart: batchIdx[0],
				BatchEnd:   batchIdx[len(batchIdx)-1],
				Err:        err,
			}
		}
		if len(vecs) != len(batch) {
			return nil, &domain.EmbeddingServiceError{
				Op:         "embed batch",
				BatchStart: batchIdx[0],
				BatchEnd:   batchIdx[len(batchIdx)-1],
				Err:        fmt.Errorf("backend returned %d vectors for %d texts", len(vecs), len(batch)),
			}
		}

		for i, idx := range batchIdx {
			result[idx] = vecs[i]
			if a.cache != nil {
				a.cache.put(textKey(texts[idx]), vecs[i])
			}
		}
	}

	return result, nil
}

// embedWithRetry performs one backend batch call with rate limiting and
// bounded exponential backoff on transient failures.
func (a *Adapter) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	delay := a.baseDelay

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		vecs, err := a.backend.EmbedBatch(callCtx, batch)
		cancel()
		if err == nil {
			return vecs, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isTransient(err) {
			return nil, err
		}
		if attempt == a.maxAttempts {
			break
		}

		logger.Warn("Embedding attempt %d/%d failed: %v (retrying in %s)", attempt, a.maxAttempts, err, delay)
		if err := a.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}

	return nil, lastErr
}

// Dimensions returns the embedding vector size of the backend.
func (a *Adapter) Dimensions() int { return a.backend.Dimensions() }

// ModelName returns the backend model name.
func (a *Adapter) ModelName() string { return a.backend.ModelName() }

// Close releases resources.
func (a *Adapter) Close() error { return a.backend.Close() }

// isTransient reports whether an error is worth a retry: explicit
// rate-limit/server errors, timeouts and transport-level failures.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Unknown failures (connection reset, DNS) get the retry budget;
	// real caller bugs surface as *APIError with a 4xx status.
	return !errors.Is(err, context.Canceled)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
