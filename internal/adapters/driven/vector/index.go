// Package vector provides the owned vector index: an exact flat search
// over L2-normalised vectors with an optional navigable small-world
// graph for approximate search at scale.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
	"github.com/docuchat/docuchat-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	// DefaultApproxThreshold is the entry count above which queries
	// switch from the exact scan to the graph index.
	DefaultApproxThreshold = 10000

	// DefaultSearchWidth is the graph search beam width (ef). Larger
	// values trade query time for recall.
	DefaultSearchWidth = 64
)

// entry is one (chunk ID, vector) pair. Vectors are stored L2-normalised
// so similarity is a plain inner product at query time.
type entry struct {
	id  string
	vec []float32
}

// Index stores chunk vectors and answers k-nearest-neighbour queries.
//
// The flat entry list is the source of truth and is always kept in
// insertion order; the graph is an acceleration structure rebuilt from
// it when invalidated by deletes.
type Index struct {
	mu  sync.RWMutex
	dim int

	entries []entry
	byID    map[string]int

	approxThreshold int
	searchWidth     int

	graph      *graph
	graphStale bool

	diskSize int64
}

// Option configures the index.
type Option func(*Index)

// WithApproxThreshold sets the entry count above which search goes
// through the graph index. Zero or negative disables approximate mode.
func WithApproxThreshold(n int) Option {
	return func(ix *Index) { ix.approxThreshold = n }
}

// WithSearchWidth sets the graph search beam width (ef).
func WithSearchWidth(ef int) Option {
	return func(ix *Index) {
		if ef > 0 {
			ix.searchWidth = ef
		}
	}
}

// New creates an empty index. The dimension is fixed by the first insert.
func New(opts ...Option) *Index {
	ix := &Index{
		byID:            make(map[string]int),
		approxThreshold: DefaultApproxThreshold,
		searchWidth:     DefaultSearchWidth,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Insert adds a vector for the given chunk ID.
func (ix *Index) Insert(_ context.Context, chunkID string, vec []float32) error {
	if chunkID == "" {
		return fmt.Errorf("%w: empty chunk id", domain.ErrInvalidArgument)
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector for chunk %s", domain.ErrInvalidArgument, chunkID)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(vec)
	} else if len(vec) != ix.dim {
		return fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, chunkID, len(vec), ix.dim)
	}

	if _, ok := ix.byID[chunkID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, chunkID)
	}

	ix.entries = append(ix.entries, entry{id: chunkID, vec: normalise(vec)})
	ix.byID[chunkID] = len(ix.entries) - 1

	// Incremental graph insert keeps approximate mode warm; a stale
	// graph is rebuilt wholesale on the next query instead.
	if ix.graph != nil && !ix.graphStale {
		ix.graph.add(len(ix.entries) - 1)
	}

	return nil
}

// DeleteByDocument removes all entries whose chunk belongs to documentID.
func (ix *Index) DeleteByDocument(_ context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidArgument)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := ix.entries[:0]
	removed := 0
	for _, e := range ix.entries {
		if domain.DocumentOfChunk(e.id, documentID) {
			delete(ix.byID, e.id)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return nil
	}

	ix.entries = kept
	for i, e := range ix.entries {
		ix.byID[e.id] = i
	}

	// The graph references entries by position; compaction shifted them.
	ix.graphStale = true

	if len(ix.entries) == 0 {
		ix.dim = 0
		ix.graph = nil
		ix.graphStale = false
	}

	return nil
}

// Search returns the k most similar entries to vec.
func (ix *Index) Search(_ context.Context, vec []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, k)
	}

	// Rebuilding the graph needs the write lock; do it before taking
	// the read path so concurrent queries still share snapshots.
	if ix.useGraph() {
		ix.ensureGraph()
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 {
		return nil, nil
	}
	if len(vec) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(vec), ix.dim)
	}

	q := normalise(vec)

	if ix.graph != nil && !ix.graphStale && len(ix.entries) > ix.approxThreshold && ix.approxThreshold > 0 {
		return ix.searchGraph(q, k), nil
	}
	return ix.searchFlat(q, k), nil
}

// searchFlat is the exact O(n·D) scan.
func (ix *Index) searchFlat(q []float32, k int) []domain.VectorHit {
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(ix.entries))
	for i, e := range ix.entries {
		scores[i] = scored{pos: i, score: dot(q, e.vec)}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		// Earlier-inserted wins ties.
		return scores[i].pos < scores[j].pos
	})

	if k > len(scores) {
		k = len(scores)
	}
	hits := make([]domain.VectorHit, k)
	for i := 0; i < k; i++ {
		hits[i] = domain.VectorHit{ChunkID: ix.entries[scores[i].pos].id, Score: scores[i].score}
	}
	return hits
}

// searchGraph queries the small-world graph with beam width
// max(searchWidth, k).
func (ix *Index) searchGraph(q []float32, k int) []domain.VectorHit {
	ef := ix.searchWidth
	if k > ef {
		ef = k
	}
	candidates := ix.graph.search(q, k, ef)

	hits := make([]domain.VectorHit, len(candidates))
	for i, c := range candidates {
		hits[i] = domain.VectorHit{ChunkID: ix.entries[c.pos].id, Score: c.score}
	}
	return hits
}

// useGraph reports whether the next query would take the graph path.
func (ix *Index) useGraph() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.approxThreshold > 0 && len(ix.entries) > ix.approxThreshold
}

// ensureGraph builds or rebuilds the graph from the flat entries.
func (ix *Index) ensureGraph() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.graph != nil && !ix.graphStale {
		return
	}
	g := newGraph(ix)
	for i := range ix.entries {
		g.add(i)
	}
	ix.graph = g
	ix.graphStale = false
}

// Stats reports entry count, dimension and on-disk size.
func (ix *Index) Stats() domain.IndexStats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return domain.IndexStats{
		Entries:     len(ix.entries),
		Dimension:   ix.dim,
		DiskSize:    ix.diskSize,
		Approximate: ix.approxThreshold > 0 && len(ix.entries) > ix.approxThreshold,
	}
}

// Close releases resources.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = nil
	ix.byID = make(map[string]int)
	ix.graph = nil
	ix.dim = 0
	return nil
}

// normalise returns an L2-normalised copy of v. A zero vector is
// returned as an all-zero copy.
func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
