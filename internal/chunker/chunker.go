// Package chunker splits extracted document text into overlapping
// passages suitable for embedding.
package chunker

import (
	"fmt"
	"iter"
	"strings"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

// DefaultSize is the default number of characters per passage.
const DefaultSize = 1000

// DefaultOverlap is the default number of characters shared by
// consecutive passages.
const DefaultOverlap = 200

// Passage is one window of document text.
// Start and End are rune offsets into the source text ([Start, End)),
// so the union of all passage ranges reconstructs the input exactly.
type Passage struct {
	Text  string
	Start int
	End   int
}

// Chunker produces fixed-size overlapping windows over text.
// Consecutive windows share exactly Overlap characters; the window
// start advances by Size - Overlap.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Size must be positive and Overlap must be in
// [0, Size); anything else fails with domain.ErrConfig.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrConfig, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunks returns a lazy, restartable sequence of non-empty passages.
// Whitespace-only or empty input yields no passages. The final passage
// may be shorter than the configured size.
func (c *Chunker) Chunks(text string) iter.Seq[Passage] {
	return func(yield func(Passage) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		runes := []rune(text)
		n := len(runes)
		step := c.size - c.overlap

		for start := 0; start < n; start += step {
			end := start + c.size
			if end > n {
				end = n
			}
			p := Passage{
				Text:  string(runes[start:end]),
				Start: start,
				End:   end,
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Split eagerly collects all passages for text.
func (c *Chunker) Split(text string) []Passage {
	var passages []Passage
	for p := range c.Chunks(text) {
		passages = append(passages, p)
	}
	return passages
}
