package vector

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

// randomUnitVec returns a pseudo-random vector; normalisation happens
// at insert time.
func randomUnitVec(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

func TestGraphSearch_RecallAgainstFlat(t *testing.T) {
	const (
		dim     = 16
		n       = 600
		queries = 20
		k       = 10
	)

	rng := rand.New(rand.NewSource(42))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomUnitVec(rng, dim)
	}

	exact := New() // threshold high: always flat
	approx := New(WithApproxThreshold(100), WithSearchWidth(128))
	ctx := context.Background()

	for i, v := range vecs {
		id := fmt.Sprintf("doc-%d:0", i)
		if err := exact.Insert(ctx, id, v); err != nil {
			t.Fatal(err)
		}
		if err := approx.Insert(ctx, id, v); err != nil {
			t.Fatal(err)
		}
	}

	if !approx.Stats().Approximate {
		t.Fatal("expected approximate mode above threshold")
	}

	var found, total int
	for q := 0; q < queries; q++ {
		query := randomUnitVec(rng, dim)

		want, err := exact.Search(ctx, query, k)
		if err != nil {
			t.Fatal(err)
		}
		got, err := approx.Search(ctx, query, k)
		if err != nil {
			t.Fatal(err)
		}

		wantSet := make(map[string]bool, len(want))
		for _, h := range want {
			wantSet[h.ChunkID] = true
		}
		for _, h := range got {
			if wantSet[h.ChunkID] {
				found++
			}
		}
		total += len(want)
	}

	recall := float64(found) / float64(total)
	if recall < 0.9 {
		t.Errorf("graph recall %0.2f below 0.9", recall)
	}
}

func TestGraphSearch_DeterministicForFixedState(t *testing.T) {
	const n = 300
	rng := rand.New(rand.NewSource(7))
	ctx := context.Background()

	ix := New(WithApproxThreshold(50), WithSearchWidth(64))
	for i := 0; i < n; i++ {
		if err := ix.Insert(ctx, fmt.Sprintf("doc-%d:0", i), randomUnitVec(rng, 8)); err != nil {
			t.Fatal(err)
		}
	}

	query := randomUnitVec(rng, 8)
	first, err := ix.Search(ctx, query, 5)
	if err != nil {
		t.Fatal(err)
	}
	for round := 0; round < 3; round++ {
		again, err := ix.Search(ctx, query, 5)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(first) {
			t.Fatalf("round %d: result count changed", round)
		}
		for i := range first {
			if first[i].ChunkID != again[i].ChunkID {
				t.Fatalf("round %d: ranking changed at %d", round, i)
			}
		}
	}
}

func TestGraphRebuildAfterDelete(t *testing.T) {
	const n = 200
	rng := rand.New(rand.NewSource(11))
	ctx := context.Background()

	ix := New(WithApproxThreshold(50), WithSearchWidth(64))
	for i := 0; i < n; i++ {
		doc := fmt.Sprintf("doc-%d", i%20)
		if err := ix.Insert(ctx, fmt.Sprintf("%s:%d", doc, i/20), randomUnitVec(rng, 8)); err != nil {
			t.Fatal(err)
		}
	}

	// Warm the graph, then invalidate it.
	if _, err := ix.Search(ctx, randomUnitVec(rng, 8), 3); err != nil {
		t.Fatal(err)
	}
	if err := ix.DeleteByDocument(ctx, "doc-3"); err != nil {
		t.Fatal(err)
	}

	hits, err := ix.Search(ctx, randomUnitVec(rng, 8), n)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if domainOf := h.ChunkID[:5]; domainOf == "doc-3" && h.ChunkID[5] == ':' {
			t.Errorf("deleted document surfaced: %s", h.ChunkID)
		}
	}
	if got := ix.Stats().Entries; got != n-10 {
		t.Errorf("expected %d entries, got %d", n-10, got)
	}
}
