package vector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

func TestPersistLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.bin")

	rng := rand.New(rand.NewSource(3))
	original := New()
	for i := 0; i < 40; i++ {
		doc := fmt.Sprintf("doc-%d", i%8)
		id := domain.ChunkID(doc, i/8)
		if err := original.Insert(ctx, id, randomUnitVec(rng, 12)); err != nil {
			t.Fatal(err)
		}
	}
	// Mix in a deletion so the persisted state reflects mutations.
	if err := original.DeleteByDocument(ctx, "doc-5"); err != nil {
		t.Fatal(err)
	}

	if err := original.Persist(path); err != nil {
		t.Fatalf("persist: %v", err)
	}

	loaded := New()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	orig, ls := original.Stats(), loaded.Stats()
	if orig.Entries != ls.Entries || orig.Dimension != ls.Dimension {
		t.Fatalf("stats differ: original=%+v loaded=%+v", orig, ls)
	}
	if ls.DiskSize == 0 {
		t.Error("expected non-zero disk size after load")
	}

	// Identical query results: same IDs, same order.
	for q := 0; q < 10; q++ {
		query := randomUnitVec(rng, 12)
		want, err := original.Search(ctx, query, 7)
		if err != nil {
			t.Fatal(err)
		}
		got, err := loaded.Search(ctx, query, 7)
		if err != nil {
			t.Fatal(err)
		}
		if len(want) != len(got) {
			t.Fatalf("query %d: %d vs %d hits", q, len(want), len(got))
		}
		for i := range want {
			if want[i].ChunkID != got[i].ChunkID {
				t.Errorf("query %d hit %d: %s vs %s", q, i, want[i].ChunkID, got[i].ChunkID)
			}
		}
	}
}

func TestPersist_EmptyIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")

	if err := New().Persist(path); err != nil {
		t.Fatalf("persist empty: %v", err)
	}

	loaded := New()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if got := loaded.Stats().Entries; got != 0 {
		t.Errorf("expected empty index, got %d entries", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	ix := New()
	if err := ix.Insert(context.Background(), "doc-1:0", []float32{1, 2}); err != nil {
		t.Fatal(err)
	}

	err := ix.Load(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	if !errors.Is(err, domain.ErrIndexLoad) {
		t.Fatalf("expected ErrIndexLoad, got %v", err)
	}

	// The failed load leaves the index untouched.
	if got := ix.Stats().Entries; got != 1 {
		t.Errorf("expected index unchanged (1 entry), got %d", got)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cases := map[string][]byte{
		"garbage":   []byte("this is not an index"),
		"bad magic": append([]byte("XXXX"), make([]byte, 32)...),
		"truncated": nil, // filled below from a valid file
	}

	valid := New()
	for i := 0; i < 5; i++ {
		if err := valid.Insert(ctx, domain.ChunkID("doc-1", i), []float32{float32(i), 1}); err != nil {
			t.Fatal(err)
		}
	}
	validPath := filepath.Join(dir, "valid.bin")
	if err := valid.Persist(validPath); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(validPath)
	if err != nil {
		t.Fatal(err)
	}
	cases["truncated"] = data[:len(data)-7]
	cases["trailing data"] = append(append([]byte{}, data...), 0xFF)

	// Headers declaring more entries or wider vectors than the file can
	// physically hold must fail cleanly, not drive allocations.
	hugeCount := append([]byte{}, indexMagic[:]...)
	hugeCount = binary.LittleEndian.AppendUint32(hugeCount, indexFormatVersion)
	hugeCount = binary.LittleEndian.AppendUint32(hugeCount, 768)
	hugeCount = binary.LittleEndian.AppendUint64(hugeCount, 1<<62)
	cases["oversized count"] = hugeCount

	hugeDim := append([]byte{}, indexMagic[:]...)
	hugeDim = binary.LittleEndian.AppendUint32(hugeDim, indexFormatVersion)
	hugeDim = binary.LittleEndian.AppendUint32(hugeDim, 1<<30)
	hugeDim = binary.LittleEndian.AppendUint64(hugeDim, 1)
	cases["oversized dimension"] = hugeDim

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "corrupt.bin")
			if err := os.WriteFile(path, content, 0600); err != nil {
				t.Fatal(err)
			}

			ix := New()
			if err := ix.Insert(ctx, "keep:0", []float32{1}); err != nil {
				t.Fatal(err)
			}
			if err := ix.Load(path); !errors.Is(err, domain.ErrIndexLoad) {
				t.Fatalf("expected ErrIndexLoad, got %v", err)
			}
			if got := ix.Stats().Entries; got != 1 {
				t.Errorf("index must be unchanged after failed load, got %d entries", got)
			}
		})
	}
}
