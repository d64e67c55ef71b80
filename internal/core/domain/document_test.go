package domain

import (
	"errors"
	"testing"
)

func TestChunkID(t *testing.T) {
	id := ChunkID("doc-1", 3)
	if id != "doc-1:3" {
		t.Errorf("expected 'doc-1:3', got %q", id)
	}
}

func TestParseChunkID(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		docID, pos, err := ParseChunkID("doc-1:7")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if docID != "doc-1" {
			t.Errorf("expected 'doc-1', got %q", docID)
		}
		if pos != 7 {
			t.Errorf("expected position 7, got %d", pos)
		}
	})

	t.Run("document id containing colon", func(t *testing.T) {
		docID, pos, err := ParseChunkID("a:b:12")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if docID != "a:b" || pos != 12 {
			t.Errorf("expected ('a:b', 12), got (%q, %d)", docID, pos)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		for _, id := range []string{"", "no-separator", ":5", "doc:", "doc:-1", "doc:abc"} {
			if _, _, err := ParseChunkID(id); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ParseChunkID(%q): expected ErrInvalidArgument, got %v", id, err)
			}
		}
	})
}

func TestDocumentOfChunk(t *testing.T) {
	if !DocumentOfChunk("doc-1:0", "doc-1") {
		t.Error("expected doc-1:0 to belong to doc-1")
	}
	if DocumentOfChunk("doc-10:0", "doc-1") {
		t.Error("doc-10:0 must not match doc-1")
	}
	if DocumentOfChunk("doc-1", "doc-1") {
		t.Error("bare document id is not a chunk of itself")
	}
}
