package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
)

// On-disk format: magic, format version, dimension, entry count, then
// one record per entry (id length, id bytes, dimension float32 LE).
// Enough to rebuild the index without recomputing embeddings; the graph
// is reconstructed on demand after load.
var indexMagic = [4]byte{'D', 'C', 'V', 'X'}

const indexFormatVersion uint32 = 1

// Persist serialises the full index to path. The file is written to a
// temporary sibling and renamed, so a crash never leaves a torn index.
func (ix *Index) Persist(path string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := ix.writeTo(w); err != nil {
		tmp.Close()
		return fmt.Errorf("persist index: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("persist index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		ix.diskSize = info.Size()
	}
	return nil
}

func (ix *Index) writeTo(w io.Writer) error {
	if _, err := w.Write(indexMagic[:]); err != nil {
		return err
	}
	header := []any{indexFormatVersion, uint32(ix.dim), uint64(len(ix.entries))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	buf := make([]byte, 4)
	for _, e := range ix.entries {
		if len(e.id) > math.MaxUint16 {
			return fmt.Errorf("chunk id too long: %d bytes", len(e.id))
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(len(e.id))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, e.id); err != nil {
			return err
		}
		for _, f := range e.vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load replaces the index contents from path. On any failure the index
// is left exactly as it was.
func (ix *Index) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexLoad, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexLoad, err)
	}
	size := info.Size()

	entries, dim, err := readIndex(bufio.NewReader(f), size)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrIndexLoad, path, err)
	}

	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		if _, ok := byID[e.id]; ok {
			return fmt.Errorf("%w: %s: duplicate chunk id %s", domain.ErrIndexLoad, path, e.id)
		}
		byID[e.id] = i
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = entries
	ix.byID = byID
	ix.dim = dim
	ix.graph = nil
	ix.graphStale = false
	ix.diskSize = size
	return nil
}

func readIndex(r io.Reader, size int64) ([]entry, int, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, 0, err
	}
	if magic != indexMagic {
		return nil, 0, fmt.Errorf("bad magic %q", magic[:])
	}

	var version, dim32 uint32
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, 0, err
	}
	if version != indexFormatVersion {
		return nil, 0, fmt.Errorf("unsupported format version %d", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &dim32); err != nil {
		return nil, 0, err
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, 0, err
	}

	dim := int(dim32)
	if count == 0 {
		dim = 0
	}
	if count > 0 {
		if dim <= 0 {
			return nil, 0, fmt.Errorf("invalid dimension %d for %d entries", dim, count)
		}
		// The header is untrusted until proven honest: every record
		// takes at least the id length prefix, one id byte and the
		// vector, so a count or dimension the file cannot physically
		// hold is corruption, not an allocation request.
		const headerLen = 4 + 4 + 4 + 8
		minRecord := int64(2) + 1 + int64(dim)*4
		if maxEntries := (size - headerLen) / minRecord; count > uint64(maxEntries) {
			return nil, 0, fmt.Errorf("declared %d entries of dimension %d cannot fit in %d bytes", count, dim, size)
		}
	}

	entries := make([]entry, 0, count)
	vecBuf := make([]byte, dim*4)
	for i := uint64(0); i < count; i++ {
		var idLen uint16
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, 0, err
		}
		if idLen == 0 {
			return nil, 0, fmt.Errorf("entry %d: empty chunk id", i)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return nil, 0, err
		}
		if _, err := io.ReadFull(r, vecBuf); err != nil {
			return nil, 0, err
		}
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(vecBuf[j*4:]))
		}
		entries = append(entries, entry{id: string(idBytes), vec: vec})
	}

	// Anything after the declared entries is corruption.
	var trailing [1]byte
	if _, err := r.Read(trailing[:]); err != io.EOF {
		return nil, 0, fmt.Errorf("trailing data after %d entries", count)
	}

	return entries, dim, nil
}
