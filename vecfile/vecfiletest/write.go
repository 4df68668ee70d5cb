// Package vecfiletest writes small vector files for tests.
package vecfiletest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WriteFvecs writes vectors in fvecs layout and returns path.
func WriteFvecs(t testing.TB, path string, vectors [][]float32) string {
	t.Helper()
	var out []any
	for _, v := range vectors {
		out = append(out, int32(len(v)), v)
	}
	return write(t, path, out...)
}

// WriteBin writes vectors in bin layout and returns path.
func WriteBin(t testing.TB, path string, vectors [][]float32) string {
	t.Helper()
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	out := []any{int32(len(vectors)), int32(dim)}
	for _, v := range vectors {
		out = append(out, v)
	}
	return write(t, path, out...)
}

// WriteNeighbors writes an ids matrix and, when distances is non-nil, the
// distance matrix after it. Without distances this is the search-result layout.
func WriteNeighbors(t testing.TB, path string, ids [][]uint32, distances [][]float32) string {
	t.Helper()
	k := 0
	if len(ids) > 0 {
		k = len(ids[0])
	}
	out := []any{int32(len(ids)), int32(k)}
	for _, row := range ids {
		out = append(out, row)
	}
	for _, row := range distances {
		out = append(out, row)
	}
	return write(t, path, out...)
}

// WriteBatchGroundTruth writes a batch ground-truth file with the given number
// of identical batches.
func WriteBatchGroundTruth(t testing.TB, path string, batches int, ids [][]uint32, distances [][]float32) string {
	t.Helper()
	k := 0
	if len(ids) > 0 {
		k = len(ids[0])
	}
	out := []any{int32(len(ids)), int32(k), int32(batches)}
	for b := 0; b < batches; b++ {
		out = append(out, int32((b+1)*100))
		for _, row := range ids {
			out = append(out, row)
		}
		for _, row := range distances {
			out = append(out, row)
		}
	}
	return write(t, path, out...)
}

func write(t testing.TB, path string, values ...any) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	for _, v := range values {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return path
}
