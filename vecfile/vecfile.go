// Package vecfile reads the headers of the vector, ground-truth and search-result
// files the benchmark works with, and checks them against the file size.
//
// Layouts (all little-endian):
//
//	fvecs     per record: int32 dim, dim x float32
//	bin       int32 npts, int32 dim, npts*dim x float32
//	gt        int32 npts, int32 k, npts*k x uint32 ids [, npts*k x float32 distances]
//	batch gt  int32 npts, int32 k, int32 batches, per batch: int32 base size, ids, distances
//	results   int32 n, int32 k, n*k x uint32 ids
package vecfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kshard/fvecs"
	"github.com/patrikhermansson/annprep/core"
	"golang.org/x/exp/mmap"
)

// Format names a file layout.
type Format string

const (
	FormatFvecs            Format = "fvecs"
	FormatBin              Format = "bin"
	FormatGroundTruth      Format = "gt"
	FormatBatchGroundTruth Format = "batch-gt"
)

// Info describes a vector-like file.
type Info struct {
	Path         string
	Format       Format
	Count        int   // vectors, or queries for ground truth
	Dim          int   // dimension, or k for ground truth
	Batches      int   // batch ground truth only
	HasDistances bool  // ground truth only
	Size         int64 // bytes on disk
}

func (i Info) String() string {
	s := fmt.Sprintf("%s: %s, %d x %d, %s", i.Path, i.Format, i.Count, i.Dim, humanize.Bytes(uint64(i.Size)))
	if i.Format == FormatBatchGroundTruth {
		s += fmt.Sprintf(", %d batches", i.Batches)
	}
	return s
}

// Inspect picks the layout from the file extension. Ground-truth files are
// told apart from batch ground-truth files by their size.
func Inspect(path string) (Info, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fvecs":
		return InspectFvecs(path)
	case ".bin":
		return InspectBin(path)
	case ".gt", ".ibin":
		info, err := InspectGroundTruth(path)
		if errors.Is(err, core.ErrHeaderMismatch) {
			if batch, berr := InspectBatchGroundTruth(path); berr == nil {
				return batch, nil
			}
		}
		return info, err
	default:
		return Info{}, fmt.Errorf("unknown vector file extension %q", filepath.Ext(path))
	}
}

// InspectFvecs reads the first record for its dimension and derives the
// record count from the file size.
func InspectFvecs(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return Info{}, err
	}
	info := Info{Path: path, Format: FormatFvecs, Size: st.Size()}
	if st.Size() == 0 {
		return info, nil
	}

	first, err := fvecs.NewDecoder[float32](f).Read()
	if err != nil {
		return info, fmt.Errorf("%w: %s: read first vector: %v", core.ErrHeaderMismatch, path, err)
	}
	if len(first) == 0 {
		return info, fmt.Errorf("%w: %s: zero dimension", core.ErrHeaderMismatch, path)
	}
	record := int64(4 + 4*len(first))
	if st.Size()%record != 0 {
		return info, fmt.Errorf("%w: %s: size %d is not a multiple of record size %d",
			core.ErrHeaderMismatch, path, st.Size(), record)
	}
	info.Dim = len(first)
	info.Count = int(st.Size() / record)
	return info, nil
}

// InspectBin checks a bin file header against its size.
func InspectBin(path string) (Info, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer r.Close()

	hdr, err := readHeader(r, 2)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", core.ErrHeaderMismatch, path, err)
	}
	npts, dim := int64(hdr[0]), int64(hdr[1])
	size := int64(r.Len())
	info := Info{Path: path, Format: FormatBin, Count: int(npts), Dim: int(dim), Size: size}
	if expected := 8 + npts*dim*4; npts < 0 || dim < 0 || size != expected {
		return info, fmt.Errorf("%w: %s: size %d, expected %d (npts=%d, dim=%d)",
			core.ErrHeaderMismatch, path, size, expected, npts, dim)
	}
	return info, nil
}

// InspectGroundTruth checks a full ground-truth file. Files with and without
// the distance matrix are both accepted.
func InspectGroundTruth(path string) (Info, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer r.Close()

	hdr, err := readHeader(r, 2)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", core.ErrHeaderMismatch, path, err)
	}
	n, k := int64(hdr[0]), int64(hdr[1])
	size := int64(r.Len())
	info := Info{Path: path, Format: FormatGroundTruth, Count: int(n), Dim: int(k), Size: size}
	if n < 0 || k < 0 {
		return info, fmt.Errorf("%w: %s: negative header (npts=%d, k=%d)", core.ErrHeaderMismatch, path, n, k)
	}
	switch size {
	case 8 + n*k*8:
		info.HasDistances = true
	case 8 + n*k*4:
	default:
		return info, fmt.Errorf("%w: %s: size %d does not fit npts=%d, k=%d",
			core.ErrHeaderMismatch, path, size, n, k)
	}
	return info, nil
}

// InspectBatchGroundTruth checks a batch ground-truth file.
func InspectBatchGroundTruth(path string) (Info, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer r.Close()

	hdr, err := readHeader(r, 3)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", core.ErrHeaderMismatch, path, err)
	}
	n, k, b := int64(hdr[0]), int64(hdr[1]), int64(hdr[2])
	size := int64(r.Len())
	info := Info{Path: path, Format: FormatBatchGroundTruth, Count: int(n), Dim: int(k), Batches: int(b),
		HasDistances: true, Size: size}
	if expected := 12 + b*(4+n*k*8); n < 0 || k < 0 || b < 0 || size != expected {
		return info, fmt.Errorf("%w: %s: size %d, expected %d (npts=%d, k=%d, batches=%d)",
			core.ErrHeaderMismatch, path, size, expected, n, k, b)
	}
	return info, nil
}

// readHeader reads n little-endian int32 values from the start of r.
func readHeader(r io.ReaderAt, n int) ([]int32, error) {
	buf := make([]byte, 4*n)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("short header: %w", err)
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return out, nil
}
