package vecfile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/patrikhermansson/annprep/core"
	"golang.org/x/exp/mmap"
)

// Neighbors is a row-major n x k matrix of ids with optional distances.
type Neighbors struct {
	N, K      int
	IDs       []uint32
	Distances []float32 // nil when the file carries no distances
}

// Row returns the ids of query i.
func (m *Neighbors) Row(i int) []uint32 {
	return m.IDs[i*m.K : (i+1)*m.K]
}

// DistanceRow returns the distances of query i, or nil.
func (m *Neighbors) DistanceRow(i int) []float32 {
	if m.Distances == nil {
		return nil
	}
	return m.Distances[i*m.K : (i+1)*m.K]
}

// ReadGroundTruth loads a full ground-truth file.
func ReadGroundTruth(path string) (*Neighbors, error) {
	info, err := InspectGroundTruth(path)
	if err != nil {
		return nil, err
	}
	return readMatrix(path, info.Count, info.Dim, info.HasDistances)
}

// ReadResults loads a search-result file (same layout as ground truth without distances).
func ReadResults(path string) (*Neighbors, error) {
	info, err := InspectGroundTruth(path)
	if err != nil {
		return nil, err
	}
	if info.HasDistances {
		return nil, fmt.Errorf("%w: %s: result files carry no distances", core.ErrHeaderMismatch, path)
	}
	return readMatrix(path, info.Count, info.Dim, false)
}

func readMatrix(path string, n, k int, withDistances bool) (*Neighbors, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	cells := n * k
	body := make([]byte, 4*cells)
	if _, err := r.ReadAt(body, 8); err != nil && cells > 0 {
		return nil, fmt.Errorf("read ids from %s: %w", path, err)
	}
	m := &Neighbors{N: n, K: k, IDs: make([]uint32, cells)}
	for i := range m.IDs {
		m.IDs[i] = binary.LittleEndian.Uint32(body[4*i:])
	}
	if withDistances {
		if _, err := r.ReadAt(body, int64(8+4*cells)); err != nil && cells > 0 {
			return nil, fmt.Errorf("read distances from %s: %w", path, err)
		}
		m.Distances = make([]float32, cells)
		for i := range m.Distances {
			m.Distances[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
		}
	}
	return m, nil
}
