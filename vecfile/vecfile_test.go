package vecfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/vecfile"
	"github.com/patrikhermansson/annprep/vecfile/vecfiletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectors(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dim)
		for j := range out[i] {
			out[i][j] = float32(i*dim + j)
		}
	}
	return out
}

func TestInspectFvecs(t *testing.T) {
	path := vecfiletest.WriteFvecs(t, filepath.Join(t.TempDir(), "sift_query.fvecs"), vectors(5, 4))

	info, err := vecfile.Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, vecfile.FormatFvecs, info.Format)
	assert.Equal(t, 5, info.Count)
	assert.Equal(t, 4, info.Dim)
	assert.Equal(t, int64(5*(4+16)), info.Size)
}

func TestInspectFvecsTruncated(t *testing.T) {
	path := vecfiletest.WriteFvecs(t, filepath.Join(t.TempDir(), "q.fvecs"), vectors(2, 4))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = vecfile.InspectFvecs(path)
	require.ErrorIs(t, err, core.ErrHeaderMismatch)
}

func TestInspectEmptyFvecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.fvecs")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	info, err := vecfile.InspectFvecs(path)
	require.NoError(t, err)
	assert.Zero(t, info.Count)
}

func TestInspectBin(t *testing.T) {
	path := vecfiletest.WriteBin(t, filepath.Join(t.TempDir(), "base.bin"), vectors(3, 8))

	info, err := vecfile.Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, vecfile.FormatBin, info.Format)
	assert.Equal(t, 3, info.Count)
	assert.Equal(t, 8, info.Dim)
	assert.Contains(t, info.String(), "3 x 8")
}

func TestInspectBinSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.bin")
	vecfiletest.WriteNeighbors(t, path, [][]uint32{{1, 2}, {3, 4}}, nil)
	// header says 2 x 2 floats (16 bytes of body) and that is what we wrote; append one extra byte
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{0})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = vecfile.InspectBin(path)
	require.ErrorIs(t, err, core.ErrHeaderMismatch)
}

func TestInspectGroundTruth(t *testing.T) {
	dir := t.TempDir()
	ids := [][]uint32{{1, 2, 3}, {4, 5, 6}}
	dists := [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}

	withDist := vecfiletest.WriteNeighbors(t, filepath.Join(dir, "base_100_1k.gt"), ids, dists)
	info, err := vecfile.Inspect(withDist)
	require.NoError(t, err)
	assert.Equal(t, vecfile.FormatGroundTruth, info.Format)
	assert.Equal(t, 2, info.Count)
	assert.Equal(t, 3, info.Dim)
	assert.True(t, info.HasDistances)

	idsOnly := vecfiletest.WriteNeighbors(t, filepath.Join(dir, "ids.gt"), ids, nil)
	info, err = vecfile.InspectGroundTruth(idsOnly)
	require.NoError(t, err)
	assert.False(t, info.HasDistances)
}

func TestInspectBatchGroundTruth(t *testing.T) {
	path := vecfiletest.WriteBatchGroundTruth(t, filepath.Join(t.TempDir(), "base_batch.gt"), 3,
		[][]uint32{{1, 2}, {3, 4}}, [][]float32{{1, 2}, {3, 4}})

	info, err := vecfile.Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, vecfile.FormatBatchGroundTruth, info.Format)
	assert.Equal(t, 3, info.Batches)
	assert.Equal(t, 2, info.Count)
	assert.Equal(t, 2, info.Dim)
}

func TestInspectUnknownExtension(t *testing.T) {
	_, err := vecfile.Inspect("results.csv")
	require.Error(t, err)
}

func TestReadGroundTruthAndResults(t *testing.T) {
	dir := t.TempDir()
	gtPath := vecfiletest.WriteNeighbors(t, filepath.Join(dir, "a.gt"),
		[][]uint32{{7, 8}, {9, 10}}, [][]float32{{0.5, 1.5}, {2.5, 3.5}})
	resPath := vecfiletest.WriteNeighbors(t, filepath.Join(dir, "res.bin"), [][]uint32{{7, 1}, {10, 9}}, nil)

	gt, err := vecfile.ReadGroundTruth(gtPath)
	require.NoError(t, err)
	assert.Equal(t, []uint32{9, 10}, gt.Row(1))
	assert.Equal(t, []float32{2.5, 3.5}, gt.DistanceRow(1))

	res, err := vecfile.ReadResults(resPath)
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 1}, res.Row(0))
	assert.Nil(t, res.DistanceRow(0))

	_, err = vecfile.ReadResults(gtPath)
	require.ErrorIs(t, err, core.ErrHeaderMismatch)
}
