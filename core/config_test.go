package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesStandardLayout(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Fetch.URLs, 10)
	assert.Len(t, cfg.Datasets, 9)
	assert.Equal(t, "data", cfg.Fetch.DownloadDir)
	assert.Equal(t, 1000, cfg.GroundTruth.QueryCount)
	assert.Equal(t, 10, cfg.GroundTruth.K)

	gist, err := cfg.SelectDatasets([]string{"gist"})
	require.NoError(t, err)
	require.Len(t, gist, 1)
	assert.Equal(t, "gist/gistbase.fvecs", gist[0].Base)
	assert.Equal(t, "gist/gist_query_1k.fvecs", gist[0].TruncatedQuery)
	assert.Equal(t, "gist/gist_base_100_1k.gt", gist[0].GroundTruth)
}

func TestDefaultStagesShareDataRoot(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.DataRoot, cfg.Fetch.DownloadDir)
	assert.Equal(t, cfg.DataRoot, cfg.GroundTruth.DataRoot)
	assert.Equal(t, cfg.DataRoot, cfg.Convert.DataRoot)
	assert.Equal(t, filepath.Join("data", "crop"), cfg.GroundTruth.CropTool)
	assert.Equal(t, filepath.Join("data", "compute_gt"), cfg.GroundTruth.GTTool)
	// fvecs_to_bin lives in utils/build next to the data directory
	assert.Equal(t, "utils/build/fvecs_to_bin", cfg.Convert.Tool)

	// archives extract dataset directories straight into the ground truth root
	sift := cfg.Datasets[len(cfg.Datasets)-1].Resolve(cfg.GroundTruth.DataRoot)
	assert.Equal(t, filepath.Join(cfg.Fetch.DownloadDir, "sift", "sift_base.fvecs"), sift.Base)
}

func TestLoadConfigDataRootPropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annprep.yaml")
	content := `
data_root: /srv/ann
convert:
  data_root: /srv/bin-out
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "/srv/ann", cfg.Fetch.DownloadDir)
	assert.Equal(t, "/srv/ann", cfg.GroundTruth.DataRoot)
	assert.Equal(t, "/srv/bin-out", cfg.Convert.DataRoot, "an explicit stage directory wins")
	assert.Equal(t, filepath.Join("/srv/ann", "crop"), cfg.GroundTruth.CropTool)
}

func TestLocalToolNeverUsesPath(t *testing.T) {
	assert.Equal(t, "./crop", localTool(".", "crop"))
	assert.Equal(t, filepath.Join("data", "crop"), localTool("data", "crop"))
}

func TestLoadConfigMissingOptionalFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Datasets, cfg.Datasets)
}

func TestLoadConfigMissingRequiredFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.Error(t, err)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annprep.yaml")
	content := `
fetch:
  download_dir: staging
  urls:
    - https://example.com/a.tar.gz
  retries: 2
  timeout: 30s
ground_truth:
  k: 100
  batch: true
datasets:
  - name: tiny
    base: tiny/base.fvecs
    query: tiny/query.fvecs
    truncated_query: tiny/query_10.fvecs
    ground_truth: tiny/base.gt
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Fetch.DownloadDir)
	assert.Equal(t, []string{"https://example.com/a.tar.gz"}, cfg.Fetch.URLs)
	assert.Equal(t, 2, cfg.Fetch.Retries)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 100, cfg.GroundTruth.K)
	assert.True(t, cfg.GroundTruth.Batch)
	assert.Equal(t, 1000, cfg.GroundTruth.QueryCount, "unset keys keep their defaults")
	require.Len(t, cfg.Datasets, 1)
	assert.Equal(t, "tiny/base_batch.gt", cfg.Datasets[0].BatchGroundTruthPath())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annprep.yaml")
	content := `
ground_truth:
  k: 0
  data_type: double
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadConfig(path, true)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "ground_truth.k")
	assert.Contains(t, err.Error(), "double")
}

func TestValidateDuplicateDataset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Datasets = append(cfg.Datasets, cfg.Datasets[0])
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "listed twice")
}

func TestDatasetResolve(t *testing.T) {
	d := Dataset{
		Name:           "sift",
		Base:           "sift/sift_base.fvecs",
		Query:          "/abs/sift_query.fvecs",
		TruncatedQuery: "sift/sift_query_1k.fvecs",
		GroundTruth:    "sift/sift_base_100_1k.gt",
	}
	r := d.Resolve("/data")
	assert.Equal(t, filepath.Join("/data", "sift/sift_base.fvecs"), r.Base)
	assert.Equal(t, "/abs/sift_query.fvecs", r.Query)
	assert.Equal(t, filepath.Join("/data", "sift/sift_base_100_1k_batch.gt"), r.BatchGroundTruth)
}

func TestSelectDatasetsUnknown(t *testing.T) {
	_, err := DefaultConfig().SelectDatasets([]string{"nope"})
	require.Error(t, err)
}
