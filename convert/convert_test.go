package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/internal/metrics"
	"github.com/patrikhermansson/annprep/internal/runner"
	"github.com/patrikhermansson/annprep/internal/runner/runnertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

// setup creates a data tree and a converter whose fake tool writes the target file.
func setup(t *testing.T) (*Converter, *runnertest.Recorder, string) {
	t.Helper()
	root := t.TempDir()
	touch(t, filepath.Join(root, "sift", "sift_base.fvecs"))
	touch(t, filepath.Join(root, "sift", "sift_query.fvecs"))
	touch(t, filepath.Join(root, "gist", "nested", "gist_query.fvecs"))
	touch(t, filepath.Join(root, "gist", "gist_base_100_1k.gt"))

	cfg := core.DefaultConfig().Convert
	cfg.DataRoot = root
	cfg.Tool = "/opt/utils/build/fvecs_to_bin"

	rec := &runnertest.Recorder{Fn: func(cmd runner.Command) error {
		return os.WriteFile(cmd.Args[2], []byte("bin"), 0o644)
	}}
	c := New(cfg, rec, metrics.NewObserver())
	c.CheckTool = func(string) error { return nil }
	return c, rec, root
}

func TestDiscoverFindsNestedSources(t *testing.T) {
	c, _, root := setup(t)
	files, err := c.Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "gist", "nested", "gist_query.fvecs"),
		filepath.Join(root, "sift", "sift_base.fvecs"),
		filepath.Join(root, "sift", "sift_query.fvecs"),
	}, files)
}

func TestRunConvertsAndSkipsExisting(t *testing.T) {
	c, rec, root := setup(t)
	touch(t, filepath.Join(root, "sift", "sift_base.bin"))

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Failed())

	require.Len(t, rec.Commands, 2)
	assert.Equal(t, []string{"float",
		filepath.Join(root, "gist", "nested", "gist_query.fvecs"),
		filepath.Join(root, "gist", "nested", "gist_query.bin")}, rec.Commands[0].Args)
	assert.Equal(t, 1.0, c.Observer.Count(Stage, metrics.Skipped))
}

func TestRunIsIdempotent(t *testing.T) {
	c, rec, _ := setup(t)

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	first := len(rec.Commands)
	require.Equal(t, 3, first)

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, len(rec.Commands), "second run must not invoke the tool again")
	assert.Equal(t, 3, report.Skipped)
	assert.Zero(t, report.Succeeded)
}

func TestRunContinuesAfterToolFailure(t *testing.T) {
	c, rec, _ := setup(t)
	rec.Fn = func(cmd runner.Command) error {
		if filepath.Base(cmd.Args[1]) == "sift_base.fvecs" {
			return runnertest.Fail(cmd, 1)
		}
		return os.WriteFile(cmd.Args[2], []byte("bin"), 0o644)
	}

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	require.Equal(t, 1, report.Failed())
	assert.Equal(t, "sift_base.fvecs", filepath.Base(report.Failures[0].Item))
	assert.Len(t, rec.Commands, 3)

	// the failed file is retried on the next run because no target exists
	rec.Fn = nil
	report, err = c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Skipped)
}

func TestPreflightMissingTool(t *testing.T) {
	cfg := core.DefaultConfig().Convert
	cfg.DataRoot = t.TempDir()
	cfg.Tool = filepath.Join(t.TempDir(), "fvecs_to_bin")
	rec := &runnertest.Recorder{}
	c := New(cfg, rec, nil)

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, core.ErrToolNotFound)
	assert.Contains(t, err.Error(), "fvecs_to_bin executable not found")
	assert.Empty(t, rec.Commands)
}

func TestPreflightMissingDataDir(t *testing.T) {
	c, _, root := setup(t)
	c.Config.DataRoot = filepath.Join(root, "absent")
	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, core.ErrDataDirNotFound)
}

func TestRunEmptyTree(t *testing.T) {
	c, rec, _ := setup(t)
	c.Config.DataRoot = t.TempDir()
	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Succeeded+report.Skipped+report.Failed())
	assert.Empty(t, rec.Commands)
}

func TestTargetOnlySwapsSuffix(t *testing.T) {
	c := New(core.DefaultConfig().Convert, nil, nil)
	assert.Equal(t, "data/x.fvecs.d/y.bin", c.Target("data/x.fvecs.d/y.fvecs"))
}
