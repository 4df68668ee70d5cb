package dataset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, archives map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAllContinuesAfterFailures(t *testing.T) {
	srv := newTestServer(t, map[string][]byte{
		"/dataset/deep1M.tar.gz": makeTarGz(t, tarEntry{name: "deep1M/deep1M_base.fvecs", body: "deep"}),
		"/dataset/broken.tar.gz": []byte("not an archive"),
	})
	dir := filepath.Join(t.TempDir(), "downloads")
	observer := metrics.NewObserver()
	f := NewFetcher(core.FetchConfig{DownloadDir: dir}, observer)

	urls := []string{
		srv.URL + "/dataset/missing.tar.gz",
		"gopher://example.com/gist.tar.gz",
		srv.URL + "/dataset/broken.tar.gz",
		srv.URL + "/dataset/deep1M.tar.gz",
	}
	report, err := f.FetchAll(context.Background(), urls)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	require.Equal(t, 3, report.Failed())
	assert.Equal(t, urls[0], report.Failures[0].Item)
	assert.ErrorIs(t, report.Failures[1].Err, core.ErrUnsupportedScheme)
	assert.Equal(t, urls[2], report.Failures[2].Item)

	data, err := os.ReadFile(filepath.Join(dir, "deep1M", "deep1M_base.fvecs"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))

	_, err = os.Stat(filepath.Join(dir, "deep1M.tar.gz"))
	assert.True(t, os.IsNotExist(err), "archive must be removed after extraction")
	_, err = os.Stat(filepath.Join(dir, "missing.tar.gz"))
	assert.True(t, os.IsNotExist(err), "failed download must not leave a partial archive")

	assert.Equal(t, 1.0, observer.Count(Stage, metrics.Succeeded))
	assert.Equal(t, 3.0, observer.Count(Stage, metrics.Failed))
}

func TestFetchAllAttemptsEveryURL(t *testing.T) {
	var attempted []string
	source := SourceFunc(func(_ context.Context, u *url.URL, dst *os.File) (int64, error) {
		attempted = append(attempted, u.Path)
		if u.Path == "/first.tar.gz" {
			return 0, errors.New("connection reset by peer")
		}
		n, err := dst.Write([]byte("payload"))
		return int64(n), err
	})
	var extracted []string
	f := &Fetcher{
		Dir:     t.TempDir(),
		Sources: map[string]Source{"https": source},
		Extract: func(archive, _ string) error {
			extracted = append(extracted, filepath.Base(archive))
			return nil
		},
	}

	report, err := f.FetchAll(context.Background(), []string{
		"https://host/first.tar.gz",
		"https://host/second.tar.gz",
		"https://host/third.tar.gz",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/first.tar.gz", "/second.tar.gz", "/third.tar.gz"}, attempted)
	assert.Equal(t, []string{"second.tar.gz", "third.tar.gz"}, extracted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed())
}

func TestFetchAllStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &Fetcher{Dir: t.TempDir(), Sources: map[string]Source{}}
	_, err := f.FetchAll(ctx, []string{"https://host/a.tar.gz"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSourceRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("vectors"))
	}))
	defer srv.Close()

	s := NewHTTPSource(2, 0, false, transfer{})
	s.client.RetryWaitMin = 0
	s.client.RetryWaitMax = 0
	u, err := url.Parse(srv.URL + "/sift.tar.gz")
	require.NoError(t, err)

	out, err := os.Create(filepath.Join(t.TempDir(), "sift.tar.gz"))
	require.NoError(t, err)
	defer out.Close()

	n, err := s.Download(context.Background(), u, out)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, 2, calls)
}

func TestWithRetryRewindsFile(t *testing.T) {
	out, err := os.Create(filepath.Join(t.TempDir(), "partial"))
	require.NoError(t, err)
	defer out.Close()
	u, _ := url.Parse("ftp://ftp.example.com/sift.tar.gz")

	attempts := 0
	n, err := withRetry(context.Background(), 1, u, out, func() (int64, error) {
		attempts++
		if attempts == 1 {
			_, _ = out.Write([]byte("garbage"))
			return 0, errors.New("data connection closed")
		}
		m, err := out.Write([]byte("ok"))
		return int64(m), err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, attempts)

	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestWithRetryGivesUp(t *testing.T) {
	out, err := os.Create(filepath.Join(t.TempDir(), "partial"))
	require.NoError(t, err)
	defer out.Close()
	u, _ := url.Parse("ftp://ftp.example.com/sift.tar.gz")

	attempts := 0
	_, err = withRetry(context.Background(), 0, u, out, func() (int64, error) {
		attempts++
		return 0, errors.New("refused")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
