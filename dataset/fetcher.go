// Package dataset downloads benchmark dataset archives and unpacks them into a staging directory.
package dataset

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/internal/helpers"
	"github.com/patrikhermansson/annprep/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Stage is the metrics label for fetched archives.
const Stage = "fetch"

// Fetcher downloads, extracts and removes one archive per URL.
type Fetcher struct {
	Dir      string
	Sources  map[string]Source
	Extract  func(archive, dir string) error
	Observer *metrics.Observer
}

// NewFetcher wires the HTTP, FTP and S3 sources from cfg.
func NewFetcher(cfg core.FetchConfig, observer *metrics.Observer) *Fetcher {
	t := newTransfer(cfg.RateLimit, cfg.Progress, observer)
	httpSource := NewHTTPSource(cfg.Retries, cfg.Timeout, cfg.InsecureTLS, t)
	return &Fetcher{
		Dir: cfg.DownloadDir,
		Sources: map[string]Source{
			"http":  httpSource,
			"https": httpSource,
			"ftp":   NewFTPSource(cfg.Retries, cfg.Timeout, t),
			"s3":    NewS3Source(cfg.Retries, t),
		},
		Extract:  ExtractTarGz,
		Observer: observer,
	}
}

// FetchAll processes urls in order. A failing URL is logged and recorded,
// and the remaining URLs are still attempted.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) (core.Report, error) {
	var report core.Report
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return report, fmt.Errorf("create download directory %s: %w", f.Dir, err)
	}

	for _, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		start := time.Now()
		if err := f.Fetch(ctx, rawURL); err != nil {
			log.Error().Err(err).Msgf("Error processing %s", rawURL)
			report.Fail(rawURL, err)
			f.Observer.Observe(Stage, metrics.Failed, time.Since(start))
			continue
		}
		report.Succeeded++
		f.Observer.Observe(Stage, metrics.Succeeded, time.Since(start))
	}

	log.Info().Msgf("All downloads and extractions completed! (%d succeeded, %d failed)",
		report.Succeeded, report.Failed())
	return report, nil
}

// Fetch downloads a single archive into the staging directory, extracts it there
// and removes the archive.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	source, ok := f.Sources[u.Scheme]
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrUnsupportedScheme, u.Scheme)
	}
	name, err := helpers.ArchiveName(rawURL)
	if err != nil {
		return err
	}
	archive := filepath.Join(f.Dir, name)

	log.Info().Msgf("Downloading %s...", u.Redacted())
	n, err := f.download(ctx, source, u, archive)
	if err != nil {
		return err
	}
	log.Info().Msgf("Downloaded %s (%s)", archive, humanize.Bytes(uint64(n)))

	log.Info().Msgf("Extracting %s...", archive)
	if err := f.Extract(archive, f.Dir); err != nil {
		return fmt.Errorf("extract %s: %w", archive, err)
	}
	log.Info().Msgf("Extracted %s", archive)

	if err := os.Remove(archive); err != nil {
		return fmt.Errorf("remove %s: %w", archive, err)
	}
	log.Info().Msgf("Removed %s", archive)
	return nil
}

func (f *Fetcher) download(ctx context.Context, source Source, u *url.URL, archive string) (int64, error) {
	out, err := os.Create(archive)
	if err != nil {
		return 0, err
	}
	n, err := source.Download(ctx, u, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rmErr := os.Remove(archive); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Err(rmErr).Msgf("Could not remove partial download %s", archive)
		}
		return 0, fmt.Errorf("download %s: %w", u.Redacted(), err)
	}
	return n, nil
}
