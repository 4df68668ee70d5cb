package dataset

import (
	"context"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Source downloads the object behind a URL into dst and returns the byte count.
type Source interface {
	Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, u *url.URL, dst *os.File) (int64, error)

// Download implements Source.
func (f SourceFunc) Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	return f(ctx, u, dst)
}

// withRetry runs attempt up to retries+1 times with exponential backoff,
// rewinding dst before every retry.
func withRetry(ctx context.Context, retries int, u *url.URL, dst *os.File, attempt func() (int64, error)) (int64, error) {
	var n int64
	first := true
	op := func() error {
		if !first {
			if err := rewind(dst); err != nil {
				return backoff.Permanent(err)
			}
		}
		first = false
		var err error
		n, err = attempt()
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)
	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		log.Warn().Err(err).Msgf("Retrying %s in %s", u.Redacted(), wait.Round(time.Millisecond))
	})
	return n, err
}
