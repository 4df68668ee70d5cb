package dataset

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// HTTPSource fetches http and https URLs with a retrying client.
type HTTPSource struct {
	client   *retryablehttp.Client
	transfer transfer
}

// NewHTTPSource builds a client that retries retries times.
// insecureTLS disables certificate verification, like wget --no-check-certificate.
func NewHTTPSource(retries int, timeout time.Duration, insecureTLS bool, t transfer) *HTTPSource {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.Logger = zerologLeveled{}
	client.HTTPClient.Timeout = timeout
	if insecureTLS {
		if tr, ok := client.HTTPClient.Transport.(*http.Transport); ok {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // matches wget --no-check-certificate
		}
	}
	return &HTTPSource{client: client, transfer: t}
}

// Download implements Source.
func (s *HTTPSource) Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s: unexpected status %s", u.Redacted(), resp.Status)
	}
	return s.transfer.copy(ctx, dst, resp.Body, resp.ContentLength, path.Base(u.Path))
}

// zerologLeveled routes retryablehttp's logging into zerolog.
type zerologLeveled struct{}

func (zerologLeveled) Error(msg string, kv ...interface{}) { log.Error().Fields(kv).Msg(msg) }
func (zerologLeveled) Info(msg string, kv ...interface{})  { log.Debug().Fields(kv).Msg(msg) }
func (zerologLeveled) Debug(msg string, kv ...interface{}) { log.Debug().Fields(kv).Msg(msg) }
func (zerologLeveled) Warn(msg string, kv ...interface{})  { log.Warn().Fields(kv).Msg(msg) }
