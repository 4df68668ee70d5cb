package dataset

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Source fetches s3://bucket/key URLs with the S3 download manager.
// The client is created on first use so runs without S3 URLs need no AWS setup.
type S3Source struct {
	retries  int
	transfer transfer

	once      sync.Once
	client    manager.DownloadAPIClient
	clientErr error
	newClient func(ctx context.Context) (manager.DownloadAPIClient, error)
}

// NewS3Source returns a source using the default AWS credential chain.
func NewS3Source(retries int, t transfer) *S3Source {
	return &S3Source{
		retries:  retries,
		transfer: t,
		newClient: func(ctx context.Context) (manager.DownloadAPIClient, error) {
			cfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, fmt.Errorf("load AWS config: %w", err)
			}
			return s3.NewFromConfig(cfg), nil
		},
	}
}

// Download implements Source.
func (s *S3Source) Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	s.once.Do(func() {
		s.client, s.clientErr = s.newClient(ctx)
	})
	if s.clientErr != nil {
		return 0, s.clientErr
	}

	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return 0, fmt.Errorf("s3 URL %s needs a bucket and a key", u.Redacted())
	}

	downloader := manager.NewDownloader(s.client)
	return withRetry(ctx, s.retries, u, dst, func() (int64, error) {
		bar := s.transfer.newBar(-1, path.Base(key))
		if bar != nil {
			defer bar.Finish()
		}
		w := &countingWriterAt{w: dst, bar: bar, observer: s.transfer.observer}
		return downloader.Download(ctx, w, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
	})
}
