package dataset

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rs/zerolog/log"
)

// FTPSource fetches ftp URLs, logging in anonymously unless the URL carries credentials.
type FTPSource struct {
	retries  int
	timeout  time.Duration
	transfer transfer
}

// NewFTPSource returns an FTP source.
func NewFTPSource(retries int, timeout time.Duration, t transfer) *FTPSource {
	return &FTPSource{retries: retries, timeout: timeout, transfer: t}
}

// Download implements Source.
func (s *FTPSource) Download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	return withRetry(ctx, s.retries, u, dst, func() (int64, error) {
		return s.download(ctx, u, dst)
	})
}

func (s *FTPSource) download(ctx context.Context, u *url.URL, dst *os.File) (int64, error) {
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "21")
	}
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if s.timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(s.timeout))
	}
	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return 0, fmt.Errorf("ftp dial %s: %w", addr, err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			log.Debug().Err(err).Msgf("ftp quit %s", addr)
		}
	}()

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return 0, fmt.Errorf("ftp login %s: %w", addr, err)
	}

	size, err := conn.FileSize(u.Path)
	if err != nil {
		size = -1
	}
	resp, err := conn.Retr(u.Path)
	if err != nil {
		return 0, fmt.Errorf("ftp retr %s: %w", u.Path, err)
	}
	defer resp.Close()

	return s.transfer.copy(ctx, dst, resp, size, path.Base(u.Path))
}
