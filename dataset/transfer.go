package dataset

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/patrikhermansson/annprep/internal/metrics"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

// transfer holds the options shared by every source when streaming bytes to disk.
type transfer struct {
	limiter  *rate.Limiter
	progress bool
	observer *metrics.Observer
}

func newTransfer(bytesPerSecond int64, progress bool, observer *metrics.Observer) transfer {
	t := transfer{
		progress: progress && isatty.IsTerminal(os.Stderr.Fd()),
		observer: observer,
	}
	if bytesPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), int(bytesPerSecond))
	}
	return t
}

// newBar returns a byte progress bar on stderr, or nil when progress is off.
// size may be -1 when the length is unknown.
func (t transfer) newBar(size int64, description string) *progressbar.ProgressBar {
	if !t.progress {
		return nil
	}
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// copy streams src into dst honoring the bandwidth limit and progress settings.
func (t transfer) copy(ctx context.Context, dst io.Writer, src io.Reader, size int64, description string) (int64, error) {
	if t.limiter != nil {
		src = &limitedReader{ctx: ctx, r: src, limiter: t.limiter}
	}
	if bar := t.newBar(size, description); bar != nil {
		defer bar.Finish()
		dst = io.MultiWriter(dst, bar)
	}
	n, err := io.Copy(dst, &contextReader{ctx: ctx, r: src})
	t.observer.AddBytes(n)
	return n, err
}

// limitedReader throttles reads to the limiter's rate in bytes per second.
type limitedReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if burst := l.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := l.r.Read(p)
	if n > 0 {
		if werr := l.limiter.WaitN(l.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// countingWriterAt reports bytes written through WriteAt to a progress bar and observer.
type countingWriterAt struct {
	w        io.WriterAt
	bar      *progressbar.ProgressBar
	observer *metrics.Observer
}

func (c *countingWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := c.w.WriteAt(p, off)
	if c.bar != nil {
		_ = c.bar.Add(n)
	}
	c.observer.AddBytes(int64(n))
	return n, err
}

// rewind truncates a partially written file so a retry starts from scratch.
func rewind(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekStart)
	return err
}
