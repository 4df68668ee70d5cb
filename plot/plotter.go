package plot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Stage is the metrics label for plotted result files.
const Stage = "plot"

var batchPattern = regexp.MustCompile(`batch(\d+)`)

// BatchSize extracts the batch size from a result file name.
func BatchSize(name string) (string, error) {
	m := batchPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", fmt.Errorf("%w: %s", core.ErrNoBatchSize, name)
	}
	return m[1], nil
}

// OutputName returns the chart file name for batch.
func OutputName(batch string) string {
	return "search_qps_comparison_batch" + batch + ".png"
}

// Discover returns the files in dir matching pattern, sorted.
func Discover(dir, pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

// Plotter renders every result table of a directory.
type Plotter struct {
	Config   core.PlotConfig
	Out      io.Writer
	Observer *metrics.Observer
}

// New returns a plotter writing summaries to out.
func New(cfg core.PlotConfig, out io.Writer, observer *metrics.Observer) *Plotter {
	return &Plotter{Config: cfg, Out: out, Observer: observer}
}

// Run processes every discovered file. A file that cannot be read or rendered
// is logged and reported, and the remaining files are still processed.
func (p *Plotter) Run(ctx context.Context) (core.Report, error) {
	var report core.Report
	files, err := Discover(p.Config.InputDir, p.Config.Pattern)
	if err != nil {
		return report, err
	}
	if len(files) == 0 {
		log.Warn().Msgf("No files matching %s in %s", p.Config.Pattern, p.Config.InputDir)
		return report, nil
	}
	if err := os.MkdirAll(p.Config.OutputDir, 0o755); err != nil {
		return report, fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		start := time.Now()
		out, err := p.ProcessFile(file)
		if err != nil {
			log.Error().Err(err).Msgf("Failed to plot %s", file)
			report.Fail(file, err)
			p.Observer.Observe(Stage, metrics.Failed, time.Since(start))
			continue
		}
		log.Info().Msgf("Saved chart %s", out)
		report.Succeeded++
		p.Observer.Observe(Stage, metrics.Succeeded, time.Since(start))
	}
	return report, nil
}

// ProcessFile renders the chart of one result table, prints its summary and
// returns the chart path.
func (p *Plotter) ProcessFile(path string) (string, error) {
	batch, err := BatchSize(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	deduped := Dedup(rows)
	log.Debug().Msgf("%s: %d rows, %d after removing duplicates", path, len(rows), len(deduped))
	groups := GroupMean(deduped)

	algorithms := p.Config.Algorithms
	if len(algorithms) == 0 {
		algorithms = core.DefaultAlgorithms
	}
	out := filepath.Join(p.Config.OutputDir, OutputName(batch))
	if err := Render(groups, batch, out, algorithms); err != nil {
		return "", err
	}
	if p.Out != nil {
		if err := WriteSummary(p.Out, batch, NewPivot(groups)); err != nil {
			return "", err
		}
	}
	return out, nil
}
