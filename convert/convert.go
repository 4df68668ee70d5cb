// Package convert turns every fvecs file under a directory into its bin sibling
// with the external fvecs_to_bin tool.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/internal/helpers"
	"github.com/patrikhermansson/annprep/internal/metrics"
	"github.com/patrikhermansson/annprep/internal/runner"
	"github.com/rs/zerolog/log"
)

// Stage is the metrics label for converted files.
const Stage = "convert"

// Converter converts source files to the target format, skipping files that
// were already converted.
type Converter struct {
	Config   core.ConvertConfig
	Runner   runner.Runner
	Observer *metrics.Observer
	// CheckTool verifies the converter binary; defaults to runner.CheckTool.
	CheckTool func(path string) error
}

// New returns a converter for cfg.
func New(cfg core.ConvertConfig, r runner.Runner, observer *metrics.Observer) *Converter {
	return &Converter{Config: cfg, Runner: r, Observer: observer, CheckTool: runner.CheckTool}
}

// Preflight fails when the converter binary or the data root is missing.
func (c *Converter) Preflight() error {
	check := c.CheckTool
	if check == nil {
		check = runner.CheckTool
	}
	if err := check(c.Config.Tool); err != nil {
		return fmt.Errorf("%s executable not found, make sure the utils directory is compiled: %w",
			filepath.Base(c.Config.Tool), err)
	}
	info, err := os.Stat(c.Config.DataRoot)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", core.ErrDataDirNotFound, c.Config.DataRoot)
	}
	return nil
}

// Discover returns every file under root with the source extension, sorted.
func (c *Converter) Discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), c.Config.SourceExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Target returns the destination path for a source file.
func (c *Converter) Target(source string) string {
	return helpers.SwapExt(source, c.Config.SourceExt, c.Config.TargetExt)
}

// Command returns the converter invocation for one file.
func (c *Converter) Command(source, target string) runner.Command {
	return runner.Command{
		Path: c.Config.Tool,
		Args: []string{c.Config.DataType, source, target},
	}
}

// Run converts everything under the data root. Per-file failures are logged
// and reported; only a failed preflight, walk or cancellation returns an error.
func (c *Converter) Run(ctx context.Context) (core.Report, error) {
	var report core.Report
	if err := c.Preflight(); err != nil {
		return report, err
	}

	root := c.Config.DataRoot
	log.Info().Msgf("Starting to process directory: %s", root)
	files, err := c.Discover(root)
	if err != nil {
		return report, err
	}
	if len(files) == 0 {
		log.Info().Msgf("No %s files found in %s", c.Config.SourceExt, root)
		return report, nil
	}
	log.Info().Msgf("Found %d %s files", len(files), c.Config.SourceExt)

	for _, source := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		target := c.Target(source)
		if helpers.Exists(target) {
			log.Info().Msgf("Skipping existing file: %s", target)
			report.Skipped++
			c.Observer.Observe(Stage, metrics.Skipped, 0)
			continue
		}

		start := time.Now()
		if err := c.convert(ctx, source, target); err != nil {
			if errors.Is(err, context.Canceled) {
				return report, err
			}
			log.Error().Err(err).Msgf("Conversion failed for %s", source)
			report.Fail(source, err)
			c.Observer.Observe(Stage, metrics.Failed, time.Since(start))
			continue
		}
		log.Info().Msgf("Successfully converted: %s -> %s", source, target)
		report.Succeeded++
		c.Observer.Observe(Stage, metrics.Succeeded, time.Since(start))
	}
	log.Info().Msg("Processing completed")
	return report, nil
}

func (c *Converter) convert(ctx context.Context, source, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return c.Runner.Run(ctx, c.Command(source, target))
}
