// Package groundtruth prepares the truncated query sets and the reference
// nearest-neighbor files of every dataset with the external crop and
// compute_gt tools.
package groundtruth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/internal/metrics"
	"github.com/patrikhermansson/annprep/internal/runner"
	"github.com/patrikhermansson/annprep/vecfile"
	"github.com/rs/zerolog/log"
)

// Metrics stage labels.
const (
	CropStage        = "crop"
	GroundTruthStage = "groundtruth"
)

// Pipeline runs the crop pass over all datasets, then the ground-truth pass.
type Pipeline struct {
	Config   core.GroundTruthConfig
	Runner   runner.Runner
	Observer *metrics.Observer
}

// New returns a pipeline for cfg.
func New(cfg core.GroundTruthConfig, r runner.Runner, observer *metrics.Observer) *Pipeline {
	return &Pipeline{Config: cfg, Runner: r, Observer: observer}
}

// CropCommand truncates the query file of d to the configured count.
func (p *Pipeline) CropCommand(d core.Dataset) runner.Command {
	return runner.Command{
		Path: p.Config.CropTool,
		Args: []string{d.Query, strconv.Itoa(p.Config.QueryCount), d.TruncatedQuery},
	}
}

// GroundTruthCommand computes the exact neighbors of the truncated queries of d.
// In batch mode the batch ground-truth path is passed as its own flag.
func (p *Pipeline) GroundTruthCommand(d core.Dataset) runner.Command {
	args := []string{
		"--base_path", d.Base,
		"--query_path", d.TruncatedQuery,
		"--gt_path", d.GroundTruth,
	}
	if p.Config.Batch {
		args = append(args, "--batch_gt_path", d.BatchGroundTruthPath())
	}
	args = append(args,
		"--data_type", p.Config.DataType,
		"--k", strconv.Itoa(p.Config.K),
	)
	return runner.Command{Path: p.Config.GTTool, Args: args}
}

// Run executes both passes. A dataset whose crop failed is skipped in the
// ground-truth pass; other datasets carry on. The returned error is only set
// when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, datasets []core.Dataset) (core.Report, error) {
	var report core.Report
	resolved := make([]core.Dataset, len(datasets))
	for i, d := range datasets {
		resolved[i] = d.Resolve(p.Config.DataRoot)
	}

	cropped := make(map[string]int, len(resolved))
	for _, d := range resolved {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		start := time.Now()
		count, err := p.crop(ctx, d)
		if err != nil {
			log.Error().Err(err).Msgf("Crop failed for %s", d.Name)
			report.Fail(d.Name+" (crop)", err)
			p.Observer.Observe(CropStage, metrics.Failed, time.Since(start))
			continue
		}
		cropped[d.Name] = count
		report.Succeeded++
		p.Observer.Observe(CropStage, metrics.Succeeded, time.Since(start))
	}

	for _, d := range resolved {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		count, ok := cropped[d.Name]
		if !ok {
			log.Warn().Msgf("Skipping ground truth for %s: no truncated query file", d.Name)
			report.Skipped++
			p.Observer.Observe(GroundTruthStage, metrics.Skipped, 0)
			continue
		}
		start := time.Now()
		if err := p.groundTruth(ctx, d, count); err != nil {
			log.Error().Err(err).Msgf("Ground truth failed for %s", d.Name)
			report.Fail(d.Name+" (groundtruth)", err)
			p.Observer.Observe(GroundTruthStage, metrics.Failed, time.Since(start))
			continue
		}
		report.Succeeded++
		p.Observer.Observe(GroundTruthStage, metrics.Succeeded, time.Since(start))
	}
	return report, nil
}

// crop runs the crop tool and returns the number of queries the truncated
// file should hold, or -1 when verification is off.
func (p *Pipeline) crop(ctx context.Context, d core.Dataset) (int, error) {
	cmd := p.CropCommand(d)
	log.Info().Msgf("Executing: %s", cmd)
	if err := p.Runner.Run(ctx, cmd); err != nil {
		return 0, err
	}
	if !p.Config.Verify {
		return -1, nil
	}

	src, err := vecfile.InspectFvecs(d.Query)
	if err != nil {
		return 0, err
	}
	out, err := vecfile.InspectFvecs(d.TruncatedQuery)
	if err != nil {
		return 0, err
	}
	want := min(p.Config.QueryCount, src.Count)
	if out.Count != want || out.Dim != src.Dim {
		return 0, fmt.Errorf("%w: %s holds %d x %d vectors, expected %d x %d",
			core.ErrHeaderMismatch, d.TruncatedQuery, out.Count, out.Dim, want, src.Dim)
	}
	log.Debug().Msgf("Verified %s", out)
	return want, nil
}

func (p *Pipeline) groundTruth(ctx context.Context, d core.Dataset, queries int) error {
	cmd := p.GroundTruthCommand(d)
	log.Info().Msgf("Executing: %s", cmd)
	if err := p.Runner.Run(ctx, cmd); err != nil {
		return err
	}
	if !p.Config.Verify {
		return nil
	}

	info, err := vecfile.InspectGroundTruth(d.GroundTruth)
	if err != nil {
		return err
	}
	if err := p.checkShape(info, queries); err != nil {
		return err
	}
	if p.Config.Batch {
		info, err := vecfile.InspectBatchGroundTruth(d.BatchGroundTruthPath())
		if err != nil {
			return err
		}
		if err := p.checkShape(info, queries); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) checkShape(info vecfile.Info, queries int) error {
	if info.Count != queries || info.Dim != p.Config.K {
		return fmt.Errorf("%w: %s has %d queries x k=%d, expected %d x k=%d",
			core.ErrHeaderMismatch, info.Path, info.Count, info.Dim, queries, p.Config.K)
	}
	log.Debug().Msgf("Verified %s", info)
	return nil
}
