package cmd

import (
	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/groundtruth"
	"github.com/spf13/cobra"
)

type groundTruthFlags struct {
	dataRoot string
	datasets []string
	batch    bool
	verify   bool
	k        int
	count    int
	dataType string
}

func (g *groundTruthFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&g.dataRoot, "data-root", "", "directory the dataset paths are relative to")
	f.StringSliceVar(&g.datasets, "datasets", nil, "datasets to process (default all)")
	f.BoolVar(&g.batch, "batch", false, "also write batch ground truth")
	f.BoolVar(&g.verify, "verify", false, "check the shape of written files")
	f.IntVar(&g.k, "k", 0, "neighbors per query")
	f.IntVar(&g.count, "count", 0, "queries kept in the truncated query file")
	f.StringVar(&g.dataType, "data-type", "", "element type passed to compute_gt")
}

func (g *groundTruthFlags) apply(cmd *cobra.Command, cfg *core.GroundTruthConfig) {
	f := cmd.Flags()
	if f.Changed("data-root") {
		cfg.DataRoot = g.dataRoot
	}
	if f.Changed("batch") {
		cfg.Batch = g.batch
	}
	if f.Changed("verify") {
		cfg.Verify = g.verify
	}
	if f.Changed("k") {
		cfg.K = g.k
	}
	if f.Changed("count") {
		cfg.QueryCount = g.count
	}
	if f.Changed("data-type") {
		cfg.DataType = g.dataType
	}
}

func (a *app) runGroundTruth(cmd *cobra.Command, flags *groundTruthFlags) error {
	cfg := a.cfg
	flags.apply(cmd, &cfg.GroundTruth)
	if err := cfg.Validate(); err != nil {
		return err
	}
	datasets, err := cfg.SelectDatasets(flags.datasets)
	if err != nil {
		return err
	}
	report, err := groundtruth.New(cfg.GroundTruth, a.runner, a.observer).Run(cmd.Context(), datasets)
	return finish("groundtruth", report, err)
}

func newGroundTruthCommand(a *app) *cobra.Command {
	flags := &groundTruthFlags{}
	cmd := &cobra.Command{
		Use:   "groundtruth",
		Short: "Truncate query files and compute ground truth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGroundTruth(cmd, flags)
		},
	}
	flags.register(cmd)
	return cmd
}
