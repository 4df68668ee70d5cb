package cmd

import (
	"errors"

	"github.com/patrikhermansson/annprep/dataset"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPrepareCommand(a *app) *cobra.Command {
	var skipFetch bool
	fetch := &fetchFlags{}
	gt := &groundTruthFlags{}
	conv := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Fetch, compute ground truth and convert in one run",
		Long: "Run fetch, groundtruth and convert in order. Failed items are reported at the end;\n" +
			"a later stage still runs when an earlier one had failures.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var errs []error
			if !skipFetch {
				cfg := a.cfg.Fetch
				fetch.apply(cmd, &cfg)
				report, err := dataset.NewFetcher(cfg, a.observer).FetchAll(cmd.Context(), cfg.URLs)
				if err := finish("fetch", report, err); err != nil {
					if cmd.Context().Err() != nil {
						return err
					}
					errs = append(errs, err)
				}
			} else {
				log.Info().Msg("Skipping fetch")
			}

			if err := a.runGroundTruth(cmd, gt); err != nil {
				if cmd.Context().Err() != nil {
					return err
				}
				errs = append(errs, err)
			}

			cfg := a.cfg.Convert
			conv.apply(cmd, &cfg)
			if err := a.runConvert(cmd, cfg); err != nil {
				errs = append(errs, err)
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().BoolVar(&skipFetch, "skip-fetch", false, "use already extracted datasets")
	fetch.register(cmd)
	gt.register(cmd)
	conv.register(cmd)
	return cmd
}
