package cmd

import (
	"fmt"

	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/vecfile"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newInspectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect file...",
		Short: "Print the header of .fvecs, .bin and .gt files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var report core.Report
			for _, path := range args {
				info, err := vecfile.Inspect(path)
				if err != nil {
					log.Error().Err(err).Msgf("Cannot inspect %s", path)
					report.Fail(path, err)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), info)
				report.Succeeded++
			}
			return finish("inspect", report, nil)
		},
	}
}
