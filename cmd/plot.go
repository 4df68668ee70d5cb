package cmd

import (
	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/plot"
	"github.com/spf13/cobra"
)

type plotFlags struct {
	outputDir string
	pattern   string
}

func (p *plotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.outputDir, "output-dir", "", "directory for the PNG charts")
	cmd.Flags().StringVar(&p.pattern, "pattern", "", "glob selecting result tables")
}

func (p *plotFlags) apply(cmd *cobra.Command, args []string, cfg *core.PlotConfig) {
	if len(args) == 1 {
		cfg.InputDir = args[0]
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = p.outputDir
	}
	if cmd.Flags().Changed("pattern") {
		cfg.Pattern = p.pattern
	}
}

func newPlotCommand(a *app) *cobra.Command {
	flags := &plotFlags{}
	cmd := &cobra.Command{
		Use:   "plot [input-dir]",
		Short: "Chart search QPS per algorithm and write ratio from batch*.csv tables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Plot
			flags.apply(cmd, args, &cfg)
			report, err := plot.New(cfg, cmd.OutOrStdout(), a.observer).Run(cmd.Context())
			return finish("plot", report, err)
		},
	}
	flags.register(cmd)
	return cmd
}
