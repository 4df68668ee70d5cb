package cmd

import (
	"github.com/patrikhermansson/annprep/convert"
	"github.com/patrikhermansson/annprep/core"
	"github.com/spf13/cobra"
)

type convertFlags struct {
	tool     string
	dataType string
}

func (c *convertFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.tool, "tool", "", "path of the fvecs_to_bin executable")
	cmd.Flags().StringVar(&c.dataType, "convert-data-type", "", "element type passed to fvecs_to_bin")
}

func (c *convertFlags) apply(cmd *cobra.Command, cfg *core.ConvertConfig) {
	if cmd.Flags().Changed("tool") {
		cfg.Tool = c.tool
	}
	if cmd.Flags().Changed("convert-data-type") {
		cfg.DataType = c.dataType
	}
}

func (a *app) runConvert(cmd *cobra.Command, cfg core.ConvertConfig) error {
	report, err := convert.New(cfg, a.runner, a.observer).Run(cmd.Context())
	return finish("convert", report, err)
}

func newConvertCommand(a *app) *cobra.Command {
	flags := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert [data-dir]",
		Short: "Convert every .fvecs file under a directory to .bin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Convert
			flags.apply(cmd, &cfg)
			if len(args) == 1 {
				cfg.DataRoot = args[0]
			}
			return a.runConvert(cmd, cfg)
		},
	}
	flags.register(cmd)
	return cmd
}
