// Package cmd wires the preparation stages into the annprep command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/internal/metrics"
	"github.com/patrikhermansson/annprep/internal/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	configPath  string
	logLevel    string
	metricsFile string

	cfg      core.Config
	runner   runner.Runner
	observer *metrics.Observer
	out      io.Writer
}

func newApp(r runner.Runner, out io.Writer) *app {
	return &app{runner: r, observer: metrics.NewObserver(), out: out}
}

// newRootCommand builds the command tree around a.
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "annprep",
		Short:         "Prepare ANN benchmark datasets and results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default $"+core.ConfigEnv+" or "+core.DefaultConfigPath+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: off, info, full or a zerolog level name")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when done")

	root.AddCommand(
		newFetchCommand(a),
		newGroundTruthCommand(a),
		newConvertCommand(a),
		newPlotCommand(a),
		newInspectCommand(a),
		newRecallCommand(a),
		newPrepareCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.logLevel != "" {
		if err := core.SetLogLevel(a.logLevel); err != nil {
			return err
		}
	}
	path, required := a.configPath, true
	if path == "" {
		path, required = core.GetConfigPath()
	}
	cfg, err := core.LoadConfig(path, required)
	if err != nil {
		return err
	}
	a.cfg = cfg
	log.Debug().Msgf("Running %s", cmd.CommandPath())
	return nil
}

// finish turns a stage report into the command result.
func finish(stage string, report core.Report, err error) error {
	if err != nil {
		return err
	}
	log.Info().Msgf("%s: %d succeeded, %d skipped, %d failed",
		stage, report.Succeeded, report.Skipped, report.Failed())
	if report.Failed() > 0 {
		return fmt.Errorf("%s: %d item(s) failed: %w", stage, report.Failed(), report.Err())
	}
	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	return run(ctx, os.Args[1:], runner.NewExec(), os.Stdout)
}

func run(ctx context.Context, args []string, r runner.Runner, out io.Writer) int {
	a := newApp(r, out)
	root := newRootCommand(a)
	root.SetArgs(args)
	code := 0
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("annprep failed")
		code = 1
	}
	// failed runs are exported too
	if a.metricsFile != "" {
		if err := a.observer.WriteTextfile(a.metricsFile); err != nil {
			log.Error().Err(err).Msg("Cannot write metrics")
			code = 1
		}
	}
	return code
}
