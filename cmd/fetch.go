package cmd

import (
	"github.com/patrikhermansson/annprep/core"
	"github.com/patrikhermansson/annprep/dataset"
	"github.com/spf13/cobra"
)

type fetchFlags struct {
	dir       string
	retries   int
	rateLimit int64
	verifyTLS bool
	quiet     bool
}

func (f *fetchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "staging directory (default the data root)")
	cmd.Flags().IntVar(&f.retries, "retries", 0, "retries per download")
	cmd.Flags().Int64Var(&f.rateLimit, "rate-limit", 0, "download limit in bytes per second, 0 for none")
	cmd.Flags().BoolVar(&f.verifyTLS, "verify-tls", false, "verify TLS certificates")
	cmd.Flags().BoolVar(&f.quiet, "no-progress", false, "hide the progress bar")
}

func (f *fetchFlags) apply(cmd *cobra.Command, cfg *core.FetchConfig) {
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.DownloadDir = f.dir
	}
	if flags.Changed("retries") {
		cfg.Retries = f.retries
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = f.rateLimit
	}
	if f.verifyTLS {
		cfg.InsecureTLS = false
	}
	if f.quiet {
		cfg.Progress = false
	}
}

func newFetchCommand(a *app) *cobra.Command {
	flags := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch [url...]",
		Short: "Download and extract dataset archives",
		Long: "Download every archive (http, https, ftp or s3 URL) into the staging directory,\n" +
			"extract it there and remove it. Without arguments the configured URLs are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Fetch
			flags.apply(cmd, &cfg)
			urls := cfg.URLs
			if len(args) > 0 {
				urls = args
			}
			report, err := dataset.NewFetcher(cfg, a.observer).FetchAll(cmd.Context(), urls)
			return finish("fetch", report, err)
		},
	}
	flags.register(cmd)
	return cmd
}
