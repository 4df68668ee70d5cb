package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/patrikhermansson/annprep/cmd"
	"github.com/patrikhermansson/annprep/core"
	"github.com/rs/zerolog/log"
)

// main sets up console logging, cancels the run on the first interrupt and
// executes the command line. The log level comes from ANNPREP_LOG.
func main() {
	core.SetupConsoleLogger(os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	go listenForInterrupt(stopChan, cancel)

	code := cmd.Execute(ctx)
	cancel()
	os.Exit(code)
}

// listenForInterrupt cancels the running command when an interrupt signal arrives.
// A second interrupt exits immediately.
func listenForInterrupt(stopChan chan os.Signal, cancel context.CancelFunc) {
	<-stopChan
	log.Warn().Msg("Interrupt signal received. Stopping after the current step...")
	cancel()
	<-stopChan
	log.Fatal().Msg("Interrupt signal received again. Exiting...")
}
