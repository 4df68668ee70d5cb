package core

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogEnv is the environment variable that selects the default logging level.
const LogEnv = "ANNPREP_LOG"

// init initializes the logging configuration for the application based on the ANNPREP_LOG environment variable.
// It sets the global logging level to Disabled, Debug, or Info based on the value of ANNPREP_LOG.
func init() {
	zerolog.SetGlobalLevel(levelFromEnv(os.Getenv(LogEnv)))
}

// levelFromEnv maps the value of ANNPREP_LOG to a zerolog level.
func levelFromEnv(value string) zerolog.Level {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "off", "0":
		return zerolog.Disabled
	case "full":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLogLevel overrides the global logging level by name.
// Accepted names are the ANNPREP_LOG values plus the zerolog level names.
func SetLogLevel(name string) error {
	name = strings.TrimSpace(strings.ToLower(name))
	switch name {
	case "off", "0", "full":
		zerolog.SetGlobalLevel(levelFromEnv(name))
		return nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// SetupConsoleLogger routes the global logger to a human-readable console writer.
func SetupConsoleLogger(out io.Writer) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
}
