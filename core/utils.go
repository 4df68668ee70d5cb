package core

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Environment variables consulted on top of the configuration file.
const (
	ConfigEnv      = "ANNPREP_CONFIG"
	DataRootEnv    = "ANNPREP_DATA_ROOT"
	CropToolEnv    = "ANNPREP_CROP_TOOL"
	GTToolEnv      = "ANNPREP_GT_TOOL"
	ConvertToolEnv = "ANNPREP_CONVERT_TOOL"
)

// DefaultConfigPath is used when neither --config nor ANNPREP_CONFIG is given.
const DefaultConfigPath = "annprep.yaml"

// GetConfigPath returns the configuration path from ANNPREP_CONFIG, or the default.
// The second result reports whether the path was set explicitly.
func GetConfigPath() (string, bool) {
	if p := strings.TrimSpace(os.Getenv(ConfigEnv)); p != "" {
		log.Debug().Msgf("Using config path from %s: %s", ConfigEnv, p)
		return p, true
	}
	return DefaultConfigPath, false
}

// envOverride replaces *dst with the value of env when it is set.
func envOverride(env string, dst *string) {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return
	}
	log.Info().Msgf("Using %s value: %s", env, v)
	*dst = v
}

func applyEnv(cfg *Config) {
	envOverride(DataRootEnv, &cfg.DataRoot)
	envOverride(CropToolEnv, &cfg.GroundTruth.CropTool)
	envOverride(GTToolEnv, &cfg.GroundTruth.GTTool)
	envOverride(ConvertToolEnv, &cfg.Convert.Tool)
}
