package config

import (
	"go.viam.com/vo/logging"
)

// UpdateLogLevel switches logger to debug when either the command line or the config file asks for
// debug logs, and back to info otherwise.
func UpdateLogLevel(logger logging.Logger, cmdLineDebug bool, cfg *Config) {
	newLevel := logging.INFO
	if cmdLineDebug || (cfg != nil && cfg.Debug) {
		newLevel = logging.DEBUG
	}
	if logger.GetLevel() == newLevel {
		return
	}
	logger.Info("New log level: ", newLevel)
	logger.SetLevel(newLevel)
}
