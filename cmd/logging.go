// =============================================================================
// Invoice Line Extractor - Logging Setup
// =============================================================================
//
// Commands log through zap. The level comes from log_level in the main
// configuration; --verbose forces debug. Log output goes to stderr so that
// tables printed on stdout stay clean.
//
// =============================================================================

package cmd

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the console logger for a command.
//
// PARAMETERS:
//   - level: "debug", "info", "warn" or "error".
//   - verbose: Forces the debug level.
//
// RETURNS:
//   - The sugared logger, or an error for an unknown level.
func newLogger(level string, verbose bool) (*zap.SugaredLogger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		atomic.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = atomic
	cfg.DisableStacktrace = true
	cfg.DisableCaller = !verbose
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Sugar(), nil
}
