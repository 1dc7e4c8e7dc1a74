package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for `addrmatch serve`.
// stdout is reserved for JSON-RPC and the client may treat stderr output
// as a failure, so logs go to the file only.
func SetupMCPMode(cfg Config) (func(), error) {
	cfg.WriteToStderr = false
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultLogPath()
	}

	cleanup, err := SetupDefault(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("mcp_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
