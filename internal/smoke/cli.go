package smoke

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/okian/userapi/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging returns a logger writing to stdout and, when logFile is set,
// appending to that file as well. The returned close func releases the file.
func SetupLogging(logFile string, verbose bool) (logger.Logger, func() error, error) {
	var (
		w       io.Writer = os.Stdout
		closeFn           = func() error { return nil }
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closeFn = file.Close
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return logger.New(w, logger.WithLevel(level)), closeFn, nil
}

// ShowHelp prints usage information for the smoke tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `userapi smoke checker
=====================

Drives a running userapi server through its HTTP contract with concurrent
workers and exits non-zero when any check fails.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:3000")
  -iterations int
        Rounds of the per-request checks (default 100)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -log string
        Also append log output to this file
  -verbose
        Log every passing check
  -help
        Show this help message

Examples:
  go run ./cmd/smoke
  go run ./cmd/smoke -url http://localhost:8080 -iterations 1000 -workers 32
`)
}
