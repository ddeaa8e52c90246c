package smoke

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/promptmatch/pkg/logger"
)

// File permission constants.
const logFilePermission = 0600

// SetupLogging sends logs to stdout and, when logFile is set, to that file too.
func SetupLogging(logFile, format string) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
	}
	if err := logger.Init(logger.WithFormat(format), logger.WithWriter(out)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return closer, nil
}

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	os.Stdout.WriteString(`promptmatch smoke test
======================

Scores sample targets for every tier against a running server and checks
score bounds, scoring modes and feedback determinism.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -repeat int
        Requests per case; 2 or more checks determinism (default 2)
  -workers int
        Concurrent cases (default 4)
  -timeout duration
        HTTP request timeout (default 45s)
  -output string
        Write a JSON report to this file
  -log string
        Also write logs to this file
  -format string
        Log format: text or json (default "text")
  -verbose
        Log every case
  -help
        Show this help message

Examples:
  go run ./cmd/smoke
  go run ./cmd/smoke -url http://localhost:8080 -repeat 3 -output smoke.json
`)
}
