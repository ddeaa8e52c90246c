package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/okian/promptmatch/internal/smoke"
)

// Default configuration constants.
const (
	defaultRepeat      = 2
	defaultWorkers     = 4
	defaultTimeout     = 45 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		repeat     = flag.Int("repeat", defaultRepeat, "Requests per case; 2 or more checks determinism")
		workers    = flag.Int("workers", defaultWorkers, "Number of concurrent cases")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write a JSON report to this file")
		logFile    = flag.String("log", "", "Also write logs to this file")
		format     = flag.String("format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every case")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	closer, err := smoke.SetupLogging(*logFile, *format)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	_, err = smoke.Run(ctx, &smoke.Config{
		BaseURL:    *baseURL,
		Repeat:     *repeat,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	})
	if err != nil {
		os.Stderr.WriteString("Smoke test failed: " + err.Error() + "\n")
		code := 1
		if !errors.Is(err, smoke.ErrFailed) {
			code = 2
		}
		// Deferred cleanup does not run after os.Exit.
		cancel()
		_ = closer.Close()
		os.Exit(code)
	}
}
