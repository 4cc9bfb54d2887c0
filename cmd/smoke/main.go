package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/userapi/internal/smoke"
	"github.com/okian/userapi/pkg/logger"
)

const (
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultDeadline = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", smoke.DefaultBaseURL, "Base URL of the service")
		iterations = flag.Int("iterations", smoke.DefaultIterations, "Rounds of the per-request checks")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", smoke.DefaultTimeout, "HTTP request timeout")
		logFile    = flag.String("log", "", "Also append log output to this file")
		verbose    = flag.Bool("verbose", false, "Log every passing check")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp(os.Stdout)
		return
	}

	log, closeLog, err := smoke.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, defaultDeadline)

	_, err = smoke.Run(ctx, &smoke.Config{
		BaseURL:    *baseURL,
		Iterations: *iterations,
		Workers:    *workers,
		Timeout:    *timeout,
		Verbose:    *verbose,
	}, log)

	cancel()
	stop()

	code := 0
	if err != nil {
		log.Error(context.Background(), "smoke run failed", logger.Error(err),
			logger.Bool("unreachable", errors.Is(err, smoke.ErrUnreachable)))
		code = 1
	}
	_ = closeLog()
	os.Exit(code)
}
