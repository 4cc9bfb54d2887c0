package smoke

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/userapi/pkg/logger"
)

const percentageMultiplier = 100

// failure records one failed check.
type failure struct {
	check string
	err   error
}

// Run executes the smoke checks against cfg.BaseURL and reports statistics.
// It fails with ErrUnreachable when the service does not answer and with
// ErrCheckFailed when any check fails.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	c := cfg.withDefaults()
	if log == nil {
		log = logger.Get()
	}
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting smoke run",
		logger.String("baseURL", c.BaseURL),
		logger.Int("iterations", c.Iterations),
		logger.Int("workers", c.Workers),
		logger.Duration("timeout", c.Timeout))

	cl := newClient(c.BaseURL, c.Timeout)
	if _, err := cl.get(ctx, "/"); err != nil {
		return nil, fmt.Errorf("service check failed: %w", err)
	}

	var (
		run, passed atomic.Int64
		mu          sync.Mutex
		failures    []failure
	)
	record := func(ch check, err error) {
		run.Add(1)
		if err == nil {
			passed.Add(1)
			if c.Verbose {
				log.Debug(ctx, "check passed", logger.String("check", ch.name))
			}
			return
		}
		log.Warn(ctx, "check failed", logger.String("check", ch.name), logger.Error(err))
		mu.Lock()
		failures = append(failures, failure{check: ch.name, err: err})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Workers)

	schedule := func(ch check) bool {
		if gctx.Err() != nil {
			return false
		}
		g.Go(func() error {
			err := ch.run(gctx, cl)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			record(ch, err)
			return nil
		})
		return true
	}

	for _, ch := range onceChecks() {
		schedule(ch)
	}
loop:
	for i := 0; i < c.Iterations; i++ {
		for _, ch := range perRequestChecks() {
			if !schedule(ch) {
				break loop
			}
		}
	}

	waitErr := g.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	stats.ChecksRun = int(run.Load())
	stats.ChecksPassed = int(passed.Load())
	stats.ChecksFailed = len(failures)
	displayFinalStats(ctx, log, stats)

	if waitErr != nil {
		return stats, fmt.Errorf("smoke run aborted: %w", waitErr)
	}
	if len(failures) > 0 {
		first := failures[0]
		return stats, fmt.Errorf("%w: %d of %d checks failed, first %s: %w",
			ErrCheckFailed, len(failures), stats.ChecksRun, first.check, first.err)
	}
	log.Info(ctx, "smoke run completed successfully")
	return stats, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, checksPerSecond float64

	if stats.ChecksRun > 0 {
		successRate = float64(stats.ChecksPassed) / float64(stats.ChecksRun) * percentageMultiplier
	}
	if stats.Duration > 0 {
		checksPerSecond = float64(stats.ChecksRun) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("checksRun", stats.ChecksRun),
		logger.Int("checksPassed", stats.ChecksPassed),
		logger.Int("checksFailed", stats.ChecksFailed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("checksPerSecond", checksPerSecond))
}
