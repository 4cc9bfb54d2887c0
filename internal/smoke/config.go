// Package smoke drives a running server through the observable properties of
// its HTTP contract using concurrent workers.
package smoke

import "time"

// Defaults for Config.
const (
	DefaultBaseURL    = "http://localhost:3000"
	DefaultIterations = 100
	DefaultTimeout    = 10 * time.Second
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Iterations int           // Rounds of the per-request checks
	Workers    int           // Concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Verbose    bool          // Log every check result
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Iterations <= 0 {
		out.Iterations = DefaultIterations
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}

// Stats holds run statistics.
type Stats struct {
	ChecksRun    int
	ChecksPassed int
	ChecksFailed int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
