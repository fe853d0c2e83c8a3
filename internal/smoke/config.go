// Package smoke drives the full note lifecycle against a live server from
// many goroutines and checks every observable guarantee of the API.
package smoke

import (
	"errors"
	"time"
)

// Defaults for Config.
const (
	DefaultNotes   = 100
	DefaultWorkers = 8
	maxFailures    = 20
)

// ErrFailed is returned by Run when at least one check failed.
var ErrFailed = errors.New("smoke checks failed")

// Config holds configuration for a smoke run.
type Config struct {
	Notes   int  // Number of notes driven through the lifecycle
	Workers int  // Number of concurrent workers
	Verbose bool // Log every failed check as it happens
}

func (c Config) normalized() Config {
	if c.Notes <= 0 {
		c.Notes = DefaultNotes
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// Stats summarizes a run.
type Stats struct {
	Notes     int           `json:"notes"`
	Requests  int64         `json:"requests"`
	Passed    int64         `json:"passed"`
	Failed    int64         `json:"failed"`
	Failures  []string      `json:"failures,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
}
