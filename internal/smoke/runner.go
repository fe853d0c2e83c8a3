package smoke

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trapperkeeper/internal/client"
	"github.com/okian/trapperkeeper/pkg/logger"
)

type runner struct {
	client *client.Client
	cfg    Config
	log    logger.Logger

	requests atomic.Int64
	passed   atomic.Int64
	failed   atomic.Int64

	mu       sync.Mutex
	failures []string
}

func (r *runner) record(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if r.cfg.Verbose {
		r.log.Warn(ctx, "check failed", logger.Error(err))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failures) < maxFailures {
		r.failures = append(r.failures, err.Error())
	}
}

// Run checks the server's fixed answers, then drives cfg.Notes notes
// through create, replay, read, update and delete using cfg.Workers
// goroutines. It returns ErrFailed when any check failed; the Stats are
// valid either way.
func Run(ctx context.Context, c *client.Client, cfg Config) (Stats, error) {
	cfg = cfg.normalized()
	r := &runner{client: c, cfg: cfg, log: logger.GetOrNop().Named("smoke")}
	stats := Stats{Notes: cfg.Notes, StartTime: time.Now()}

	r.log.Info(ctx, "starting smoke run",
		logger.String("baseURL", c.BaseURL()),
		logger.Int("notes", cfg.Notes),
		logger.Int("workers", cfg.Workers),
	)

	if err := r.preflight(ctx); err != nil {
		r.record(ctx, err)
		return r.finish(ctx, stats)
	}

	jobs := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				if ctx.Err() != nil {
					return
				}
				r.record(ctx, r.lifecycle(ctx, n))
			}
		}()
	}

	go func() {
		defer close(jobs)
		for n := range cfg.Notes {
			select {
			case <-ctx.Done():
				return
			case jobs <- n:
			}
		}
	}()

	wg.Wait()
	if err := ctx.Err(); err != nil {
		r.record(ctx, fmt.Errorf("run interrupted: %w", err))
		r.failed.Add(1)
	}
	return r.finish(ctx, stats)
}

func (r *runner) finish(ctx context.Context, stats Stats) (Stats, error) {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	stats.Requests = r.requests.Load()
	stats.Passed = r.passed.Load()
	stats.Failed = r.failed.Load()
	r.mu.Lock()
	stats.Failures = append([]string(nil), r.failures...)
	r.mu.Unlock()

	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}
	r.log.Info(ctx, "smoke run finished",
		logger.Int("notes", stats.Notes),
		logger.Int("requests", int(stats.Requests)),
		logger.Int("passed", int(stats.Passed)),
		logger.Int("failed", int(stats.Failed)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", perSecond),
	)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d", ErrFailed, stats.Failed, stats.Passed+stats.Failed)
	}
	return stats, nil
}
