package operation

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/unitops/unitops/pkg/gateway"
)

// callWithRetry runs one gateway call, retrying transient and throttled
// failures with capped exponential backoff until the attempt or time budget
// runs out. Non-retryable errors return immediately; an exhausted budget is
// wrapped as fatal.
func (d *driver) callWithRetry(ctx context.Context, stage string, fn func(context.Context) error) error {
	start := time.Now()
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !gateway.IsRetryable(err) {
			return err
		}
		if attempt+1 >= d.cfg.MaxAttempts || time.Since(start) >= d.cfg.RetryBudget {
			return &FatalError{Stage: stage, Err: err}
		}

		delay := retryBackoff(attempt, err, d.cfg.MaxPollInterval)
		d.met.GatewayRetry(string(gateway.ClassOf(err)))
		d.log.Warn().Err(err).Str("stage", stage).Int("attempt", attempt+1).
			Dur("backoff", delay).Msg("retrying gateway call")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &FatalError{Stage: stage, Err: ctx.Err()}
		}
	}
}

// retryBackoff calculates exponential backoff with jitter. Throttled errors
// start from a longer base so the engine respects remote rate limits.
func retryBackoff(attempt int, err error, ceiling time.Duration) time.Duration {
	base := 1 * time.Second
	if gateway.IsThrottled(err) {
		base = 5 * time.Second
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > ceiling {
		delay = ceiling
	}

	// ±25% jitter
	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	return delay + jitter
}

// nextPollDelay backs the poll cadence off toward the ceiling while polls
// are idle. The driver resets to the floor whenever a poll yields events.
func nextPollDelay(current time.Duration, cfg Config) time.Duration {
	next := current * 2
	if next > cfg.MaxPollInterval {
		next = cfg.MaxPollInterval
	}
	if next < cfg.PollInterval {
		next = cfg.PollInterval
	}
	return next
}
