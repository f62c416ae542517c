package health

import (
	"context"
	"runtime"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck reports unhealthy when the goroutine count exceeds
// threshold. Useful as a liveness check to catch goroutine leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		count := runtime.NumGoroutine()
		if count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

// Pinger is anything with a context-aware Ping, such as a pgx pool or a
// redis client wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck wraps a Pinger as a readiness check.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// DeadlineCheck wraps another check and reports unhealthy when it takes
// longer than max, even if it eventually succeeds.
func DeadlineCheck(max time.Duration, fn CheckFunc) CheckFunc {
	return func(ctx context.Context) error {
		start := time.Now()
		if err := fn(ctx); err != nil {
			return err
		}
		if d := time.Since(start); d > max {
			return errors.Errorf("check took %s, budget %s", d, max)
		}
		return nil
	}
}
