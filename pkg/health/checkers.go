package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is the slice of a connection pool the readiness check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports unhealthy while the pool cannot reach its backend.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// GoroutineCountCheck reports unhealthy when the goroutine count exceeds the
// threshold, catching leaks before they take the process down.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if count := runtime.NumGoroutine(); count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}
