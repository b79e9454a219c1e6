package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// Pinger matches anything with a Ping method, notably pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping adapts a Pinger into a readiness Check.
func Ping(p Pinger) Check {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// Goroutines returns a liveness Check that fails once the goroutine count
// passes max. Catches leaks from handlers that spawn without bound.
func Goroutines(max int) Check {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return errors.Errorf("%d goroutines, limit %d", n, max)
		}
		return nil
	}
}

// GCPause returns a liveness Check that fails when any observed
// stop-the-world pause exceeded max.
func GCPause(max time.Duration) Check {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		for _, pause := range stats.Pause {
			if pause > max {
				return errors.Errorf("GC pause %s, limit %s", pause, max)
			}
		}
		return nil
	}
}
