package pollboard

import (
	"errors"
	"log/slog"
	"time"
)

// pollerConfig holds mutable state during Poller construction.
type pollerConfig struct {
	interval     time.Duration
	logger       *slog.Logger
	staleDiscard bool
	callbacks    []func(RefreshResult)
}

// PollerOption is a function that configures a [Poller] during construction.
//
// Options return an error if validation fails.
type PollerOption func(*pollerConfig) error

// WithInterval sets the fixed period between scheduled refreshes.
// Defaults to 3 seconds.
//
// Returns an error if the duration is zero or negative.
func WithInterval(d time.Duration) PollerOption {
	return func(cfg *pollerConfig) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithDiagnostics sets the logger that failed cycles are written to.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithDiagnostics(logger *slog.Logger) PollerOption {
	return func(cfg *pollerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStaleDiscard makes the poller drop responses that settle after a newer
// cycle has already rendered.
//
// Without this option overlapping cycles race and whichever response settles
// last overwrites the region, even if its request started first. With it,
// every cycle takes a monotonically increasing sequence number and older
// responses are discarded (reported with [RefreshResult.Stale]).
func WithStaleDiscard() PollerOption {
	return func(cfg *pollerConfig) error {
		cfg.staleDiscard = true
		return nil
	}
}

// WithRefreshCallback registers a function called after every refresh cycle.
//
// Callbacks run synchronously on the cycle's goroutine in registration order
// and must not block. Panics are recovered and logged. Nil callbacks are
// ignored.
//
// Example:
//
//	p, err := pollboard.NewPoller(src, region,
//	    pollboard.WithRefreshCallback(func(r pollboard.RefreshResult) {
//	        if r.Err != nil {
//	            alerts.Notify(r.Source, r.Err)
//	        }
//	    }),
//	)
func WithRefreshCallback(cb func(RefreshResult)) PollerOption {
	return func(cfg *pollerConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}
