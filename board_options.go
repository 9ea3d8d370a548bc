package pollboard

import (
	"errors"
	"log/slog"
	"time"
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title           string
	widgets         []Widget
	pollingInterval time.Duration
	port            int
	logger          *slog.Logger
	pollerOpts      []PollerOption
}

// Option is a function that configures a [Board] during construction.
//
// Options return an error if validation fails.
type Option func(*boardConfig) error

// WithWidget adds a single [Widget] to the board.
//
// Can be called multiple times. At least one widget must be configured for
// [New] to succeed.
func WithWidget(w Widget) Option {
	return func(cfg *boardConfig) error {
		cfg.widgets = append(cfg.widgets, w)
		return nil
	}
}

// WithWidgets adds several widgets at once. Equivalent to calling
// [WithWidget] for each.
func WithWidgets(widgets ...Widget) Option {
	return func(cfg *boardConfig) error {
		cfg.widgets = append(cfg.widgets, widgets...)
		return nil
	}
}

// WithPollingInterval sets the fixed refresh period for every widget.
// Defaults to 3 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
// Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets the [slog.Logger] used by the board, its server and its
// pollers. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
// If not specified, defaults to "PollBoard".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithPollerOptions applies extra options to every widget's [Poller], after
// the board's own interval and logger.
//
// Example:
//
//	b, err := pollboard.New(
//	    pollboard.WithWidget(w),
//	    pollboard.WithPollerOptions(
//	        pollboard.WithStaleDiscard(),
//	        pollboard.WithRefreshCallback(onRefresh),
//	    ),
//	)
func WithPollerOptions(opts ...PollerOption) Option {
	return func(cfg *boardConfig) error {
		cfg.pollerOpts = append(cfg.pollerOpts, opts...)
		return nil
	}
}
