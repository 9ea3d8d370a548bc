package pollboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/pollboard/dashboard"
	"github.com/jpalmerr/pollboard/internal/metrics"
	"github.com/jpalmerr/pollboard/internal/server"
	"github.com/jpalmerr/pollboard/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultPort = 8080

// Widget binds a [Source] to the dashboard region it renders into.
type Widget struct {
	// RegionID identifies the region on the dashboard, for example
	// "drone-status-list". It must be unique within a board.
	RegionID string

	// Source is the resource polled into the region.
	Source Source
}

// Board runs one [Poller] per widget and serves the rendered regions as a
// live dashboard.
//
// A Board is created with [New] and started with [Board.Start]:
//
//	b, err := pollboard.New(pollboard.WithWidget(pollboard.Widget{
//	    RegionID: "drone-status-list",
//	    Source:   drones,
//	}))
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled
type Board struct {
	title           string
	widgets         []Widget
	pollingInterval time.Duration
	port            int
	logger          *slog.Logger
	pollerOpts      []PollerOption
}

// New creates a [Board] with the given options.
//
// At least one widget must be configured via [WithWidget] or [WithWidgets].
// Other options have defaults:
//   - Polling interval: 3 seconds
//   - Port: 8080
//
// Returns an error if no widgets are configured, two widgets share a region
// ID, or any option is invalid.
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		pollingInterval: defaultRefreshInterval,
		port:            defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.widgets) == 0 {
		return nil, errors.New("at least one widget is required")
	}

	seen := make(map[string]bool, len(cfg.widgets))
	for i, w := range cfg.widgets {
		if w.RegionID == "" {
			return nil, fmt.Errorf("widget %d: region id is required", i)
		}
		if w.Source.IsZero() {
			return nil, fmt.Errorf("widget %q: source is required", w.RegionID)
		}
		if seen[w.RegionID] {
			return nil, fmt.Errorf("duplicate region id: %q", w.RegionID)
		}
		seen[w.RegionID] = true
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:           cfg.title,
		widgets:         cfg.widgets,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		logger:          logger,
		pollerOpts:      cfg.pollerOpts,
	}, nil
}

// Start begins polling every widget and serving the dashboard.
//
// Start blocks until ctx is cancelled. Each widget's poller refreshes
// immediately and then every polling interval; failed refreshes leave the
// region as it was. On cancellation every schedule is stopped and Start
// returns nil.
//
// Returns an error if a poller cannot be built or the HTTP server fails to
// bind.
func (b *Board) Start(ctx context.Context) error {
	b.logger.Info("pollboard starting", "widget_count", len(b.widgets))
	b.logger.Info("polling configured", "interval", b.pollingInterval.String())
	b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	if ctx.Err() != nil {
		return nil
	}

	regions := store.NewMemoryStore()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	pollers := make([]*Poller, len(b.widgets))
	for i, w := range b.widgets {
		p, err := b.newPoller(w, regions, m)
		if err != nil {
			return fmt.Errorf("widget %q: %w", w.RegionID, err)
		}
		pollers[i] = p
	}

	httpServer := server.NewServer(regions, b.port, dashboard.Assets, b.title,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), b.logger)
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	handles := make([]*Handle, len(pollers))
	for i, p := range pollers {
		handles[i] = p.Start(ctx)
	}

	<-ctx.Done()
	for _, h := range handles {
		h.Stop()
	}
	b.logger.Info("pollboard stopped")
	return nil
}

// newPoller builds the poller for one widget. Board-level options are
// applied first so that per-board poller options can override them.
func (b *Board) newPoller(w Widget, regions store.Store, m *metrics.Metrics) (*Poller, error) {
	opts := []PollerOption{
		WithInterval(b.pollingInterval),
		WithDiagnostics(b.logger.With("region", w.RegionID)),
		WithRefreshCallback(func(r RefreshResult) {
			m.Observe(w.RegionID, r.Source, r.Outcome(), r.Records, r.Latency)
		}),
	}
	opts = append(opts, b.pollerOpts...)

	region := &storeRegion{
		store: regions,
		id:    w.RegionID,
		name:  w.Source.Name(),
		now:   time.Now,
	}
	return NewPoller(w.Source, region, opts...)
}

// Widgets returns a copy of the configured widgets.
func (b *Board) Widgets() []Widget {
	cp := make([]Widget, len(b.widgets))
	copy(cp, b.widgets)
	return cp
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// PollingInterval returns the configured interval between refreshes.
func (b *Board) PollingInterval() time.Duration {
	return b.pollingInterval
}

// storeRegion adapts one slot of the region store to [Region].
type storeRegion struct {
	store store.Store
	id    string
	name  string
	now   func() time.Time
}

// Replace publishes children as the region's new snapshot.
func (r *storeRegion) Replace(children []Element) {
	out := make([]store.Child, len(children))
	for i, c := range children {
		out[i] = store.Child{
			Text:     c.Text,
			Class:    c.Class.String(),
			LastSeen: c.LastSeen,
		}
	}
	r.store.Replace(store.Snapshot{
		ID:        r.id,
		Name:      r.name,
		Children:  out,
		UpdatedAt: r.now(),
	})
}
