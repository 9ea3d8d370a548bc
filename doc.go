// Package pollboard keeps lists of status records on screen by polling JSON
// resources on a fixed period.
//
// A [Poller] fetches a [Source] immediately and then every interval (3 seconds
// by default), decodes the response into [Record] values and replaces the
// children of a [Region] with one [Element] per record, in response order.
// Object-shaped records carry a status indicator classified by [Classify];
// primitive-shaped records are rendered as plain text lines.
//
// # Quick Start
//
// Poll a source into your own region:
//
//	src, _ := pollboard.NewSource("drones", "http://localhost:5000/drones/status")
//	p, _ := pollboard.NewPoller(src, pollboard.RegionFunc(func(children []pollboard.Element) {
//	    for _, c := range children {
//	        fmt.Println(c.Class, c.Text)
//	    }
//	}))
//
//	h := p.Start(ctx)
//	defer h.Stop()
//
// Or serve several sources as a live web dashboard with a [Board]:
//
//	b, _ := pollboard.New(
//	    pollboard.WithWidget(pollboard.Widget{RegionID: "drone-status-list", Source: drones}),
//	    pollboard.WithWidget(pollboard.Widget{RegionID: "data-list", Source: positions}),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until context is cancelled
//
// # Failures
//
// A failed cycle is never fatal. Transport errors and non-2xx responses are
// reported as [*FetchError]; bodies that are not a JSON array of the expected
// shape are reported as [*ParseError]. Either way exactly one Error entry is
// written to the diagnostic logger and the region keeps its previous
// children. The schedule keeps running.
//
// # Architecture
//
// The internal packages are not part of the public API:
//
//   - internal/poller: HTTP client and fixed-period schedule
//   - internal/store: In-memory regions with pub/sub for live updates
//   - internal/server: HTTP server with JSON API and Server-Sent Events
//   - internal/metrics: Prometheus collectors for refresh outcomes
//   - internal/tui: Terminal regions for the watch command
//   - dashboard: Embedded web UI assets
package pollboard
