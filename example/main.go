package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pollboard"
)

func main() {
	// start mock server (see mock_server.go)
	go StartMockFleetServer(":9999")
	time.Sleep(100 * time.Millisecond)

	drones, err := pollboard.NewSource("Drones", "http://localhost:9999/drones/status")
	if err != nil {
		slog.Error("failed to create drone source", "error", err)
		os.Exit(1)
	}

	positions, err := pollboard.NewSource("Positions", "http://localhost:9999/position",
		pollboard.WithShape(pollboard.ShapePrimitive),
	)
	if err != nil {
		slog.Error("failed to create position source", "error", err)
		os.Exit(1)
	}

	board, err := pollboard.New(
		pollboard.WithWidgets(
			pollboard.Widget{RegionID: "drone-status-list", Source: drones},
			pollboard.Widget{RegionID: "data-list", Source: positions},
		),
		pollboard.WithTitle("Fleet"),
		pollboard.WithPort(8080),
		pollboard.WithPollerOptions(
			pollboard.WithRefreshCallback(func(r pollboard.RefreshResult) {
				if r.Err != nil {
					slog.Warn("refresh failed", "source", r.Source, "outcome", r.Outcome())
				}
			}),
		),
	)
	if err != nil {
		slog.Error("failed to create board", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  PollBoard Demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println()
	fmt.Println("  Regions:")
	fmt.Println("    drone-status-list  object records, refreshed every 3s")
	fmt.Println("    data-list          primitive records, refreshed every 3s")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := board.Start(ctx); err != nil {
		slog.Error("pollboard error", "error", err)
		os.Exit(1)
	}
}
