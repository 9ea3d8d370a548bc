package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jpalmerr/pollboard"
	"github.com/jpalmerr/pollboard/internal/tui"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// watchCmd polls a single source and renders it in the terminal.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll one source and show it in the terminal",
	Long: `Poll a single JSON status list and keep it on screen.

On an interactive terminal the list is drawn full screen (press q to quit).
When stdout is not a terminal, one text block is printed per refresh.

Example:
  pollboard watch --url http://localhost:9999/drones/status
  pollboard watch --url http://localhost:9999/position --shape primitive
  pollboard watch --url http://localhost:9999/drones/status --once`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	f := watchCmd.Flags()
	f.String("url", "", "resource to poll (required)")
	f.String("name", "", "display name (defaults to the url)")
	f.String("shape", "object", "record shape: object or primitive")
	f.String("id-field", pollboard.DefaultFields.ID, "identifier field for object records")
	f.String("status-field", pollboard.DefaultFields.Status, "status field for object records")
	f.String("last-seen-field", pollboard.DefaultFields.LastSeen, "last-seen field for object records")
	f.Duration("interval", 3*time.Second, "refresh period")
	f.Duration("timeout", 10*time.Second, "request timeout")
	f.Bool("once", false, "refresh once, print and exit")
	_ = watchCmd.MarkFlagRequired("url")
}

// sourceFromFlags builds the watched source from command flags.
func sourceFromFlags(cmd *cobra.Command) (pollboard.Source, error) {
	f := cmd.Flags()
	rawURL, _ := f.GetString("url")
	name, _ := f.GetString("name")
	shapeName, _ := f.GetString("shape")
	idField, _ := f.GetString("id-field")
	statusField, _ := f.GetString("status-field")
	lastSeenField, _ := f.GetString("last-seen-field")
	timeout, _ := f.GetDuration("timeout")

	shape, err := pollboard.ParseShape(shapeName)
	if err != nil {
		return pollboard.Source{}, err
	}
	if name == "" {
		name = rawURL
	}

	return pollboard.NewSource(name, rawURL,
		pollboard.WithShape(shape),
		pollboard.WithFields(idField, statusField),
		pollboard.WithLastSeenField(lastSeenField),
		pollboard.WithTimeout(timeout),
	)
}

func runWatch(cmd *cobra.Command, args []string) error {
	src, err := sourceFromFlags(cmd)
	if err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	interval, _ := cmd.Flags().GetDuration("interval")
	once, _ := cmd.Flags().GetBool("once")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if once {
		return watchOnce(ctx, src, out, newLogger(false))
	}
	if isTerminal(out) {
		return watchTUI(ctx, src, interval)
	}
	return watchPlain(ctx, src, interval, out, newLogger(false))
}

// watchOnce runs a single refresh and reports its failure, if any.
func watchOnce(ctx context.Context, src pollboard.Source, out io.Writer, logger *slog.Logger) error {
	var refreshErr error
	p, err := pollboard.NewPoller(src, tui.NewWriterRegion(out, src.Name()),
		pollboard.WithDiagnostics(logger),
		pollboard.WithRefreshCallback(func(r pollboard.RefreshResult) {
			refreshErr = r.Err
		}),
	)
	if err != nil {
		return err
	}

	p.Refresh(ctx)
	return refreshErr
}

// watchPlain prints one block per refresh until ctx is cancelled.
func watchPlain(ctx context.Context, src pollboard.Source, interval time.Duration, out io.Writer, logger *slog.Logger) error {
	p, err := pollboard.NewPoller(src, tui.NewWriterRegion(out, src.Name()),
		pollboard.WithInterval(interval),
		pollboard.WithDiagnostics(logger),
	)
	if err != nil {
		return err
	}

	h := p.Start(ctx)
	<-ctx.Done()
	h.Stop()
	return nil
}

// watchTUI draws the source full screen until q, Ctrl+C or ctx cancellation.
// Diagnostics go to a pane below the list so they do not tear the screen.
func watchTUI(ctx context.Context, src pollboard.Source, interval time.Duration) error {
	app := tview.NewApplication()

	region := tui.NewListRegion(src.Name())
	region.Attach(app)

	logView := tview.NewTextView().
		SetScrollable(true).
		SetChangedFunc(func() { app.Draw() })
	logView.SetBorder(true).SetTitle(" diagnostics ")

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(region.Primitive(), 0, 1, true).
		AddItem(logView, 6, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	logger := slog.New(slog.NewTextHandler(logView, &slog.HandlerOptions{Level: slog.LevelWarn}))
	p, err := pollboard.NewPoller(src, region,
		pollboard.WithInterval(interval),
		pollboard.WithDiagnostics(logger),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h := p.Start(ctx)
	go func() {
		<-ctx.Done()
		app.Stop()
	}()

	runErr := app.SetRoot(layout, true).Run()
	cancel()
	h.Stop()
	return runErr
}

// isTerminal reports whether out is an interactive terminal.
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
