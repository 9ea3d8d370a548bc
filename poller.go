package pollboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/pollboard/internal/poller"
)

const defaultRefreshInterval = 3 * time.Second

// ErrRegionPanic is wrapped by the error reported when a [Region] panics
// during Replace.
var ErrRegionPanic = errors.New("region panicked during replace")

// Outcome labels for [RefreshResult.Outcome].
const (
	OutcomeOK          = "ok"
	OutcomeFetchError  = "fetch_error"
	OutcomeParseError  = "parse_error"
	OutcomeRenderError = "render_error"
	OutcomeStale       = "stale"
)

// RefreshResult describes one completed refresh cycle.
//
// It is delivered to callbacks registered with [WithRefreshCallback] after
// the region has been updated (or left alone, on failure).
type RefreshResult struct {
	// Source is the name of the polled source.
	Source string

	// URL is the resource locator that was fetched.
	URL string

	// Sequence is the cycle number, starting at 1 for the first cycle.
	Sequence uint64

	// Records is the number of records decoded. Zero on failure.
	Records int

	// StatusCode is the HTTP status code, zero if no response arrived.
	StatusCode int

	// Latency is the time taken by the HTTP request.
	Latency time.Duration

	// CheckedAt is when the response settled.
	CheckedAt time.Time

	// Err is a *FetchError, a *ParseError, or an error wrapping
	// [ErrRegionPanic]. nil on success.
	Err error

	// Stale reports that the response was discarded because a newer cycle
	// had already rendered. Only set with [WithStaleDiscard].
	Stale bool
}

// Outcome classifies the result as one of the Outcome* labels.
func (r RefreshResult) Outcome() string {
	var fetchErr *FetchError
	var parseErr *ParseError
	switch {
	case r.Stale:
		return OutcomeStale
	case r.Err == nil:
		return OutcomeOK
	case errors.As(r.Err, &fetchErr):
		return OutcomeFetchError
	case errors.As(r.Err, &parseErr):
		return OutcomeParseError
	default:
		return OutcomeRenderError
	}
}

// Poller periodically fetches a [Source] and re-renders its records into a
// [Region].
//
// A Poller is created with [NewPoller]. [Poller.Refresh] runs one cycle;
// [Poller.Start] runs one cycle immediately and then one every interval until
// the returned [Handle] is stopped.
//
// Failed cycles never propagate: they are written to the diagnostic logger and
// the region keeps its previous contents. Cycles may overlap when a request
// outlives the interval; by default the response that settles last wins.
type Poller struct {
	source       Source
	region       Region
	interval     time.Duration
	logger       *slog.Logger
	staleDiscard bool
	callbacks    []func(RefreshResult)
	client       *poller.Client

	seq      atomic.Uint64
	renderMu sync.Mutex
	rendered uint64 // highest sequence rendered, guarded by renderMu
}

// NewPoller creates a [Poller] that renders src into region.
//
// Defaults:
//   - Interval: 3 seconds
//   - Diagnostics: [slog.Default]
//   - Stale responses: rendered (last-settling response wins)
//
// Returns an error if src was not built with [NewSource], region is nil, or
// an option is invalid.
func NewPoller(src Source, region Region, opts ...PollerOption) (*Poller, error) {
	if src.IsZero() {
		return nil, errors.New("source is required")
	}
	if region == nil {
		return nil, errors.New("region cannot be nil")
	}

	cfg := &pollerConfig{
		interval: defaultRefreshInterval,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		source:       src,
		region:       region,
		interval:     cfg.interval,
		logger:       logger,
		staleDiscard: cfg.staleDiscard,
		callbacks:    cfg.callbacks,
		client:       poller.NewClient(),
	}, nil
}

// Source returns the polled source.
func (p *Poller) Source() Source {
	return p.source
}

// Interval returns the fixed period between scheduled refreshes.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Refresh runs one fetch-decode-render cycle.
//
// On success the region's children are replaced with one [Element] per
// record, in response order. On a [FetchError] or [ParseError] the region is
// left untouched and exactly one Error entry is written to the diagnostic
// logger. Refresh never returns an error and never retries.
func (p *Poller) Refresh(ctx context.Context) {
	result := p.refresh(ctx)

	logAttrs := []any{
		"source", result.Source,
		"url", result.URL,
		"sequence", result.Sequence,
		"latency_ms", result.Latency.Milliseconds(),
	}
	switch {
	case result.Err != nil:
		p.logger.Error("refresh failed", append(logAttrs, "error", result.Err.Error())...)
	case result.Stale:
		p.logger.Debug("stale response discarded", logAttrs...)
	default:
		p.logger.Debug("refresh completed", append(logAttrs, "records", result.Records)...)
	}

	for _, cb := range p.callbacks {
		invokeCallbackSafe(cb, result, p.logger)
	}
}

// refresh performs the cycle and reports its outcome without logging.
func (p *Poller) refresh(ctx context.Context) RefreshResult {
	seq := p.seq.Add(1)

	resp := p.client.Fetch(ctx, p.source.url, p.source.headers, p.source.timeout)
	result := RefreshResult{
		Source:     p.source.name,
		URL:        p.source.url,
		Sequence:   seq,
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		CheckedAt:  time.Now(),
	}

	if resp.Error != nil {
		result.Err = &FetchError{URL: p.source.url, StatusCode: resp.StatusCode, Err: resp.Error}
		return result
	}
	if !resp.OK() {
		result.Err = &FetchError{
			URL:        p.source.url,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
		return result
	}

	records, err := DecodeRecords(resp.Body, p.source.shape, p.source.fields)
	if err != nil {
		result.Err = &ParseError{URL: p.source.url, Err: err}
		return result
	}

	children := make([]Element, len(records))
	for i, r := range records {
		children[i] = elementFor(r, p.source.shape)
	}

	p.renderMu.Lock()
	defer p.renderMu.Unlock()

	if p.staleDiscard && seq < p.rendered {
		result.Stale = true
		return result
	}

	if err := p.safeReplace(children); err != nil {
		result.Err = err
		return result
	}
	if seq > p.rendered {
		p.rendered = seq
	}
	result.Records = len(children)
	return result
}

// safeReplace calls the region with panic recovery.
// A panic is logged with its stack under a correlation ID, and returned as an
// error wrapping ErrRegionPanic that carries the same ID.
func (p *Poller) safeReplace(children []Element) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			p.logger.Error("region panic",
				"correlation_id", correlationID,
				"source", p.source.name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			err = fmt.Errorf("%w (correlation_id: %s)", ErrRegionPanic, correlationID)
		}
	}()
	p.region.Replace(children)
	return nil
}

// Start runs [Poller.Refresh] once immediately and then every interval.
//
// Start is non-blocking. Refreshes keep firing at the fixed period regardless
// of earlier failures, until the returned [Handle] is stopped or ctx is
// cancelled. ctx is also the parent of every request, so cancelling it aborts
// requests in flight; [Handle.Stop] does not.
//
// Each call starts an independent schedule with its own handle.
func (p *Poller) Start(ctx context.Context) *Handle {
	s := poller.NewSchedule(p.interval, p.Refresh)
	s.Start(ctx)
	return &Handle{schedule: s, client: p.client}
}

// Handle owns a running refresh schedule started by [Poller.Start].
type Handle struct {
	schedule *poller.Schedule
	client   *poller.Client
}

// Stop cancels the periodic schedule so that no further refresh starts.
//
// Refreshes already in flight are not cancelled; Stop waits for them to
// settle before returning. Stop is idempotent and safe on a nil Handle.
func (h *Handle) Stop() {
	if h == nil || h.schedule == nil {
		return
	}
	h.schedule.Stop()
	h.client.Close()
}

// invokeCallbackSafe calls a refresh callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(RefreshResult), result RefreshResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("refresh callback panicked",
				"panic", r,
				"source", result.Source,
			)
		}
	}()
	cb(result)
}
