package pollboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingRegion keeps a copy of every Replace call.
type recordingRegion struct {
	mu    sync.Mutex
	calls [][]Element
}

func (r *recordingRegion) Replace(children []Element) {
	cp := make([]Element, len(children))
	copy(cp, children)
	r.mu.Lock()
	r.calls = append(r.calls, cp)
	r.mu.Unlock()
}

func (r *recordingRegion) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// children returns the region's current children, i.e. the last replace.
func (r *recordingRegion) children() []Element {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

// captureHandler is an slog.Handler that records every entry.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r.Clone())
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCaptureLogger() (*slog.Logger, *captureHandler) {
	h := &captureHandler{}
	return slog.New(h), h
}

// jsonServer serves body with status for every request.
func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// sequenceServer serves bodies[i] to the i-th request, repeating the last.
func sequenceServer(t *testing.T, bodies ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(n.Add(1)) - 1
		if i >= len(bodies) {
			i = len(bodies) - 1
		}
		body := bodies[i]
		if body == "500" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &n
}

func newTestPoller(t *testing.T, url string, region Region, opts ...PollerOption) *Poller {
	t.Helper()
	src, err := NewSource("drones", url, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	p, err := NewPoller(src, region, opts...)
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}
	return p
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewPoller_Defaults(t *testing.T) {
	p := newTestPoller(t, "http://localhost:5000/drones/status", &recordingRegion{})

	if p.Interval() != 3*time.Second {
		t.Errorf("Interval() = %v, want 3s", p.Interval())
	}
	if p.Source().Name() != "drones" {
		t.Errorf("Source().Name() = %q, want drones", p.Source().Name())
	}
}

func TestNewPoller_Invalid(t *testing.T) {
	src, err := NewSource("drones", "http://localhost:5000/drones/status")
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	tests := []struct {
		name   string
		src    Source
		region Region
		opts   []PollerOption
	}{
		{"zero source", Source{}, &recordingRegion{}, nil},
		{"nil region", src, nil, nil},
		{"zero interval", src, &recordingRegion{}, []PollerOption{WithInterval(0)}},
		{"negative interval", src, &recordingRegion{}, []PollerOption{WithInterval(-time.Second)}},
		{"nil logger", src, &recordingRegion{}, []PollerOption{WithDiagnostics(nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPoller(tt.src, tt.region, tt.opts...); err == nil {
				t.Error("NewPoller() should return error")
			}
		})
	}
}

func TestPoller_RefreshRendersRecordsInOrder(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[
		{"drone_id": "D1", "status": "online"},
		{"drone_id": "D2", "status": "OFFLINE"},
		{"drone_id": "D3", "status": " Online "}
	]`)
	region := &recordingRegion{}
	logger, logs := newCaptureLogger()
	p := newTestPoller(t, srv.URL, region, WithDiagnostics(logger))

	p.Refresh(context.Background())

	got := region.children()
	want := []Element{
		{Text: "D1", Class: ClassOnline},
		{Text: "D2", Class: ClassOffline},
		{Text: "D3", Class: ClassOnline},
	}
	if len(got) != len(want) {
		t.Fatalf("len(children) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Text != want[i].Text || got[i].Class != want[i].Class {
			t.Errorf("children[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if n := logs.count(slog.LevelError); n != 0 {
		t.Errorf("error entries = %d, want 0", n)
	}
}

func TestPoller_RefreshPrimitive(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `["37.5665,126.9780", "37.5651,126.9895"]`)
	region := &recordingRegion{}

	src, err := NewSource("position", srv.URL, WithShape(ShapePrimitive))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	p, err := NewPoller(src, region)
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	p.Refresh(context.Background())

	got := region.children()
	if len(got) != 2 {
		t.Fatalf("len(children) = %d, want 2", len(got))
	}
	if got[0].Text != "37.5665,126.9780" || got[1].Text != "37.5651,126.9895" {
		t.Errorf("children = %+v", got)
	}
	for i, c := range got {
		if c.Class != ClassNone {
			t.Errorf("children[%d].Class = %q, want none", i, c.Class)
		}
	}
}

func TestPoller_RefreshEmptyArrayClearsRegion(t *testing.T) {
	srv, _ := sequenceServer(t,
		`[{"drone_id": "D1", "status": "online"}]`,
		`[]`,
	)
	region := &recordingRegion{}
	logger, logs := newCaptureLogger()
	p := newTestPoller(t, srv.URL, region, WithDiagnostics(logger))

	p.Refresh(context.Background())
	p.Refresh(context.Background())

	if region.count() != 2 {
		t.Fatalf("Replace calls = %d, want 2", region.count())
	}
	if got := region.children(); len(got) != 0 {
		t.Errorf("children = %+v, want none", got)
	}
	if n := logs.count(slog.LevelError); n != 0 {
		t.Errorf("error entries = %d, want 0", n)
	}
}

func TestPoller_RefreshIsIdempotent(t *testing.T) {
	body := `[
		{"drone_id": "D1", "status": " Online ", "last_seen": "Mon, 01 Jan 2024 12:00:00 GMT"},
		{"drone_id": "D2", "status": "offline", "last_seen": 1704110400}
	]`
	srv, hits := sequenceServer(t, body, body)
	region := &recordingRegion{}
	p := newTestPoller(t, srv.URL, region, WithDiagnostics(discardLogger()))

	p.Refresh(context.Background())
	first := region.children()
	p.Refresh(context.Background())
	second := region.children()

	if hits.Load() != 2 || region.count() != 2 {
		t.Fatalf("requests = %d, Replace calls = %d, want 2 and 2", hits.Load(), region.count())
	}
	if len(first) != 2 || first[0].LastSeen == nil || first[1].LastSeen == nil {
		t.Fatalf("first children = %+v, want 2 with last seen", first)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("children differ between identical refreshes:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestPoller_FetchErrorLeavesRegionUnchanged(t *testing.T) {
	srv, _ := sequenceServer(t,
		`[{"drone_id": "D1", "status": "online"}]`,
		"500",
	)
	region := &recordingRegion{}
	logger, logs := newCaptureLogger()

	var results []RefreshResult
	p := newTestPoller(t, srv.URL, region,
		WithDiagnostics(logger),
		WithRefreshCallback(func(r RefreshResult) { results = append(results, r) }),
	)

	p.Refresh(context.Background())
	p.Refresh(context.Background())

	if region.count() != 1 {
		t.Errorf("Replace calls = %d, want 1", region.count())
	}
	if got := region.children(); len(got) != 1 || got[0].Text != "D1" {
		t.Errorf("children = %+v, want [D1]", got)
	}
	if n := logs.count(slog.LevelError); n != 1 {
		t.Errorf("error entries = %d, want exactly 1", n)
	}

	var fetchErr *FetchError
	if !errors.As(results[1].Err, &fetchErr) {
		t.Fatalf("Err = %v, want *FetchError", results[1].Err)
	}
	if fetchErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", fetchErr.StatusCode)
	}
	if results[1].Outcome() != OutcomeFetchError {
		t.Errorf("Outcome() = %q, want %q", results[1].Outcome(), OutcomeFetchError)
	}
}

func TestPoller_TruncatedBodyIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte(`[{"drone_id"`))
	}))
	defer srv.Close()

	region := &recordingRegion{}
	var result RefreshResult
	p := newTestPoller(t, srv.URL, region,
		WithDiagnostics(discardLogger()),
		WithRefreshCallback(func(r RefreshResult) { result = r }),
	)

	p.Refresh(context.Background())

	if region.count() != 0 {
		t.Errorf("Replace calls = %d, want 0", region.count())
	}
	var fetchErr *FetchError
	if !errors.As(result.Err, &fetchErr) {
		t.Fatalf("Err = %v, want *FetchError", result.Err)
	}
	if fetchErr.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", fetchErr.StatusCode)
	}
	if !strings.Contains(fetchErr.Error(), "failed to read response body") {
		t.Errorf("Error() = %q, want the read failure", fetchErr.Error())
	}
}

func TestPoller_TransportErrorIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	region := &recordingRegion{}
	logger, logs := newCaptureLogger()

	var result RefreshResult
	p := newTestPoller(t, url, region,
		WithDiagnostics(logger),
		WithRefreshCallback(func(r RefreshResult) { result = r }),
	)

	p.Refresh(context.Background())

	if region.count() != 0 {
		t.Errorf("Replace calls = %d, want 0", region.count())
	}
	var fetchErr *FetchError
	if !errors.As(result.Err, &fetchErr) {
		t.Fatalf("Err = %v, want *FetchError", result.Err)
	}
	if fetchErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failure", fetchErr.StatusCode)
	}
	if n := logs.count(slog.LevelError); n != 1 {
		t.Errorf("error entries = %d, want exactly 1", n)
	}
}

func TestPoller_ParseErrorLeavesRegionUnchanged(t *testing.T) {
	srv, _ := sequenceServer(t,
		`[{"drone_id": "D1", "status": "online"}]`,
		`[{"drone_id": "D1", "status": `,
	)
	region := &recordingRegion{}
	logger, logs := newCaptureLogger()

	var results []RefreshResult
	p := newTestPoller(t, srv.URL, region,
		WithDiagnostics(logger),
		WithRefreshCallback(func(r RefreshResult) { results = append(results, r) }),
	)

	p.Refresh(context.Background())
	p.Refresh(context.Background())

	if region.count() != 1 {
		t.Errorf("Replace calls = %d, want 1", region.count())
	}
	if n := logs.count(slog.LevelError); n != 1 {
		t.Errorf("error entries = %d, want exactly 1", n)
	}

	var parseErr *ParseError
	if !errors.As(results[1].Err, &parseErr) {
		t.Fatalf("Err = %v, want *ParseError", results[1].Err)
	}
	if results[1].Outcome() != OutcomeParseError {
		t.Errorf("Outcome() = %q, want %q", results[1].Outcome(), OutcomeParseError)
	}
}

func TestPoller_NonArrayBodyIsParseError(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"drones": []}`)

	var result RefreshResult
	p := newTestPoller(t, srv.URL, &recordingRegion{},
		WithDiagnostics(discardLogger()),
		WithRefreshCallback(func(r RefreshResult) { result = r }),
	)

	p.Refresh(context.Background())

	var parseErr *ParseError
	if !errors.As(result.Err, &parseErr) {
		t.Errorf("Err = %v, want *ParseError", result.Err)
	}
}

// TestPoller_StatusChangesAcrossCycles walks the D1/D2 scenario: a second
// cycle fully replaces the first one's children.
func TestPoller_StatusChangesAcrossCycles(t *testing.T) {
	srv, _ := sequenceServer(t,
		`[{"drone_id": "D1", "status": "online"}, {"drone_id": "D2", "status": "offline"}]`,
		`[{"drone_id": "D2", "status": "Online"}]`,
	)
	region := &recordingRegion{}
	p := newTestPoller(t, srv.URL, region)

	p.Refresh(context.Background())
	first := region.children()
	if len(first) != 2 || first[0].Class != ClassOnline || first[1].Class != ClassOffline {
		t.Fatalf("first cycle children = %+v", first)
	}

	p.Refresh(context.Background())
	second := region.children()
	if len(second) != 1 {
		t.Fatalf("second cycle children = %+v, want only D2", second)
	}
	if second[0].Text != "D2" || second[0].Class != ClassOnline {
		t.Errorf("second cycle children[0] = %+v, want D2 online", second[0])
	}
}

func TestPoller_LastSeen(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[
		{"drone_id": "D1", "status": "online", "last_seen": "2024-01-01T12:00:00Z"},
		{"drone_id": "D2", "status": "offline"}
	]`)
	region := &recordingRegion{}
	p := newTestPoller(t, srv.URL, region)

	p.Refresh(context.Background())

	got := region.children()
	if got[0].LastSeen == nil || !got[0].LastSeen.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("children[0].LastSeen = %v", got[0].LastSeen)
	}
	if got[1].LastSeen != nil {
		t.Errorf("children[1].LastSeen = %v, want nil", got[1].LastSeen)
	}
}

func TestPoller_SendsSourceHeaders(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src, err := NewSource("drones", srv.URL, WithHeaders("Authorization", "Bearer token"))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	p, err := NewPoller(src, &recordingRegion{})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	p.Refresh(context.Background())

	if gotAuth.Load() != "Bearer token" {
		t.Errorf("Authorization = %v, want %q", gotAuth.Load(), "Bearer token")
	}
}

func TestPoller_RegionPanicIsRecovered(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[{"drone_id": "D1", "status": "online"}]`)
	logger, logs := newCaptureLogger()

	var result RefreshResult
	p := newTestPoller(t, srv.URL, RegionFunc(func([]Element) { panic("boom") }),
		WithDiagnostics(logger),
		WithRefreshCallback(func(r RefreshResult) { result = r }),
	)

	p.Refresh(context.Background())

	if !errors.Is(result.Err, ErrRegionPanic) {
		t.Fatalf("Err = %v, want ErrRegionPanic", result.Err)
	}
	if result.Outcome() != OutcomeRenderError {
		t.Errorf("Outcome() = %q, want %q", result.Outcome(), OutcomeRenderError)
	}
	if logs.count(slog.LevelError) == 0 {
		t.Error("region panic should be logged")
	}
}

func TestPoller_CallbackPanicIsRecovered(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[]`)

	var second atomic.Bool
	p := newTestPoller(t, srv.URL, &recordingRegion{},
		WithDiagnostics(discardLogger()),
		WithRefreshCallback(func(RefreshResult) { panic("callback boom") }),
		WithRefreshCallback(func(RefreshResult) { second.Store(true) }),
	)

	p.Refresh(context.Background())

	if !second.Load() {
		t.Error("callback after a panicking one should still run")
	}
}

func TestPoller_CallbackOrderAndFields(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[{"drone_id": "D1", "status": "online"}]`)

	var order []int
	var result RefreshResult
	p := newTestPoller(t, srv.URL, &recordingRegion{},
		WithRefreshCallback(func(r RefreshResult) { order = append(order, 1); result = r }),
		WithRefreshCallback(nil),
		WithRefreshCallback(func(RefreshResult) { order = append(order, 2) }),
	)

	p.Refresh(context.Background())

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("callback order = %v, want [1 2]", order)
	}
	if result.Source != "drones" || result.URL != srv.URL {
		t.Errorf("Source/URL = %q/%q", result.Source, result.URL)
	}
	if result.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", result.Sequence)
	}
	if result.Records != 1 || result.StatusCode != http.StatusOK {
		t.Errorf("Records/StatusCode = %d/%d, want 1/200", result.Records, result.StatusCode)
	}
	if result.CheckedAt.IsZero() {
		t.Error("CheckedAt should not be zero")
	}
	if result.Outcome() != OutcomeOK {
		t.Errorf("Outcome() = %q, want ok", result.Outcome())
	}
}

// overlapServer holds the first request until release is closed and answers
// every later request immediately.
func overlapServer(t *testing.T) (srv *httptest.Server, firstArrived, release chan struct{}) {
	t.Helper()
	firstArrived = make(chan struct{})
	release = make(chan struct{})
	var n atomic.Int32
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 1 {
			close(firstArrived)
			<-release
			_, _ = w.Write([]byte(`[{"drone_id": "OLD", "status": "offline"}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"drone_id": "NEW", "status": "online"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv, firstArrived, release
}

func TestPoller_OverlappingCyclesLastSettledWins(t *testing.T) {
	srv, firstArrived, release := overlapServer(t)
	region := &recordingRegion{}
	p := newTestPoller(t, srv.URL, region)

	done := make(chan struct{})
	go func() {
		p.Refresh(context.Background())
		close(done)
	}()
	<-firstArrived

	p.Refresh(context.Background())
	close(release)
	<-done

	if got := region.children(); len(got) != 1 || got[0].Text != "OLD" {
		t.Errorf("children = %+v, want the later-settling OLD response", got)
	}
}

func TestPoller_WithStaleDiscard(t *testing.T) {
	srv, firstArrived, release := overlapServer(t)
	region := &recordingRegion{}

	var stale atomic.Int32
	p := newTestPoller(t, srv.URL, region,
		WithStaleDiscard(),
		WithRefreshCallback(func(r RefreshResult) {
			if r.Stale {
				stale.Add(1)
				if r.Outcome() != OutcomeStale {
					t.Errorf("Outcome() = %q, want stale", r.Outcome())
				}
			}
		}),
	)

	done := make(chan struct{})
	go func() {
		p.Refresh(context.Background())
		close(done)
	}()
	<-firstArrived

	p.Refresh(context.Background())
	close(release)
	<-done

	if got := region.children(); len(got) != 1 || got[0].Text != "NEW" {
		t.Errorf("children = %+v, want NEW from the newer cycle", got)
	}
	if region.count() != 1 {
		t.Errorf("Replace calls = %d, want 1", region.count())
	}
	if stale.Load() != 1 {
		t.Errorf("stale results = %d, want 1", stale.Load())
	}
}

func TestPoller_StartRefreshesImmediately(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[{"drone_id": "D1", "status": "online"}]`)
	region := &recordingRegion{}
	p := newTestPoller(t, srv.URL, region, WithInterval(time.Hour))

	h := p.Start(context.Background())
	defer h.Stop()

	waitFor(t, 2*time.Second, func() bool { return region.count() == 1 })
}

func TestPoller_StartRefreshesEveryInterval(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[]`)
	region := &recordingRegion{}
	p := newTestPoller(t, srv.URL, region, WithInterval(20*time.Millisecond))

	h := p.Start(context.Background())
	defer h.Stop()

	waitFor(t, 2*time.Second, func() bool { return region.count() >= 3 })
}

func TestPoller_StartContinuesAfterFailures(t *testing.T) {
	srv, _ := sequenceServer(t, "500", "500", `[{"drone_id": "D1", "status": "online"}]`)
	region := &recordingRegion{}
	logger, logs := newCaptureLogger()
	p := newTestPoller(t, srv.URL, region,
		WithInterval(20*time.Millisecond),
		WithDiagnostics(logger),
	)

	h := p.Start(context.Background())
	defer h.Stop()

	waitFor(t, 2*time.Second, func() bool { return region.count() >= 1 })
	if n := logs.count(slog.LevelError); n < 2 {
		t.Errorf("error entries = %d, want at least 2", n)
	}
}

func TestHandle_StopPreventsFurtherRefreshes(t *testing.T) {
	srv, requests := sequenceServer(t, `[]`)
	p := newTestPoller(t, srv.URL, &recordingRegion{}, WithInterval(20*time.Millisecond))

	h := p.Start(context.Background())
	waitFor(t, 2*time.Second, func() bool { return requests.Load() >= 2 })
	h.Stop()

	after := requests.Load()
	time.Sleep(100 * time.Millisecond)
	if requests.Load() != after {
		t.Errorf("requests after Stop = %d, want %d", requests.Load(), after)
	}
}

func TestHandle_StopIsIdempotent(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[]`)
	p := newTestPoller(t, srv.URL, &recordingRegion{}, WithInterval(time.Hour))

	h := p.Start(context.Background())
	h.Stop()
	h.Stop()

	var nilHandle *Handle
	nilHandle.Stop()
}

func TestHandle_StopWaitsForInflightRefresh(t *testing.T) {
	srv, firstArrived, release := overlapServer(t)
	region := &recordingRegion{}
	p := newTestPoller(t, srv.URL, region, WithInterval(time.Hour))

	h := p.Start(context.Background())
	<-firstArrived

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a refresh was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the in-flight refresh settled")
	}

	if got := region.children(); len(got) != 1 || got[0].Text != "OLD" {
		t.Errorf("in-flight refresh should still render, children = %+v", got)
	}
}

func TestPoller_ContextCancelAbortsRequest(t *testing.T) {
	arrived := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
	}))
	defer srv.Close()

	region := &recordingRegion{}
	var result RefreshResult
	p := newTestPoller(t, srv.URL, region,
		WithDiagnostics(discardLogger()),
		WithRefreshCallback(func(r RefreshResult) { result = r }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Refresh(ctx)
		close(done)
	}()

	<-arrived
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Refresh did not return after context cancellation")
	}

	if !errors.Is(result.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", result.Err)
	}
	if region.count() != 0 {
		t.Errorf("Replace calls = %d, want 0", region.count())
	}
}
