package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jpalmerr/pollboard/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown after the context is cancelled.
	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "PollBoard"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Server handles HTTP requests for the dashboard, its JSON API and metrics.
//
// Routes:
//   - GET /: embedded dashboard HTML
//   - GET /api/regions: all regions as JSON
//   - GET /api/regions/{id}: one region as JSON
//   - GET /api/sse: Server-Sent Events stream of replaced regions
//   - GET /metrics: Prometheus exposition (when a handler is configured)
//   - GET /healthz: liveness probe
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	metrics    http.Handler
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store holding the rendered regions
//   - port: TCP port to listen on (0 lets the OS choose)
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "PollBoard" if empty)
//   - metrics: Handler mounted at /metrics (may be nil)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, port int, assets fs.FS, title string, metrics http.Handler, logger *slog.Logger) *Server {
	return &Server{
		store:   st,
		port:    port,
		assets:  assets,
		title:   title,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Handler returns the router serving all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(recovery(s.logger))

	r.Get("/", s.handleDashboard)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/regions", s.handleRegions)
		r.Get("/regions/{id}", s.handleRegion)
		r.Get("/sse", s.handleSSE)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// all request contexts derive from ctx so long-lived SSE handlers
		// end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// title is HTML-escaped before substitution
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleRegions returns all regions as JSON.
func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	snaps := s.store.GetAll()
	views := make([]regionView, len(snaps))
	for i, snap := range snaps {
		views[i] = s.toView(snap)
	}
	s.writeJSON(w, http.StatusOK, views)
}

// handleRegion returns one region as JSON, or 404.
func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := s.store.Get(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("region %q not found", id),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, s.toView(snap))
}

// writeJSON encodes v with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams replaced regions via Server-Sent Events.
//
// The handler uses write deadlines so a slow or disconnected client cannot
// block it past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// current contents first so a new client paints immediately
	for _, snap := range s.store.GetAll() {
		data, err := json.Marshal(s.toView(snap))
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(s.toView(snap))
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown
			return
		}
	}
}

// regionView is the JSON shape of a region served to the dashboard.
type regionView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Children  []childView `json:"children"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// childView is the JSON shape of one region child.
type childView struct {
	Text        string     `json:"text"`
	Class       string     `json:"class,omitempty"`
	CSSClass    string     `json:"css_class,omitempty"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	LastSeenAgo string     `json:"last_seen_ago,omitempty"`
}

// toView converts a stored snapshot into its JSON view, humanizing
// last-seen timestamps relative to now.
func (s *Server) toView(snap store.Snapshot) regionView {
	now := s.now()
	children := make([]childView, len(snap.Children))
	for i, c := range snap.Children {
		cv := childView{Text: c.Text, Class: c.Class, LastSeen: c.LastSeen}
		if c.Class != "" {
			cv.CSSClass = "status-" + c.Class
		}
		if c.LastSeen != nil {
			cv.LastSeenAgo = humanize.RelTime(*c.LastSeen, now, "ago", "from now")
		}
		children[i] = cv
	}
	return regionView{
		ID:        snap.ID,
		Name:      snap.Name,
		Children:  children,
		UpdatedAt: snap.UpdatedAt,
	}
}
