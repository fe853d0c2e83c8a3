// Package api serves the notes REST endpoints and the operational routes
// around them.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/trapperkeeper/internal/domain/types"
	"github.com/okian/trapperkeeper/pkg/logger"
)

const (
	notesPath = "/api/v1/notes"
	feedPath  = "/api/v1/feed"

	defaultMaxBodyBytes = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	List(ctx context.Context) (types.Listing, error)
	// CreateOnce stores req. With a non-empty key a repeat returns the
	// first echo and replayed=true instead of storing again.
	CreateOnce(ctx context.Context, key string, req types.CreateNote) (echo types.CreateNote, replayed bool, err error)
	Get(ctx context.Context, id string) (types.NoteWithItems, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, req types.UpdateNote) error
}

// Server wires HTTP routes for the notes API.
type Server struct {
	notes  *NotesHandler
	health *HealthHandler
	stats  *StatsHandler
	feed   http.Handler

	maxBodyBytes int64
	logger       logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxBodyBytes caps request bodies. Larger bodies get 413.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithFeed mounts h, usually a websocket handler, at /api/v1/feed.
func WithFeed(h http.Handler) Option {
	return func(s *Server) {
		s.feed = h
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) (*Server, error) {
	if deps == nil {
		return nil, NewKind("api.new_server", ErrNilDependencies)
	}

	s := &Server{
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger.GetOrNop().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.notes = NewNotesHandler(deps, s.maxBodyBytes, s.logger)
	s.health = NewHealthHandler()
	s.stats = NewStatsHandler(statsProvider)
	return s, nil
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc(notesPath, MetricsMiddleware(s.notes.HandleCollection, "notes"))
	mux.HandleFunc(notesPath+"/", MetricsMiddleware(s.notes.HandleNote, "note"))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.health.MetricsHandler())
	if s.stats != nil {
		mux.HandleFunc("/stats", MetricsMiddleware(s.stats.HandleStats, "stats"))
	}
	if s.feed != nil {
		// Not wrapped: the upgrade needs the raw connection.
		mux.Handle(feedPath, s.feed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMessage writes msg as a bare JSON string, the shape every notes
// endpoint uses for confirmations and errors.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, msg)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}
