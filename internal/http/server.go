package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/middleware/recovery"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
	appweb "dompet/web"
)

// EntryService is what the handlers need from the service layer.
type EntryService interface {
	Create(ctx context.Context, n core.NewEntry) (core.Entry, error)
	List(ctx context.Context) ([]core.Entry, error)
	State(ctx context.Context) core.StoreState
}

type Server struct {
	http.Server
	templates *template.Template
	entries   EntryService
	loc       *time.Location
	logger    *log.Logger
	tracer    *trace.Middleware

	shutdownOnce sync.Once
}

// Option customises a Server.
type Option func(*Server)

// WithLocation sets the zone used for zone-less datetimes and for rendering.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc EntryService, opts ...Option) *Server {
	s := &Server{
		entries: svc,
		loc:     time.UTC,
		logger:  log.WithComponent(log.ComponentHTTP),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = trace.NewMiddleware(s.logger)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	mux := http.NewServeMux()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	mux.Handle("GET /{$}", headers.Middleware(http.HandlerFunc(s.handleIndex)))
	mux.Handle("POST /ui/transaction", headers.Middleware(http.HandlerFunc(s.handleCreateFromForm)))

	mux.HandleFunc("POST /api/transaction", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transaction", s.handleListTransactions)
	mux.HandleFunc("GET /api/test", s.handleTest)
	mux.HandleFunc("GET /api/transaction/test", handleTransactionTest)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Every other path or method, including a known path with the wrong
	// method, falls through to here.
	mux.HandleFunc("/", handleNotFound)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(recovery.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns the request counters collected so far.
func (s *Server) Metrics() trace.Snapshot {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.entries.State(r.Context()) != core.StateConnected {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store disconnected"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracer.GetMetrics())
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NewErrorResponse("Route not found").Status(http.StatusNotFound).Route(r).Write(w)
}
