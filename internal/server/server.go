// Package server exposes a workspace over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /metrics
//	GET    /workflows
//	GET    /workflows/{id}
//	PUT    /workflows/{id}
//	DELETE /workflows/{id}
//	GET    /workflows/{id}/nodes
//	GET    /workflows/{id}/nodes/{nodeID}
//	GET    /workflows/{id}/query?point=x,y[&tolerance=t]
//	GET    /workflows/{id}/query?bounds=x,y,w,h
//	GET    /workflows/{id}/dot[?format=svg&detailed=true&groups=true]
//
// Document responses carry an ETag that is the fingerprint of the stored
// canonical encoding; GET honours If-None-Match.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/nodegraph/pkg/workspace"
)

// maxBodySize caps uploaded documents.
const maxBodySize = 32 << 20

// Options configures a Server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	Logger *log.Logger
}

// Server serves a workspace.
type Server struct {
	ws     *workspace.Workspace
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New creates a server for ws.
func New(ws *workspace.Workspace, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{ws: ws, opts: opts, logger: opts.Logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/", s.handlePut)
			r.Delete("/", s.handleDelete)
			r.Get("/nodes", s.handleNodes)
			r.Get("/nodes/{nodeID}", s.handleNode)
			r.Get("/query", s.handleQuery)
			r.Get("/dot", s.handleDOT)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
