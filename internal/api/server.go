// Package api exposes controllers, their lights and scenes, and commands
// over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/ledger"
	"github.com/dokzlo13/luxord/internal/session"
)

// History is the read side of the event ledger.
type History interface {
	GetByController(controller string, limit int) ([]*ledger.Entry, error)
	GetByTimeRange(start, end time.Time, limit int) ([]*ledger.Entry, error)
}

// Server serves the host API.
type Server struct {
	addr       string
	sessions   *session.Registry
	history    History
	ready      func() bool
	httpServer *http.Server
}

// NewServer creates a new API server. ready reports whether every configured
// controller has a live session; history may be nil.
func NewServer(addr string, sessions *session.Registry, history History, ready func() bool) *Server {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Server{
		addr:     addr,
		sessions: sessions,
		history:  history,
		ready:    ready,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/events", s.handleEvents)

	r.Route("/controllers", func(r chi.Router) {
		r.Get("/", s.handleListControllers)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetController)
			r.Post("/refresh", s.handleRefresh)

			r.Get("/lights", s.handleListLights)
			r.Get("/lights/{groupID}", s.handleGetLight)
			r.Post("/lights/{groupID}/turn_on", s.handleTurnOn)
			r.Post("/lights/{groupID}/turn_off", s.handleTurnOff)

			r.Get("/scenes", s.handleListScenes)
			r.Post("/scenes/{themeID}/activate", s.handleActivate)
		})
	})

	return r
}

// Run starts the server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		evt := log.Debug()
		if status >= 400 {
			evt = log.Warn()
		}
		if status >= 500 {
			evt = log.Error()
		}
		evt.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
