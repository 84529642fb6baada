package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/api"
	"github.com/dokzlo13/luxord/internal/config"
	"github.com/dokzlo13/luxord/internal/ledger"
	"github.com/dokzlo13/luxord/internal/session"
)

// APIService wraps the HTTP API server.
type APIService struct {
	cfg    *config.Config
	server *api.Server
}

// NewAPIService creates a new APIService.
func NewAPIService(cfg *config.Config, sessions *session.Registry, l *ledger.Ledger, ready func() bool) *APIService {
	return &APIService{
		cfg:    cfg,
		server: api.NewServer(cfg.API.Addr(), sessions, l, ready),
	}
}

// Start begins the API server if enabled. A listen failure is fatal.
func (s *APIService) Start(ctx context.Context, onFatalError func(error)) {
	if !s.cfg.API.Enabled {
		log.Debug().Msg("API server disabled")
		return
	}

	go func() {
		if err := s.server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			log.Error().Err(err).Msg("API server error")
			if onFatalError != nil {
				onFatalError(err)
			}
		}
	}()
}
