package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/config"
	"github.com/dokzlo13/luxord/internal/db"
	"github.com/dokzlo13/luxord/internal/eventbus"
	"github.com/dokzlo13/luxord/internal/ledger"
	"github.com/dokzlo13/luxord/internal/session"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB       *db.DB
	Ledger   *ledger.Ledger
	Bus      *eventbus.Bus
	Sessions *session.Registry

	// High-level services
	Recorder    *RecorderService
	Controllers *ControllerService
	API         *APIService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.Ledger = ledger.New(database.DB)

	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.Sessions = session.NewRegistry()

	s.Recorder = NewRecorderService(cfg, s.Ledger, s.Bus)
	s.Controllers = NewControllerService(cfg, s.Sessions, s.Bus, nil)
	s.API = NewAPIService(cfg, s.Sessions, s.Ledger, s.Controllers.Ready)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a service cannot continue.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// The recorder subscribes first so controller_ready events are kept.
	s.Recorder.Start(ctx)
	s.Controllers.Start(ctx)
	s.API.Start(ctx, onFatalError)
	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources. Sessions go first so their final events
// still reach the ledger before the bus drains.
func (s *Services) Close() {
	if s.Controllers != nil {
		s.Controllers.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
}
