package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/config"
	"github.com/dokzlo13/luxord/internal/eventbus"
	"github.com/dokzlo13/luxord/internal/luxor"
	"github.com/dokzlo13/luxord/internal/session"
)

// Dialer builds the remote handle for one configured controller.
type Dialer func(cc config.ControllerConfig) session.Remote

// ControllerService brings every configured controller online, retrying
// setup with exponential backoff while a controller is not ready.
type ControllerService struct {
	cfg      *config.Config
	sessions *session.Registry
	events   eventbus.Publisher
	dial     Dialer

	wg sync.WaitGroup
}

// NewControllerService creates a ControllerService. A nil dial uses the
// HTTP client.
func NewControllerService(cfg *config.Config, sessions *session.Registry, events eventbus.Publisher, dial Dialer) *ControllerService {
	if dial == nil {
		dial = func(cc config.ControllerConfig) session.Remote {
			return luxor.NewClient(cc.Host, cc.Timeout.Duration(), cfg.Client.RateLimitRPS)
		}
	}
	return &ControllerService{
		cfg:      cfg,
		sessions: sessions,
		events:   events,
		dial:     dial,
	}
}

// Start launches one setup loop per configured controller.
func (s *ControllerService) Start(ctx context.Context) {
	for _, cc := range s.cfg.Controllers {
		s.wg.Add(1)
		go func(cc config.ControllerConfig) {
			defer s.wg.Done()
			s.run(ctx, uuid.NewString(), cc)
		}(cc)
	}
}

// run calls session.Setup until it succeeds or ctx is cancelled.
func (s *ControllerService) run(ctx context.Context, id string, cc config.ControllerConfig) {
	minBackoff := s.cfg.Setup.MinRetryBackoff.Duration()
	maxBackoff := s.cfg.Setup.MaxRetryBackoff.Duration()
	currentBackoff := minBackoff
	attempt := 0

	opts := session.Options{
		Address:       cc.Host,
		GroupInterval: cc.GroupInterval.Duration(),
		ThemeInterval: cc.ThemeInterval.Duration(),
	}

	for {
		attempt++
		sess, err := session.Setup(ctx, id, s.dial(cc), opts, s.events)
		if err == nil {
			if ctx.Err() != nil {
				sess.Close()
				return
			}
			s.sessions.Add(sess)
			return
		}
		if ctx.Err() != nil {
			return
		}

		evt := log.Warn()
		if !errors.Is(err, session.ErrNotReady) {
			evt = log.Error()
		}
		evt.Err(err).
			Str("host", cc.Host).
			Int("attempt", attempt).
			Dur("backoff", currentBackoff).
			Msg("Controller not ready, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(currentBackoff):
		}

		nextBackoff := time.Duration(float64(currentBackoff) * s.cfg.Setup.RetryMultiplier)
		if nextBackoff > maxBackoff {
			nextBackoff = maxBackoff
		}
		currentBackoff = nextBackoff
	}
}

// Ready reports whether every configured controller has a session.
func (s *ControllerService) Ready() bool {
	return s.sessions.Len() == len(s.cfg.Controllers)
}

// Wait blocks until every setup loop has returned.
func (s *ControllerService) Wait() {
	s.wg.Wait()
}

// Close waits for pending setups and unloads every session.
func (s *ControllerService) Close() {
	s.wg.Wait()
	s.sessions.CloseAll()
}
