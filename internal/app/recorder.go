package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/config"
	"github.com/dokzlo13/luxord/internal/eventbus"
	"github.com/dokzlo13/luxord/internal/ledger"
)

// RecorderService writes bus events to the ledger and prunes old entries.
type RecorderService struct {
	cfg    *config.Config
	ledger *ledger.Ledger
	bus    *eventbus.Bus
}

// NewRecorderService creates a new RecorderService.
func NewRecorderService(cfg *config.Config, l *ledger.Ledger, bus *eventbus.Bus) *RecorderService {
	return &RecorderService{
		cfg:    cfg,
		ledger: l,
		bus:    bus,
	}
}

// Start subscribes to the bus and begins periodic cleanup.
func (s *RecorderService) Start(ctx context.Context) {
	s.bus.SubscribeAll(s.record)
	go s.runLedgerCleanup(ctx)
}

func (s *RecorderService) record(event eventbus.Event) {
	entry, ok := ledgerEntry(event)
	if !ok {
		return
	}
	if err := s.ledger.Append(entry); err != nil {
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to record event")
	}
}

// ledgerEntry maps a bus event to its ledger form. Events with no ledger
// counterpart are skipped.
func ledgerEntry(event eventbus.Event) (ledger.Entry, bool) {
	var t ledger.EventType
	switch event.Type {
	case eventbus.EventTypeControllerReady:
		t = ledger.EventControllerReady
	case eventbus.EventTypeControllerGone:
		t = ledger.EventControllerGone
	case eventbus.EventTypeEntityAdded:
		t = ledger.EventEntityAdded
	case eventbus.EventTypeEntityRemoved:
		t = ledger.EventEntityRemoved
	case eventbus.EventTypeRefreshFailed:
		t = ledger.EventRefreshFailed
	case eventbus.EventTypeCommand:
		t = ledger.EventCommandFailed
		if ok, _ := event.Data["success"].(bool); ok {
			t = ledger.EventCommandCompleted
		}
	default:
		return ledger.Entry{}, false
	}

	controller, _ := event.Data["controller"].(string)
	entity, _ := event.Data["entity"].(string)

	payload := make(map[string]any, len(event.Data))
	for k, v := range event.Data {
		switch k {
		case "controller", "entity", "success":
			continue
		}
		payload[k] = v
	}
	if len(payload) == 0 {
		payload = nil
	}

	return ledger.Entry{
		EventID:    event.ID,
		EventType:  t,
		Timestamp:  event.Time,
		Controller: controller,
		Entity:     entity,
		Payload:    payload,
	}, true
}

// runLedgerCleanup periodically cleans up old ledger entries.
func (s *RecorderService) runLedgerCleanup(ctx context.Context) {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}
