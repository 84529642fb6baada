package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dokzlo13/luxord/internal/config"
	"github.com/dokzlo13/luxord/internal/db"
	"github.com/dokzlo13/luxord/internal/eventbus"
	"github.com/dokzlo13/luxord/internal/ledger"
	"github.com/dokzlo13/luxord/internal/luxor/luxortest"
	"github.com/dokzlo13/luxord/internal/session"
)

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func testConfig(hosts ...string) *config.Config {
	cfg := &config.Config{
		Client: config.ClientConfig{RateLimitRPS: 100},
		Setup: config.SetupConfig{
			MinRetryBackoff: config.Duration(10 * time.Millisecond),
			MaxRetryBackoff: config.Duration(40 * time.Millisecond),
			RetryMultiplier: 2,
		},
		Ledger: config.LedgerConfig{
			CleanupInterval: config.Duration(time.Hour),
			RetentionDays:   30,
		},
		ShutdownTimeout: config.Duration(time.Second),
	}
	for _, h := range hosts {
		cfg.Controllers = append(cfg.Controllers, config.ControllerConfig{
			Host:          h,
			GroupInterval: config.Duration(time.Hour),
			ThemeInterval: config.Duration(time.Hour),
			Timeout:       config.Duration(time.Second),
		})
	}
	return cfg
}

func TestControllerServiceRetriesUntilReady(t *testing.T) {
	srv := luxortest.NewServer("lxzdc-yard")
	defer srv.Close()
	srv.SetGroup(1, "Path", 40)
	srv.SetDown(true)

	sessions := session.NewRegistry()
	svc := NewControllerService(testConfig(srv.Address()), sessions, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Close()

	eventually(t, func() bool { return srv.Calls("ControllerName") >= 2 }, "setup was not retried")
	if svc.Ready() {
		t.Fatal("Ready() = true while controller is down")
	}

	srv.SetDown(false)
	eventually(t, svc.Ready, "controller never became ready")

	list := sessions.List()
	if len(list) != 1 {
		t.Fatalf("sessions = %d, want 1", len(list))
	}
	if list[0].Name() != "lxzdc-yard" {
		t.Errorf("Name() = %q", list[0].Name())
	}
	if _, ok := list[0].Light(1); !ok {
		t.Error("light 1 not materialized")
	}
}

func TestControllerServiceStopsOnCancel(t *testing.T) {
	srv := luxortest.NewServer("lxzdc-yard")
	defer srv.Close()
	srv.SetDown(true)

	sessions := session.NewRegistry()
	svc := NewControllerService(testConfig(srv.Address()), sessions, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	eventually(t, func() bool { return srv.Calls("ControllerName") >= 1 }, "setup never attempted")
	cancel()

	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("setup loop did not stop after cancel")
	}
	if sessions.Len() != 0 {
		t.Errorf("sessions = %d, want 0", sessions.Len())
	}
}

func TestLedgerEntry(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name       string
		event      eventbus.Event
		wantOK     bool
		wantType   ledger.EventType
		wantEntity string
	}{
		{
			name: "command ok",
			event: eventbus.Event{ID: "1", Type: eventbus.EventTypeCommand, Time: now, Data: map[string]interface{}{
				"controller": "yard", "entity": "LUXOR_LIGHT_1", "command": "turn_on", "success": true,
			}},
			wantOK: true, wantType: ledger.EventCommandCompleted, wantEntity: "LUXOR_LIGHT_1",
		},
		{
			name: "command failed",
			event: eventbus.Event{ID: "2", Type: eventbus.EventTypeCommand, Time: now, Data: map[string]interface{}{
				"controller": "yard", "entity": "LUXOR_LIGHT_1", "command": "turn_on", "success": false, "error": "boom",
			}},
			wantOK: true, wantType: ledger.EventCommandFailed, wantEntity: "LUXOR_LIGHT_1",
		},
		{
			name: "refresh failed",
			event: eventbus.Event{ID: "3", Type: eventbus.EventTypeRefreshFailed, Time: now, Data: map[string]interface{}{
				"controller": "yard", "kind": "light", "error": "timeout",
			}},
			wantOK: true, wantType: ledger.EventRefreshFailed,
		},
		{
			name:   "unknown type",
			event:  eventbus.Event{ID: "4", Type: "other", Time: now},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ledgerEntry(tt.event)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.EventType != tt.wantType {
				t.Errorf("EventType = %q, want %q", got.EventType, tt.wantType)
			}
			if got.Entity != tt.wantEntity {
				t.Errorf("Entity = %q, want %q", got.Entity, tt.wantEntity)
			}
			if got.Controller != "yard" {
				t.Errorf("Controller = %q, want yard", got.Controller)
			}
			if got.EventID != tt.event.ID {
				t.Errorf("EventID = %q, want %q", got.EventID, tt.event.ID)
			}
			if _, leaked := got.Payload["success"]; leaked {
				t.Error("success flag copied into payload")
			}
		})
	}
}

func TestRecorderWritesLedger(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "app.sqlite"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	defer database.Close()

	l := ledger.New(database.DB)
	bus := eventbus.New()
	defer bus.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	NewRecorderService(testConfig(), l, bus).Start(ctx)

	bus.Publish(eventbus.Event{Type: eventbus.EventTypeCommand, Data: map[string]interface{}{
		"controller": "yard", "entity": "LUXOR_LIGHT_3", "command": "turn_off", "success": true, "group": 3,
	}})

	var entries []*ledger.Entry
	eventually(t, func() bool {
		entries, err = l.GetByController("yard", 10)
		return err == nil && len(entries) == 1
	}, "command not recorded")

	if entries[0].EventType != ledger.EventCommandCompleted {
		t.Errorf("EventType = %q", entries[0].EventType)
	}
	if entries[0].Payload["command"] != "turn_off" {
		t.Errorf("Payload = %+v", entries[0].Payload)
	}
}
