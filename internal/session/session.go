// Package session ties one Luxor controller to its two coordinators and
// entity reconcilers.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/coordinator"
	"github.com/dokzlo13/luxord/internal/entity"
	"github.com/dokzlo13/luxord/internal/eventbus"
	"github.com/dokzlo13/luxord/internal/luxor"
	"github.com/dokzlo13/luxord/internal/reconcile"
)

// ErrNotReady is returned by Setup when the controller could not be reached
// or refused the identity probe. The caller may retry later.
var ErrNotReady = coordinator.ErrNotReady

// Remote is the controller API a session drives.
type Remote interface {
	ControllerName(ctx context.Context) (string, error)
	ListGroups(ctx context.Context) ([]luxor.Group, error)
	ListThemes(ctx context.Context) ([]luxor.Theme, error)
	IlluminateGroup(ctx context.Context, groupID, intensity int) error
	IlluminateTheme(ctx context.Context, themeID, onOff int) error
	Close() error
}

// Options configures polling for a session.
type Options struct {
	Address       string
	GroupInterval time.Duration
	ThemeInterval time.Duration
	Cooldown      time.Duration // default coordinator.DefaultCooldown
}

// Status summarizes the health of both collections.
type Status struct {
	LightsOK          bool      `json:"lights_ok"`
	ScenesOK          bool      `json:"scenes_ok"`
	LightsError       string    `json:"lights_error,omitempty"`
	ScenesError       string    `json:"scenes_error,omitempty"`
	LightsRefreshedAt time.Time `json:"lights_refreshed_at"`
	ScenesRefreshedAt time.Time `json:"scenes_refreshed_at"`
}

// Session is the per-controller root object. It owns the remote handle.
type Session struct {
	id      string
	name    string
	address string
	remote  Remote
	events  eventbus.Publisher

	lightCoord *coordinator.Coordinator[int, luxor.Group]
	sceneCoord *coordinator.Coordinator[int, luxor.Theme]
	lightRec   *reconcile.Reconciler[int, luxor.Group, *entity.Light]
	sceneRec   *reconcile.Reconciler[int, luxor.Theme, *entity.Scene]

	unlisten  []func()
	closeOnce sync.Once
}

// Setup probes the controller, performs the first fetch of both collections
// and materializes their entities. On any failure nothing is left running
// and remote is closed.
func Setup(ctx context.Context, id string, remote Remote, opts Options, events eventbus.Publisher) (*Session, error) {
	name, err := remote.ControllerName(ctx)
	if err != nil {
		remote.Close()
		return nil, fmt.Errorf("%w: identity probe %s: %w", ErrNotReady, opts.Address, err)
	}

	s := &Session{
		id:      id,
		name:    name,
		address: opts.Address,
		remote:  remote,
		events:  events,
	}

	lights := coordinator.NewSnapshot[int, luxor.Group]()
	scenes := coordinator.NewSnapshot[int, luxor.Theme]()

	s.lightCoord = coordinator.New(lights, s.fetchLights, coordinator.Options{
		Name:      fmt.Sprintf("%s_%s", entity.Domain, reconcile.KindLight),
		Interval:  opts.GroupInterval,
		Cooldown:  opts.Cooldown,
		OnFailure: s.refreshFailed(reconcile.KindLight),
	})
	s.sceneCoord = coordinator.New(scenes, s.fetchScenes, coordinator.Options{
		Name:      fmt.Sprintf("%s_%s", entity.Domain, reconcile.KindScene),
		Interval:  opts.ThemeInterval,
		Cooldown:  opts.Cooldown,
		OnFailure: s.refreshFailed(reconcile.KindScene),
	})

	if err := s.lightCoord.Start(ctx); err != nil {
		s.lightCoord.Stop()
		remote.Close()
		return nil, err
	}
	if err := s.sceneCoord.Start(ctx); err != nil {
		s.lightCoord.Stop()
		s.sceneCoord.Stop()
		remote.Close()
		return nil, err
	}

	deps := &entity.Deps{
		Controller:     name,
		Groups:         remote,
		Themes:         remote,
		Lights:         lights,
		Scenes:         scenes,
		LightRefresher: s.lightCoord,
		Events:         events,
	}

	s.lightRec = reconcile.New(reconcile.KindLight, lights, func(_ int, g luxor.Group) *entity.Light {
		return entity.NewLight(deps, g)
	}, newEventHost[*entity.Light](s))
	s.sceneRec = reconcile.New(reconcile.KindScene, scenes, func(_ int, t luxor.Theme) *entity.Scene {
		return entity.NewScene(deps, t)
	}, newEventHost[*entity.Scene](s))

	s.unlisten = append(s.unlisten,
		s.lightCoord.AddListener(s.lightRec.Reconcile),
		s.sceneCoord.AddListener(s.sceneRec.Reconcile),
	)
	s.lightRec.Reconcile()
	s.sceneRec.Reconcile()

	s.publish(eventbus.EventTypeControllerReady, map[string]interface{}{
		"address": s.address,
		"device":  s.Device(),
	})

	log.Info().
		Str("session", id).
		Str("controller", name).
		Str("address", opts.Address).
		Int("lights", lights.Len()).
		Int("scenes", scenes.Len()).
		Msg("Controller ready")

	return s, nil
}

func (s *Session) fetchLights(ctx context.Context) (map[int]luxor.Group, error) {
	list, err := s.remote.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	return index(list, func(g luxor.Group) int { return g.ID }), nil
}

func (s *Session) fetchScenes(ctx context.Context) (map[int]luxor.Theme, error) {
	list, err := s.remote.ListThemes(ctx)
	if err != nil {
		return nil, err
	}
	return index(list, func(t luxor.Theme) int { return t.ID }), nil
}

// index keys list by id. A nil list stays nil ("no update").
func index[V any](list []V, key func(V) int) map[int]V {
	if list == nil {
		return nil
	}
	out := make(map[int]V, len(list))
	for _, v := range list {
		out[key(v)] = v
	}
	return out
}

func (s *Session) refreshFailed(kind reconcile.Kind) func(error) {
	return func(err error) {
		s.publish(eventbus.EventTypeRefreshFailed, map[string]interface{}{
			"kind":  string(kind),
			"error": err.Error(),
		})
	}
}

func (s *Session) publish(t eventbus.EventType, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	data["session"] = s.id
	data["controller"] = s.name
	s.events.Publish(eventbus.Event{Type: t, Data: data})
}

// Close stops polling, removes every entity through the host hooks and
// releases the remote handle.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		for _, fn := range s.unlisten {
			fn()
		}
		s.lightCoord.Stop()
		s.sceneCoord.Stop()
		s.lightRec.Clear()
		s.sceneRec.Clear()
		s.remote.Close()

		s.publish(eventbus.EventTypeControllerGone, map[string]interface{}{"address": s.address})
		log.Info().Str("session", s.id).Str("controller", s.name).Msg("Controller unloaded")
	})
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Name returns the controller name reported at setup.
func (s *Session) Name() string { return s.name }

// Address returns the controller address.
func (s *Session) Address() string { return s.address }

// Device describes the controller for the host device registry.
func (s *Session) Device() entity.DeviceInfo {
	return entity.ControllerDevice(s.name)
}

// Status reports the failure flags of both coordinators.
func (s *Session) Status() Status {
	st := Status{
		LightsOK:          s.lightCoord.LastUpdateSuccess(),
		ScenesOK:          s.sceneCoord.LastUpdateSuccess(),
		LightsRefreshedAt: s.lightCoord.LastRefresh(),
		ScenesRefreshedAt: s.sceneCoord.LastRefresh(),
	}
	if err := s.lightCoord.LastError(); err != nil {
		st.LightsError = err.Error()
	}
	if err := s.sceneCoord.LastError(); err != nil {
		st.ScenesError = err.Error()
	}
	return st
}

// Lights returns the materialized lights ordered by group id.
func (s *Session) Lights() []*entity.Light {
	return sorted(s.lightRec.Entities())
}

// Light returns the light for a group id.
func (s *Session) Light(id int) (*entity.Light, bool) {
	return s.lightRec.Get(id)
}

// Scenes returns the materialized scenes ordered by theme index.
func (s *Session) Scenes() []*entity.Scene {
	return sorted(s.sceneRec.Entities())
}

// Scene returns the scene for a theme index.
func (s *Session) Scene(id int) (*entity.Scene, bool) {
	return s.sceneRec.Get(id)
}

// RefreshLights requests a debounced refresh of the lights collection.
func (s *Session) RefreshLights() { s.lightCoord.RequestRefresh() }

// RefreshScenes requests a debounced refresh of the scenes collection.
func (s *Session) RefreshScenes() { s.sceneCoord.RequestRefresh() }

// Wait blocks until pending entity removals have finished.
func (s *Session) Wait() {
	s.lightRec.Wait()
	s.sceneRec.Wait()
}

func sorted[E any](m map[int]E) []E {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]E, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
