package entity

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/luxor"
)

// Scene is a controller theme. Scenes are stateless triggers.
type Scene struct {
	deps     *Deps
	id       int
	uniqueID string

	mu       sync.Mutex
	lastSeen luxor.Theme
}

// NewScene creates a scene for theme.
func NewScene(deps *Deps, theme luxor.Theme) *Scene {
	return &Scene{
		deps:     deps,
		id:       theme.ID,
		uniqueID: fmt.Sprintf("%s%d", theme.Name, theme.ID),
		lastSeen: theme,
	}
}

// ID returns the theme index.
func (s *Scene) ID() int {
	return s.id
}

// UniqueID returns the id assigned at creation; renames do not change it.
func (s *Scene) UniqueID() string {
	return s.uniqueID
}

func (s *Scene) record() (luxor.Theme, bool) {
	t, ok := s.deps.Scenes.Get(s.id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.lastSeen = t
		return t, true
	}
	return s.lastSeen, false
}

// Available reports whether the theme is in the latest snapshot.
func (s *Scene) Available() bool {
	_, ok := s.record()
	return ok
}

// Name returns the current theme name.
func (s *Scene) Name() string {
	t, _ := s.record()
	return t.Name
}

// DeviceInfo places the scene on the controller device.
func (s *Scene) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifiers: []Identifier{{Namespace: Domain, ID: s.deps.Controller}},
		Name:        s.deps.Controller,
	}
}

// Activate triggers the theme. A theme changes group intensities, so the
// lights collection is refreshed afterwards.
func (s *Scene) Activate(ctx context.Context) error {
	if !s.Available() {
		return fmt.Errorf("activate scene %d: %w", s.id, ErrUnavailable)
	}

	err := s.deps.Themes.IlluminateTheme(ctx, s.id, 1)
	if err != nil {
		log.Error().
			Err(err).
			Str("controller", s.deps.Controller).
			Int("theme", s.id).
			Msg("Scene activation failed")
	} else {
		log.Info().
			Str("controller", s.deps.Controller).
			Int("theme", s.id).
			Str("name", s.Name()).
			Msg("Scene activated")
	}

	s.deps.publishCommand(s.UniqueID(), "activate", map[string]interface{}{"theme": s.id}, err)

	if s.deps.LightRefresher != nil {
		s.deps.LightRefresher.RequestRefresh()
	}

	if err != nil {
		return fmt.Errorf("activate scene %d: %w", s.id, err)
	}
	return nil
}
