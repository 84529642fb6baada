package entity

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/dimming"
	"github.com/dokzlo13/luxord/internal/luxor"
)

// Light is a dimmable controller group.
type Light struct {
	deps *Deps
	id   int

	mu       sync.Mutex
	lastSeen luxor.Group

	// Intensity set by a successful command, valid until the snapshot
	// generation moves past optimisticGen.
	optimistic    int
	optimisticGen uint64
	hasOptimistic bool
}

// NewLight creates a light for group. The record is kept only as a fallback
// for when the group has left the snapshot.
func NewLight(deps *Deps, group luxor.Group) *Light {
	return &Light{
		deps:     deps,
		id:       group.ID,
		lastSeen: group,
	}
}

// ID returns the group id.
func (l *Light) ID() int {
	return l.id
}

// UniqueID returns the stable entity id.
func (l *Light) UniqueID() string {
	return fmt.Sprintf("LUXOR_LIGHT_%d", l.id)
}

func (l *Light) record() (luxor.Group, bool) {
	g, ok := l.deps.Lights.Get(l.id)

	l.mu.Lock()
	defer l.mu.Unlock()
	if ok {
		l.lastSeen = g
		return g, true
	}
	return l.lastSeen, false
}

// Available reports whether the group is in the latest snapshot.
func (l *Light) Available() bool {
	_, ok := l.record()
	return ok
}

// Name returns the current group name.
func (l *Light) Name() string {
	g, _ := l.record()
	return g.Name
}

// Intensity returns the group intensity (0-100).
func (l *Light) Intensity() int {
	g, _ := l.record()
	gen := l.deps.Lights.Generation()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasOptimistic && gen == l.optimisticGen {
		return l.optimistic
	}
	l.hasOptimistic = false
	return g.Intensity
}

// IsOn reports whether the group is lit.
func (l *Light) IsOn() bool {
	return l.Intensity() > 0
}

// Brightness returns the intensity on the 0-255 scale.
func (l *Light) Brightness() int {
	return dimming.IntensityToBrightness(l.Intensity())
}

// DeviceInfo links the light to its controller.
func (l *Light) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifiers:  []Identifier{{Namespace: Domain + "_light", ID: strconv.Itoa(l.id)}},
		Manufacturer: Manufacturer,
		Name:         l.Name(),
		ViaDevice:    &Identifier{Namespace: Domain, ID: l.deps.Controller},
	}
}

// TurnOn sets the group to brightness (0-255). Out-of-range values are clamped.
func (l *Light) TurnOn(ctx context.Context, brightness int) error {
	intensity := dimming.BrightnessToIntensity(dimming.ClampBrightness(brightness))
	return l.illuminate(ctx, "turn_on", intensity)
}

// TurnOff sets the group intensity to zero.
func (l *Light) TurnOff(ctx context.Context) error {
	return l.illuminate(ctx, "turn_off", 0)
}

// illuminate sends the command and then always asks for a refresh so the
// displayed state converges on the controller's, whether or not it succeeded.
func (l *Light) illuminate(ctx context.Context, command string, intensity int) error {
	if !l.Available() {
		return fmt.Errorf("%s light %d: %w", command, l.id, ErrUnavailable)
	}

	err := l.deps.Groups.IlluminateGroup(ctx, l.id, intensity)
	if err == nil {
		gen := l.deps.Lights.Generation()
		l.mu.Lock()
		l.optimistic = intensity
		l.optimisticGen = gen
		l.hasOptimistic = true
		l.mu.Unlock()

		log.Info().
			Str("controller", l.deps.Controller).
			Int("group", l.id).
			Int("intensity", intensity).
			Msg("Light command sent")
	} else {
		log.Error().
			Err(err).
			Str("controller", l.deps.Controller).
			Int("group", l.id).
			Str("command", command).
			Msg("Light command failed")
	}

	l.deps.publishCommand(l.UniqueID(), command, map[string]interface{}{"intensity": intensity}, err)

	if l.deps.LightRefresher != nil {
		l.deps.LightRefresher.RequestRefresh()
	}

	if err != nil {
		return fmt.Errorf("%s light %d: %w", command, l.id, err)
	}
	return nil
}
