// Package entity implements the light and scene objects exposed to the host.
// Entities hold only their record id and read everything else from the
// live snapshot, so renames and intensity changes show up without recreation.
package entity

import (
	"context"
	"errors"
	"time"

	"github.com/dokzlo13/luxord/internal/coordinator"
	"github.com/dokzlo13/luxord/internal/eventbus"
	"github.com/dokzlo13/luxord/internal/luxor"
)

const (
	// Domain namespaces device identifiers.
	Domain = "luxor"
	// Manufacturer is reported in device metadata.
	Manufacturer = "FXLuminaire"
)

// ErrUnavailable is returned when commanding an entity whose record is no
// longer present on the controller.
var ErrUnavailable = errors.New("entity unavailable")

// GroupCommander sets group intensity on the controller.
type GroupCommander interface {
	IlluminateGroup(ctx context.Context, groupID, intensity int) error
}

// ThemeCommander triggers themes on the controller.
type ThemeCommander interface {
	IlluminateTheme(ctx context.Context, themeID, onOff int) error
}

// Refresher requests a debounced refresh of a collection.
type Refresher interface {
	RequestRefresh()
}

// Identifier is a (namespace, id) device identifier.
type Identifier struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
}

// DeviceInfo associates an entity with a device in the host registry.
type DeviceInfo struct {
	Identifiers  []Identifier `json:"identifiers"`
	Manufacturer string       `json:"manufacturer,omitempty"`
	Name         string       `json:"name"`
	ViaDevice    *Identifier  `json:"via_device,omitempty"`
}

// ControllerDevice describes the controller itself.
func ControllerDevice(controller string) DeviceInfo {
	return DeviceInfo{
		Identifiers:  []Identifier{{Namespace: Domain, ID: controller}},
		Manufacturer: Manufacturer,
		Name:         controller,
	}
}

// Deps are the collaborators shared by every entity of one controller.
type Deps struct {
	Controller string
	Groups     GroupCommander
	Themes     ThemeCommander
	Lights     *coordinator.Snapshot[int, luxor.Group]
	Scenes     *coordinator.Snapshot[int, luxor.Theme]

	// LightRefresher is asked to refresh after any command that changes group state.
	LightRefresher Refresher
	Events         eventbus.Publisher
}

func (d *Deps) publishCommand(entityID, command string, args map[string]interface{}, err error) {
	if d.Events == nil {
		return
	}
	data := map[string]interface{}{
		"controller": d.Controller,
		"entity":     entityID,
		"command":    command,
		"success":    err == nil,
	}
	for k, v := range args {
		data[k] = v
	}
	if err != nil {
		data["error"] = err.Error()
	}
	d.Events.Publish(eventbus.Event{
		Type: eventbus.EventTypeCommand,
		Time: time.Now(),
		Data: data,
	})
}
