package api

import (
	"github.com/dokzlo13/luxord/internal/entity"
	"github.com/dokzlo13/luxord/internal/session"
)

// ControllerView is the JSON form of a session.
type ControllerView struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Address string            `json:"address"`
	Device  entity.DeviceInfo `json:"device"`
	Status  session.Status    `json:"status"`
	Lights  int               `json:"lights"`
	Scenes  int               `json:"scenes"`
}

// LightView is the JSON form of a light.
type LightView struct {
	ID         int               `json:"id"`
	UniqueID   string            `json:"unique_id"`
	Name       string            `json:"name"`
	IsOn       bool              `json:"is_on"`
	Brightness int               `json:"brightness"`
	Intensity  int               `json:"intensity"`
	Available  bool              `json:"available"`
	Device     entity.DeviceInfo `json:"device"`
}

// SceneView is the JSON form of a scene.
type SceneView struct {
	ID        int               `json:"id"`
	UniqueID  string            `json:"unique_id"`
	Name      string            `json:"name"`
	Available bool              `json:"available"`
	Device    entity.DeviceInfo `json:"device"`
}

// TurnOnRequest is the optional body of turn_on.
type TurnOnRequest struct {
	Brightness *int `json:"brightness,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func controllerView(s *session.Session) ControllerView {
	return ControllerView{
		ID:      s.ID(),
		Name:    s.Name(),
		Address: s.Address(),
		Device:  s.Device(),
		Status:  s.Status(),
		Lights:  len(s.Lights()),
		Scenes:  len(s.Scenes()),
	}
}

func lightView(l *entity.Light) LightView {
	return LightView{
		ID:         l.ID(),
		UniqueID:   l.UniqueID(),
		Name:       l.Name(),
		IsOn:       l.IsOn(),
		Brightness: l.Brightness(),
		Intensity:  l.Intensity(),
		Available:  l.Available(),
		Device:     l.DeviceInfo(),
	}
}

func sceneView(sc *entity.Scene) SceneView {
	return SceneView{
		ID:        sc.ID(),
		UniqueID:  sc.UniqueID(),
		Name:      sc.Name(),
		Available: sc.Available(),
		Device:    sc.DeviceInfo(),
	}
}
