package luxor

import "github.com/rs/zerolog/log"

// Group is a dimmable group of lights on the controller.
type Group struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Intensity int    `json:"intensity"`
	Color     int    `json:"color"`
}

// Theme is a named preset that can be triggered on the controller.
type Theme struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	OnOff int    `json:"on_off"`
}

type statusResponse struct {
	Status    int    `json:"Status"`
	StatusStr string `json:"StatusStr,omitempty"`
}

type controllerNameResponse struct {
	statusResponse
	Controller string `json:"Controller"`
}

// wireGroup mirrors the controller payload. Pointers distinguish absent fields.
type wireGroup struct {
	Grp   *int   `json:"Grp"`
	Name  string `json:"Name"`
	Inten *int   `json:"Inten"`
	Colr  int    `json:"Colr"`
}

type groupListResponse struct {
	statusResponse
	GroupList []*wireGroup `json:"GroupList"`
}

type wireTheme struct {
	ThemeIndex *int   `json:"ThemeIndex"`
	Name       string `json:"Name"`
	OnOff      int    `json:"OnOff"`
}

type themeListResponse struct {
	statusResponse
	ThemeList []*wireTheme `json:"ThemeList"`
}

type illuminateGroupRequest struct {
	GroupNumber int `json:"GroupNumber"`
	Intensity   int `json:"Intensity"`
}

type illuminateThemeRequest struct {
	ThemeIndex int `json:"ThemeIndex"`
	OnOff      int `json:"OnOff"`
}

// groups converts wire entries to Groups, dropping malformed ones.
// A nil list stays nil so callers can tell "absent" from "empty".
func groups(list []*wireGroup) []Group {
	if list == nil {
		return nil
	}
	out := make([]Group, 0, len(list))
	for _, g := range list {
		if g == nil || g.Grp == nil || g.Inten == nil || *g.Inten < 0 || *g.Inten > 100 {
			log.Warn().Interface("entry", g).Msg("Dropping malformed group entry")
			continue
		}
		out = append(out, Group{
			ID:        *g.Grp,
			Name:      g.Name,
			Intensity: *g.Inten,
			Color:     g.Colr,
		})
	}
	return out
}

func themes(list []*wireTheme) []Theme {
	if list == nil {
		return nil
	}
	out := make([]Theme, 0, len(list))
	for _, t := range list {
		if t == nil || t.ThemeIndex == nil {
			log.Warn().Interface("entry", t).Msg("Dropping malformed theme entry")
			continue
		}
		out = append(out, Theme{
			ID:    *t.ThemeIndex,
			Name:  t.Name,
			OnOff: t.OnOff,
		})
	}
	return out
}
