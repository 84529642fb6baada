// Package luxortest provides an in-process fake Luxor controller for tests.
package luxortest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Command is a recorded illuminate call.
type Command struct {
	Method string
	ID     int
	Value  int
}

// Server is a fake controller backed by httptest.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	name      string
	status    map[string]int
	down      bool
	groups    []map[string]any
	themes    []map[string]any
	omitLists bool
	commands  []Command
	calls     map[string]int
}

// NewServer starts a fake controller reporting the given name.
func NewServer(name string) *Server {
	s := &Server{
		name:   name,
		status: make(map[string]int),
		calls:  make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Address returns host:port suitable for luxor.NewClient.
func (s *Server) Address() string {
	return strings.TrimPrefix(s.URL, "http://")
}

// SetGroup adds or replaces a group.
func (s *Server) SetGroup(id int, name string, intensity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g["Grp"] == id {
			g["Name"] = name
			g["Inten"] = intensity
			return
		}
	}
	s.groups = append(s.groups, map[string]any{"Grp": id, "Name": name, "Inten": intensity, "Colr": 0})
}

// RemoveGroup deletes a group.
func (s *Server) RemoveGroup(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.groups {
		if g["Grp"] == id {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			return
		}
	}
}

// AddRawGroup appends an arbitrary group entry, malformed ones included.
func (s *Server) AddRawGroup(entry map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, entry)
}

// SetTheme adds or replaces a theme.
func (s *Server) SetTheme(id int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.themes {
		if t["ThemeIndex"] == id {
			t["Name"] = name
			return
		}
	}
	s.themes = append(s.themes, map[string]any{"ThemeIndex": id, "Name": name, "OnOff": 0})
}

// RemoveTheme deletes a theme.
func (s *Server) RemoveTheme(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.themes {
		if t["ThemeIndex"] == id {
			s.themes = append(s.themes[:i], s.themes[i+1:]...)
			return
		}
	}
}

// SetStatus makes method respond with a nonzero status.
func (s *Server) SetStatus(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[method] = status
}

// SetDown makes every call fail with HTTP 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// SetOmitLists makes list responses leave out the list field.
func (s *Server) SetOmitLists(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitLists = omit
}

// Commands returns the illuminate calls received so far.
func (s *Server) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// Calls returns how many times method was called.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".json")

	var body map[string]int
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[method]++
	if s.down {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{"Status": s.status[method]}
	switch method {
	case "ControllerName":
		resp["Controller"] = s.name
	case "GroupListGet":
		if !s.omitLists {
			list := make([]map[string]any, 0, len(s.groups))
			list = append(list, s.groups...)
			resp["GroupList"] = list
		}
	case "ThemeListGet":
		if !s.omitLists {
			list := make([]map[string]any, 0, len(s.themes))
			list = append(list, s.themes...)
			resp["ThemeList"] = list
		}
	case "IlluminateGroup":
		if s.status[method] == 0 {
			s.commands = append(s.commands, Command{Method: method, ID: body["GroupNumber"], Value: body["Intensity"]})
			for _, g := range s.groups {
				if g["Grp"] == body["GroupNumber"] {
					g["Inten"] = body["Intensity"]
				}
			}
		}
	case "IlluminateTheme":
		if s.status[method] == 0 {
			s.commands = append(s.commands, Command{Method: method, ID: body["ThemeIndex"], Value: body["OnOff"]})
		}
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
