package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/luxord/internal/dimming"
	"github.com/dokzlo13/luxord/internal/entity"
	"github.com/dokzlo13/luxord/internal/ledger"
	"github.com/dokzlo13/luxord/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// commandStatus maps a command error to an HTTP status.
func commandStatus(err error) int {
	if errors.Is(err, entity.ErrUnavailable) {
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New(name+" must be an integer"))
		return 0, false
	}
	return v, true
}

func (s *Server) light(w http.ResponseWriter, r *http.Request) (*entity.Light, bool) {
	sess, ok := s.session(w, r)
	if !ok {
		return nil, false
	}
	id, ok := intParam(w, r, "groupID")
	if !ok {
		return nil, false
	}
	l, ok := sess.Light(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("light not found"))
		return nil, false
	}
	return l, true
}

func (s *Server) handleListControllers(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.List()
	out := make([]ControllerView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, controllerView(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetController(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, controllerView(sess))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.RefreshLights()
	sess.RefreshScenes()
	writeJSON(w, http.StatusAccepted, controllerView(sess))
}

func (s *Server) handleListLights(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	lights := sess.Lights()
	out := make([]LightView, 0, len(lights))
	for _, l := range lights {
		out = append(out, lightView(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	l, ok := s.light(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, lightView(l))
}

func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	l, ok := s.light(w, r)
	if !ok {
		return
	}

	brightness := dimming.MaxBrightness
	var req TurnOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Brightness != nil {
		brightness = *req.Brightness
	}

	if err := l.TurnOn(r.Context(), brightness); err != nil {
		writeError(w, commandStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, lightView(l))
}

func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	l, ok := s.light(w, r)
	if !ok {
		return
	}
	if err := l.TurnOff(r.Context()); err != nil {
		writeError(w, commandStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, lightView(l))
}

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	scenes := sess.Scenes()
	out := make([]SceneView, 0, len(scenes))
	for _, sc := range scenes {
		out = append(out, sceneView(sc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, ok := intParam(w, r, "themeID")
	if !ok {
		return
	}
	sc, ok := sess.Scene(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("scene not found"))
		return
	}

	if err := sc.Activate(r.Context()); err != nil {
		writeError(w, commandStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sceneView(sc))
}

// handleEvents returns ledger history: ?controller=<name> narrows to one
// controller, otherwise the last 24h. ?limit defaults to 100.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errors.New("event history disabled"))
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	var entries []*ledger.Entry
	var err error
	if controller := r.URL.Query().Get("controller"); controller != "" {
		entries, err = s.history.GetByController(controller, limit)
	} else {
		now := time.Now()
		entries, err = s.history.GetByTimeRange(now.Add(-24*time.Hour), now, limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
