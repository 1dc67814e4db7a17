package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/banshee-data/vmc-listener/internal/db"
	"github.com/banshee-data/vmc-listener/internal/httputil"
)

func (s *Server) requireSessions(w http.ResponseWriter) bool {
	if s.sessions == nil {
		httputil.ServiceUnavailable(w, "session recording is disabled")
		return false
	}
	return true
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	sessions, err := s.sessions.ListSessions(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}
	httputil.WriteJSONOK(w, sessions)
}

type sessionResponse struct {
	db.Session
	BlendShapes []string `json:"blend_shapes"`
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	id := r.PathValue("id")
	session, err := s.sessions.GetSession(id)
	if errors.Is(err, db.ErrSessionNotFound) {
		httputil.NotFound(w, "session not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	names, err := s.sessions.BlendShapeNames(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	httputil.WriteJSONOK(w, sessionResponse{Session: session, BlendShapes: names})
}

func (s *Server) showBlendShapeSeries(w http.ResponseWriter, r *http.Request) {
	if !s.requireSessions(w) {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		httputil.BadRequest(w, "missing 'name' parameter")
		return
	}
	points, err := s.sessions.BlendShapeSeries(r.PathValue("id"), name)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if points == nil {
		points = []db.BlendShapePoint{}
	}
	httputil.WriteJSONOK(w, points)
}
