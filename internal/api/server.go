// Package api serves the listener's avatar state, packet statistics and
// recorded sessions over HTTP.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tailscale.com/tsweb"

	"github.com/banshee-data/vmc-listener/internal/db"
	"github.com/banshee-data/vmc-listener/internal/httputil"
	"github.com/banshee-data/vmc-listener/internal/monitoring"
	"github.com/banshee-data/vmc-listener/internal/version"
	"github.com/banshee-data/vmc-listener/internal/vmc"
)

const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// StateSource is satisfied by *vmc.State.
type StateSource interface {
	Snapshot() vmc.Snapshot
}

// StatsSource is satisfied by *monitoring.PacketStats.
type StatsSource interface {
	Totals() (monitoring.StatsSnapshot, time.Time)
}

// SessionStore is the read side of the session recorder.
type SessionStore interface {
	ListSessions(limit int) ([]db.Session, error)
	GetSession(id string) (db.Session, error)
	BlendShapeNames(sessionID string) ([]string, error)
	BlendShapeSeries(sessionID, name string) ([]db.BlendShapePoint, error)
}

// Config wires the server to its data sources. Sessions and Gatherer are
// optional.
type Config struct {
	State    StateSource
	Stats    StatsSource
	Sessions SessionStore
	Gatherer prometheus.Gatherer
}

type Server struct {
	state    StateSource
	stats    StatsSource
	sessions SessionStore
	gatherer prometheus.Gatherer
}

func NewServer(cfg Config) *Server {
	return &Server{
		state:    cfg.State,
		stats:    cfg.Stats,
		sessions: cfg.Sessions,
		gatherer: cfg.Gatherer,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration of each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns a mux with the JSON API, /metrics and the debug chart
// registered. Callers may attach further debug routes to the same mux.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.showState)
	mux.HandleFunc("GET /api/stats", s.showStats)
	mux.HandleFunc("GET /api/version", s.showVersion)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.showSession)
	mux.HandleFunc("GET /api/sessions/{id}/blendshapes", s.showBlendShapeSeries)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	debug := tsweb.Debugger(mux)
	debug.Handle("blendshapes", "Chart of recorded blend-shape weights (session_id, name)", http.HandlerFunc(s.handleBlendShapeChart))
	return mux
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if s.state == nil {
		httputil.ServiceUnavailable(w, "no state store configured")
		return
	}
	httputil.WriteJSONOK(w, s.state.Snapshot())
}

type statsResponse struct {
	Since   time.Time                `json:"since"`
	Uptime  string                   `json:"uptime"`
	Totals  monitoring.StatsSnapshot `json:"totals"`
	Version string                   `json:"version"`
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		httputil.ServiceUnavailable(w, "no stats collector configured")
		return
	}
	totals, since := s.stats.Totals()
	httputil.WriteJSONOK(w, statsResponse{
		Since:   since,
		Uptime:  time.Since(since).Truncate(time.Second).String(),
		Totals:  totals,
		Version: version.Version,
	})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
