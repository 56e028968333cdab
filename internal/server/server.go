package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shaunagostinho/ins-dash/internal/monitor"
	"github.com/shaunagostinho/ins-dash/internal/poller"
	"github.com/shaunagostinho/ins-dash/internal/render"
)

// StatsReporter is anything that reports poll-loop statistics.
type StatsReporter interface {
	Stats() poller.Stats
}

// Deps are the components the server exposes.
type Deps struct {
	Dashboard *render.Dashboard
	Hub       *Hub
	Monitor   *monitor.Monitor // nil when this process does not acquire
	Loops     []StatsReporter
	Web       fs.FS
}

// Server serves the dashboard page, the WebSocket display and the JSON API.
type Server struct {
	cfg  *Config
	deps Deps
	page *template.Template
}

// New creates a new Server and parses the page template from the web assets.
func New(cfg *Config, deps Deps) (*Server, error) {
	page, err := template.New("index.html").Funcs(pageFuncs).ParseFS(deps.Web, "index.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse page: %w", err)
	}
	if deps.Hub != nil && deps.Dashboard != nil {
		deps.Hub.state = deps.Dashboard.State
	}
	return &Server{cfg: cfg, deps: deps, page: page}, nil
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.deps.Web))))

	if s.deps.Hub != nil {
		mux.Handle("/ws", s.deps.Hub)
	}

	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/data", s.handleData)
	mux.HandleFunc("/api/data/", s.handleUnit)
	mux.HandleFunc("/api/positions", s.handlePositions)
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[server] listening on %s", s.cfg.Server.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// pageData feeds index.html.
type pageData struct {
	Units        []UnitConfig
	Channels     []int
	Constituents []render.Constituent
	Signals      []render.Signal
	System       string
	ConfigJSON   template.JS
}

var pageFuncs = template.FuncMap{
	"slot":      render.Slot,
	"gnss":      render.GNSSSlot,
	"signal":    render.SignalSlot,
	"aiding":    render.AidingSlot,
	"aidingRow": render.AidingRowSlot,
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	cfgJSON, err := s.cfg.ToJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := pageData{
		Units:        s.cfg.Units,
		Channels:     []int{1, 2},
		Constituents: render.Constituents,
		Signals:      render.Signals,
		System:       render.SystemSlot,
		ConfigJSON:   template.JS(cfgJSON),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		log.Printf("[server] render page: %v", err)
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := s.cfg.ToJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

type statusResponse struct {
	Monitoring    bool           `json:"monitoring"`
	UnitCount     int            `json:"unitCount"`
	Passes        uint64         `json:"passes"`
	LastUpdateUTC string         `json:"lastUpdate,omitempty"`
	Renderer      *render.Status `json:"renderer,omitempty"`
	Loops         []poller.Stats `json:"loops"`
	Clients       int            `json:"clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{UnitCount: len(s.cfg.Units), Loops: []poller.Stats{}}
	if m := s.deps.Monitor; m != nil {
		st := m.Status()
		resp.Monitoring = st.Monitoring
		resp.Passes = st.Passes
		resp.LastUpdateUTC = st.LastUpdateUTC
	}
	if s.deps.Dashboard != nil {
		st := s.deps.Dashboard.Status()
		resp.Renderer = &st
	}
	for _, l := range s.deps.Loops {
		resp.Loops = append(resp.Loops, l.Stats())
	}
	if s.deps.Hub != nil {
		resp.Clients = s.deps.Hub.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if !s.requireMonitor(w) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Monitor.Snapshot())
}

func (s *Server) handleUnit(w http.ResponseWriter, r *http.Request) {
	if !s.requireMonitor(w) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/data/")
	rec, ok := s.deps.Monitor.Unit(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown unit"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if !s.requireMonitor(w) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Monitor.Positions(time.Now()))
}

func (s *Server) requireMonitor(w http.ResponseWriter) bool {
	if s.deps.Monitor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "monitoring disabled"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
