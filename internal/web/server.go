// Package web provides the HTTP dashboard for the autoclave monitor.
package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/autoclave-monitor/internal/assistant"
	"github.com/sweeney/autoclave-monitor/internal/metrics"
	"github.com/sweeney/autoclave-monitor/internal/monitor"
	"github.com/sweeney/autoclave-monitor/internal/status"
)

// Controller accepts control commands for the monitor loop.
type Controller interface {
	Submit(cmd monitor.Command) error
}

// Asker answers chat questions.
type Asker interface {
	Ask(ctx context.Context, message string, live assistant.Context, history []assistant.Message) (string, error)
}

// Options configures a Server. Only Tracker is required.
type Options struct {
	Tracker   *status.Tracker
	Control   Controller
	Assistant Asker
	// FeedURL is the ingestion service base URL relayed by /api/sensors.
	FeedURL    string
	HTTPClient *http.Client
	Metrics    *metrics.Collectors
	Logger     logrus.FieldLogger
	AccessLog  io.Writer
}

// Server serves the dashboard, JSON API and websocket feed.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	control    Controller
	assistant  Asker
	feedURL    string
	client     *http.Client
	metrics    *metrics.Collectors
	log        logrus.FieldLogger
	hub        *hub
	done       chan struct{}
}

// New creates a Server that reads state from opts.Tracker. It starts the
// websocket broadcaster immediately; call Shutdown to stop it.
func New(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	s := &Server{
		tracker:   opts.Tracker,
		control:   opts.Control,
		assistant: opts.Assistant,
		feedURL:   opts.FeedURL,
		client:    opts.HTTPClient,
		metrics:   opts.Metrics,
		log:       opts.Logger.WithField("component", "web"),
		done:      make(chan struct{}),
	}
	s.hub = newHub(s.done, s.log, func() []byte { return status.FormatLive(s.tracker.Snapshot()) }, s.handleSocketMessage)

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	s.route(r, "/index.json", s.handleJSON, http.MethodGet)
	s.route(r, "/api/status", s.handleJSON, http.MethodGet)
	s.route(r, "/api/history", s.handleHistory, http.MethodGet)
	s.route(r, "/api/cycles", s.handleCycles, http.MethodGet)
	s.route(r, "/api/control", s.handleControl, http.MethodPost)
	s.route(r, "/api/chat", s.handleChat, http.MethodPost)
	s.route(r, "/api/sensors", s.handleSensors, http.MethodGet)
	r.HandleFunc("/ws", s.hub.handle).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	var h http.Handler = r
	if opts.AccessLog != nil {
		h = handlers.LoggingHandler(opts.AccessLog, h)
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.hub.run()
	go s.pump()
	return s
}

func (s *Server) route(r *mux.Router, path string, fn http.HandlerFunc, method string) {
	r.Handle(path, s.metrics.WrapHandler(path, fn)).Methods(method)
}

// Handler returns the root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown stops the websocket broadcaster and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.httpServer.Shutdown(ctx)
}

// pump pushes a live frame to websocket clients whenever the tracker changes.
func (s *Server) pump() {
	ch, cancel := s.tracker.Subscribe()
	defer cancel()
	for {
		select {
		case <-s.done:
			return
		case <-ch:
			s.hub.send(status.FormatLive(s.tracker.Snapshot()))
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		s.log.WithError(err).Warn("render index")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, status.FormatHistory(s.tracker.Snapshot().History))
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, status.FormatCycles(s.tracker.Snapshot().Cycles))
}
