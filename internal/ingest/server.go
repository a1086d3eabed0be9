package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Path is the single resource served.
const Path = "/api/temperature"

const maxBody = 64 << 10

// NewRouter returns the ingestion routes.
func NewRouter(store *Store, log logrus.FieldLogger) *mux.Router {
	h := &handler{store: store, log: log}
	r := mux.NewRouter()
	r.HandleFunc(Path, h.post).Methods(http.MethodPost)
	r.HandleFunc(Path, h.get).Methods(http.MethodGet)
	return r
}

type handler struct {
	store *Store
	log   logrus.FieldLogger
}

func (h *handler) post(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Temperature any `json:"temperature"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	temp, ok := body.Temperature.(float64)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "temperature must be a number"})
		return
	}

	reading := h.store.Set(temp)
	h.log.WithFields(logrus.Fields{
		"temperature": reading.Temperature,
		"received_at": reading.ReceivedAt,
	}).Info("new sensor reading")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	reading, ok := h.store.Latest()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no_data_yet"})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string  `json:"status"`
		Data   Reading `json:"data"`
	}{"ok", reading})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server serves the ingestion endpoint with permissive CORS.
type Server struct {
	srv *http.Server
}

// New creates a Server listening on addr. Access logs go to accessLog.
func New(addr string, store *Store, log logrus.FieldLogger, accessLog io.Writer) *Server {
	var h http.Handler = NewRouter(store, log)
	if accessLog != nil {
		h = handlers.LoggingHandler(accessLog, h)
	}
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe starts the server. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
