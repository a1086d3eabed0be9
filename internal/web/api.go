package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/autoclave-monitor/internal/assistant"
	"github.com/sweeney/autoclave-monitor/internal/monitor"
	"github.com/sweeney/autoclave-monitor/internal/source"
)

const maxBody = 256 << 10

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

type controlRequest struct {
	Command string `json:"command"`
}

// submit parses and queues a command, returning the HTTP status to report.
func (s *Server) submit(raw string) (monitor.Command, int, error) {
	if s.control == nil {
		return "", http.StatusServiceUnavailable, errors.New("monitor control is not available")
	}
	cmd, err := monitor.ParseCommand(raw)
	if err != nil {
		return "", http.StatusBadRequest, err
	}
	if err := s.control.Submit(cmd); err != nil {
		return "", http.StatusServiceUnavailable, err
	}
	return cmd, http.StatusAccepted, nil
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cmd, code, err := s.submit(req.Command)
	if err != nil {
		writeError(w, code, err.Error())
		return
	}
	s.log.WithField("command", cmd).Info("control command accepted")
	writeJSON(w, code, map[string]string{"status": "accepted", "command": string(cmd)})
}

// handleSocketMessage treats websocket frames as control requests.
func (s *Server) handleSocketMessage(msg []byte) {
	var req controlRequest
	if err := json.Unmarshal(msg, &req); err != nil || req.Command == "" {
		return
	}
	if _, _, err := s.submit(req.Command); err != nil {
		s.log.WithFields(logrus.Fields{"command": req.Command, "error": err}).Warn("websocket command rejected")
	}
}

type chatRequest struct {
	Message string              `json:"message"`
	Context *assistant.Context  `json:"context"`
	History []assistant.Message `json:"history"`
}

type chatResponse struct {
	Content string `json:"content"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.assistant == nil {
		writeError(w, http.StatusInternalServerError, "Gemini API key is not configured.")
		return
	}

	live := s.liveContext()
	if req.Context != nil {
		live = *req.Context
	}

	text, err := s.assistant.Ask(r.Context(), req.Message, live, req.History)
	switch {
	case errors.Is(err, assistant.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, "Gemini API key is not configured.")
	case err != nil:
		s.log.WithError(err).Error("chat request failed")
		writeError(w, http.StatusInternalServerError, "Failed to process AI request")
	default:
		writeJSON(w, http.StatusOK, chatResponse{Content: text})
	}
}

func (s *Server) liveContext() assistant.Context {
	snap := s.tracker.Snapshot()
	return assistant.Context{
		Temperature:    snap.Current.Temperature,
		Pressure:       snap.Current.Pressure,
		KillPercentage: snap.KillPercentage,
	}
}

// handleSensors relays the ingestion service's latest reading.
func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	if s.feedURL == "" {
		writeJSON(w, http.StatusOK, map[string]any{"message": "No SERVER_URL configured", "temperature": 0})
		return
	}

	url := strings.TrimRight(s.feedURL, "/") + source.TemperaturePath
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, url, nil)
	if err != nil {
		s.proxyFailed(w, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.client.Do(req)
	if err != nil {
		s.proxyFailed(w, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.WithField("status", resp.StatusCode).Warn("sensor upstream error")
		writeJSON(w, http.StatusOK, map[string]any{"message": "Upstream error", "temperature": 0, "status": "error"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		s.proxyFailed(w, err)
		return
	}
	if !json.Valid(body) {
		s.proxyFailed(w, errors.New("upstream returned invalid JSON"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) proxyFailed(w http.ResponseWriter, err error) {
	s.log.WithError(err).Warn("sensor proxy failed")
	writeJSON(w, http.StatusBadGateway, map[string]string{
		"message": "Failed to fetch from external server",
		"error":   err.Error(),
	})
}
