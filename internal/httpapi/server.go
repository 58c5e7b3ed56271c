// Package httpapi exposes the sentinel's manual control surface over
// HTTP: trigger an action, send a notification, check liveness — the same
// contract shape as the original's FastAPI api.py, reimplemented on
// go-chi/chi the way the wider example pack routes its HTTP services.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kaelsworks/sentinel/internal/config"
	"github.com/kaelsworks/sentinel/internal/executor"
	"github.com/kaelsworks/sentinel/internal/notify"
)

// Server is the sentinel's loopback-bound control API.
type Server struct {
	cfg      *config.Config
	executor *executor.Executor
	notifier *notify.Notifier
	router   chi.Router
	startedAt time.Time
}

func New(cfg *config.Config, exec *executor.Executor, notifier *notify.Notifier) *Server {
	s := &Server{
		cfg:       cfg,
		executor:  exec,
		notifier:  notifier,
		startedAt: time.Now(),
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/action", s.handleAction)
	r.Post("/notify", s.handleNotify)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

type actionRequest struct {
	Command       string `json:"command"`
	ContainerName string `json:"container_name"`
}

type actionResponse struct {
	Success       bool     `json:"success"`
	Action        string   `json:"action"`
	Container     string   `json:"container"`
	Message       string   `json:"message,omitempty"`
	Error         string   `json:"error,omitempty"`
	Verification  string   `json:"verification,omitempty"`
	IsRecovered   bool     `json:"is_recovered,omitempty"`
	TotalAttempts int      `json:"total_attempts,omitempty"`
	FinalAction   string   `json:"final_action,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Timestamp     string   `json:"timestamp"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{
			Success: false, Error: "invalid request body", Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	if !s.cfg.IsActionAllowed(req.Command) {
		writeJSON(w, http.StatusForbidden, actionResponse{
			Success: false, Action: req.Command, Container: req.ContainerName,
			Error: "command not in allowed_actions whitelist", Timestamp: time.Now().Format(time.RFC3339),
		})
		return
	}

	result := s.executor.Execute(r.Context(), req.Command, req.ContainerName)
	writeJSON(w, http.StatusOK, actionResponse{
		Success:       result.Success,
		Action:        result.Command,
		Container:     result.Container,
		Message:       result.Message,
		Reason:        result.Reason,
		Verification:  result.Verification,
		IsRecovered:   result.IsRecovered,
		TotalAttempts: result.TotalAttempts,
		FinalAction:   result.FinalAction,
		Timestamp:     time.Now().Format(time.RFC3339),
	})
}

type notifyRequest struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type notifyResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, notifyResponse{Success: false, Error: "invalid request body"})
		return
	}
	s.notifier.Send(notify.Render(req.Type, req.Data))
	writeJSON(w, http.StatusOK, notifyResponse{Success: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "sentinel",
		"status":  "running",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
