// Package web provides an HTTP status and command server for the controller daemon.
package web

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/sweeney/humidifier/internal/command"
	"github.com/sweeney/humidifier/internal/logic"
	"github.com/sweeney/humidifier/internal/status"
)

// Server serves the status page and accepts event codes over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   command.Submitter
}

// New creates a Server that reads state from the given tracker and submits
// POSTed events to commands. A nil commands disables POST /event.
func New(addr string, tracker *status.Tracker, commands command.Submitter) *Server {
	s := &Server{tracker: tracker, commands: commands}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/event", s.handleEvent)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleEvent accepts a single event code as the "code" form value or as
// the raw request body. Unrecognised codes are accepted and ignored by the
// state machine.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.commands == nil {
		http.Error(w, "commands disabled", http.StatusServiceUnavailable)
		return
	}

	code := r.FormValue("code")
	if code == "" && r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		body, _ := io.ReadAll(io.LimitReader(r.Body, 64))
		code = strings.TrimSpace(string(body))
	}

	e, err := logic.ParseEvent(code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch err := s.commands.Submit(e, "http"); {
	case errors.Is(err, command.ErrRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, command.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}
