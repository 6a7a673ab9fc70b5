// Package web provides an HTTP status and control server for the flashlight daemon.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"

	"github.com/sweeney/flashlight/internal/led"
	"github.com/sweeney/flashlight/internal/logic"
	"github.com/sweeney/flashlight/internal/status"
)

// Setter applies a brightness to a named LED. *led.Registry satisfies it.
type Setter interface {
	Set(name string, v logic.Brightness) error
}

// Server serves the status page, the brightness control endpoint and metrics.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	setter     Setter
	logger     *slog.Logger
}

// New creates a Server that reads state from tracker and sends brightness
// commands to setter. setter and metrics may be nil, which disables
// POST /brightness and /metrics respectively.
func New(addr string, tracker *status.Tracker, setter Setter, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{tracker: tracker, setter: setter, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if setter != nil {
		mux.HandleFunc("/brightness", s.handleBrightness)
	}
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the server's request router.
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

// isForm reports whether the body was already consumed as form data.
func isForm(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w, http.StatusOK)
}

// handleBrightness accepts the new brightness as a "value" form field or as
// the raw request body.
func (s *Server) handleBrightness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw := r.FormValue("value")
	if raw == "" && !isForm(r) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 64))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		raw = string(body)
	}

	v, err := logic.ParseBrightness(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.setter.Set(led.TorchName, v); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, led.ErrNoSuchDevice) {
			code = http.StatusServiceUnavailable
		}
		s.logger.Warn("http brightness command failed", "brightness", v, "error", err)
		http.Error(w, err.Error(), code)
		return
	}
	s.logger.Info("http brightness command applied", "brightness", v, "remote", r.RemoteAddr)
	s.writeStatus(w, http.StatusOK)
}

func (s *Server) writeStatus(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}
