// Package httpapi exposes the switch controller over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"smart-switch/internal/domain"
)

const maxCommandBytes = 1024

// SwitchService is the part of the application service the API serves.
type SwitchService interface {
	HandleLine(ctx context.Context, line string) string
	Switches() []domain.Switch
	WriteListing(w io.Writer) error
}

type Options struct {
	Addr      string
	AuthToken string
	// RateLimit is the number of commands per minute per client.
	RateLimit int
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

type Server struct {
	opts    Options
	service SwitchService
	logger  *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool

	mux         *http.ServeMux
	rateLimiter *RateLimiter
}

type switchJSON struct {
	ID        uint8  `json:"id"`
	Status    bool   `json:"status"`
	TimerID   *uint8 `json:"timer_id,omitempty"`
	OnHour    uint8  `json:"on_hour"`
	OnMinute  uint8  `json:"on_minute"`
	OffHour   uint8  `json:"off_hour"`
	OffMinute uint8  `json:"off_minute"`
}

func NewServer(opts Options, service SwitchService, logger *slog.Logger) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 60
	}
	s := &Server{
		opts:        opts,
		service:     service,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(opts.RateLimit, time.Minute),
	}

	s.mux.HandleFunc("POST /command", s.rateLimiter.Middleware(s.authorized(s.handleCommand)))
	s.mux.HandleFunc("GET /switches", s.authorized(s.handleSwitches))
	s.mux.HandleFunc("GET /switches/raw", s.authorized(s.handleRaw))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if opts.Metrics != nil {
		s.mux.Handle("GET /metrics", opts.Metrics)
	}
	return s
}

func (s *Server) Name() string {
	return "http"
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		s.logger.Info("HTTP server starting", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AuthToken == "" {
			next(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.Header.Get("X-Auth-Token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AuthToken)) != 1 {
			s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	line := strings.TrimSpace(string(data))
	if line == "" {
		http.Error(w, "empty command", http.StatusBadRequest)
		return
	}

	reply := s.service.HandleLine(r.Context(), line)
	status := http.StatusOK
	if strings.HasPrefix(reply, "ERR ") {
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, reply)
}

func (s *Server) handleSwitches(w http.ResponseWriter, _ *http.Request) {
	switches := s.service.Switches()
	out := make([]switchJSON, 0, len(switches))
	for _, sw := range switches {
		j := switchJSON{
			ID:        sw.ID,
			Status:    sw.Status,
			OnHour:    sw.OnHour,
			OnMinute:  sw.OnMinute,
			OffHour:   sw.OffHour,
			OffMinute: sw.OffMinute,
		}
		if sw.HasTimer() {
			timer := sw.TimerID
			j.TimerID = &timer
		}
		out = append(out, j)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("encoding switches", "error", err)
	}
}

func (s *Server) handleRaw(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.service.WriteListing(w); err != nil {
		s.logger.Error("writing listing", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, `{"status":"%s","running":%t,"switches":%d}`, status, running, len(s.service.Switches()))
}
