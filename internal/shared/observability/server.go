package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus is served on /health.
type HealthStatus struct {
	Status    string    `json:"status"`
	LastBuild time.Time `json:"last_build,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Health tracks the outcome of the most recent build.
type Health struct {
	mu     sync.RWMutex
	status HealthStatus
}

func NewHealth() *Health {
	return &Health{status: HealthStatus{Status: "up"}}
}

func (h *Health) Record(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.LastBuild = time.Now()
	if err != nil {
		h.status.Status = "degraded"
		h.status.LastError = err.Error()
		return
	}
	h.status.Status = "up"
	h.status.LastError = ""
}

func (h *Health) Check() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

type Server struct {
	addr   string
	health *Health
	server *http.Server
}

func NewServer(addr string, health *Health) *Server {
	if health == nil {
		health = NewHealth()
	}
	return &Server{addr: addr, health: health}
}

// Handler exposes /metrics and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := s.health.Check()
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(status)
	})
	return mux
}

// Start listens in the background until Stop is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	slog.Info("observability server starting", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observability server failed", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
