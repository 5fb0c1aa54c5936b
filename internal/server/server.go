package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server serves a directory over HTTP for the lifetime of one verification.
type Server struct {
	dir    string
	addr   string
	logger *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	stopped  bool
}

func New(dir, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{dir: dir, addr: addr, logger: logger}
}

// Start binds the listener before returning, so a busy port is reported here
// rather than from the serving goroutine.
func (s *Server) Start() error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("serve dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("serve dir %s is not a directory", s.dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.http = &http.Server{
		Handler:           s.logRequests(http.FileServer(http.Dir(s.dir))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("static server stopped", zap.Error(err))
		}
	}(s.http)

	s.logger.Info("serving directory", zap.String("dir", s.dir), zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down. Calling it more than once, or before Start, is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http == nil || s.stopped {
		return nil
	}
	s.stopped = true

	s.logger.Info("stopping static server", zap.String("addr", s.listener.Addr().String()))
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown static server: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("static request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
		)
	})
}
