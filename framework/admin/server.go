package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"
)

const shutdownTimeout = 5 * time.Second

// Server runs an http.Server under a tomb so its lifetime can be tied to
// the application lifecycle.
type Server struct {
	t       tomb.Tomb
	srv     *http.Server
	logger  zerolog.Logger
	addr    atomic.Value
	started atomic.Bool
}

// NewServer creates a stopped server for handler on addr.
func NewServer(addr string, handler http.Handler, logger zerolog.Logger) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
	s.addr.Store(addr)
	return s
}

// Start binds the listener and serves on a tomb goroutine. Bind errors are
// returned directly.
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		s.started.Store(false)
		return err
	}
	s.addr.Store(ln.Addr().String())
	s.logger.Info().Str("addr", s.Addr()).Msg("admin server listening")

	s.t.Go(func() error {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	s.t.Go(func() error {
		<-s.t.Dying()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(ctx)
	})
	return nil
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string { return s.addr.Load().(string) }

// Stop shuts the server down gracefully. Stopping a server that never
// started is a no-op.
func (s *Server) Stop() error {
	if !s.started.Load() {
		return nil
	}
	s.t.Kill(nil)
	err := s.t.Wait()
	s.logger.Info().Err(err).Msg("admin server stopped")
	return err
}
