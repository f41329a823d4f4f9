package audit

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server serves the audit API of a single ledger.
type Server struct {
	server *http.Server
	logger *slog.Logger
	errs   chan error
}

func NewServer(addr string, l Ledger, logger *slog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(l, logger),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
		errs:   make(chan error, 1),
	}
}

// Start serves on l in the background. Serving errors other than a clean
// shutdown are reported by Err.
func (s *Server) Start(l net.Listener) {
	s.logger.Info("audit API listening", "address", l.Addr().String())
	go func() {
		err := s.server.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
		close(s.errs)
	}()
}

// Err returns a channel that receives the serving error, if any, and is
// closed when the server stops.
func (s *Server) Err() <-chan error {
	return s.errs
}

// Close shuts the server down, waiting at most timeout for active requests.
func (s *Server) Close(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
