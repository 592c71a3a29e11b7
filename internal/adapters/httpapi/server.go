package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server wraps the HTTP listener lifecycle
type Server struct {
	server     *http.Server
	listenAddr string
	logger     *zap.Logger
}

// NewServer creates the HTTP server for the given handler set
func NewServer(listenAddr string, handlers *Handlers, logger *zap.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         listenAddr,
			Handler:      NewRouter(handlers),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		listenAddr: listenAddr,
		logger:     logger,
	}
}

// Start begins serving in a background goroutine
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				s.logger.Error("HTTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the listener down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server stopping")
	return s.server.Shutdown(ctx)
}
