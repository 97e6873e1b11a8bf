package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type Server struct {
	*http.Server
	shutdownTimeout time.Duration
	log             *slog.Logger
}

func NewServer(addr string, router *http.ServeMux, log *slog.Logger) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		shutdownTimeout: 10 * time.Second,
		log:             log,
	}
}

// StartWithGracefulShutdown serves until ctx is done or the process gets
// SIGINT/SIGTERM, then drains open requests.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		serverErrors <- s.start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("error starting server: %w", err)

	case <-shutdown:
	case <-ctx.Done():
	}

	s.log.Info("starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		s.log.Error("could not gracefully shutdown the server", "error", err)

		if err := s.Close(); err != nil {
			s.log.Error("could not close server", "error", err)
		}
		return err
	}
	s.log.Info("server gracefully stopped")
	return nil
}

func (s *Server) start() error {
	s.log.Info("server listening", "addr", s.Addr)
	return s.ListenAndServe()
}
