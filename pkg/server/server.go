package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Server runs the HTTP listener plus the background loops (janitor,
// queue-update forwarder) under one lifecycle.
type Server struct {
	router  *Router
	httpSrv *http.Server
}

func NewServer(settings Settings) (*Server, error) {
	r, err := NewRouter(settings)
	if err != nil {
		return nil, err
	}
	return &Server{router: r, httpSrv: r.BuildHTTPServer()}, nil
}

func (s *Server) Router() *Router { return s.router }

// Run blocks until the context is cancelled or an interrupt arrives, then
// shuts the listener down gracefully and closes the stream backend.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("ctx is nil")
	}
	eg := errgroup.Group{}
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	if err := s.router.broadcaster.Start(srvCtx); err != nil {
		return errors.Wrap(err, "start broadcaster")
	}
	s.router.janitor.Start(srvCtx)

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigChan:
			log.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-srvCtx.Done():
		}
		srvCancel()
		shutdownBase := context.WithoutCancel(ctx)
		shutdownCtx, cancel := context.WithTimeout(shutdownBase, 30*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		if err := s.router.backend.Close(); err != nil {
			log.Error().Err(err).Msg("stream backend close error")
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})

	eg.Go(func() error {
		log.Info().Str("addr", s.httpSrv.Addr).Msg("starting showroom server")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})

	return eg.Wait()
}
