package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"tarama-server/internal/config"
)

type Server struct {
	cfg               config.Config
	clock             clock.Clock
	registry          *Registry
	sessionManager    *SessionManager
	connectionManager *ConnectionManager
	transport         Transport
	rateLimiter       *RateLimiter
	archive           MatchArchive
	decoder           *commandDecoder
	sendTimeout       time.Duration

	stopCleanup context.CancelFunc
	background  sync.WaitGroup
}

type Option func(*Server)

func WithClock(clk clock.Clock) Option {
	return func(s *Server) { s.clock = clk }
}

func WithArchive(archive MatchArchive) Option {
	return func(s *Server) { s.archive = archive }
}

// WithTransport replaces the websocket connection manager as the outbound path.
func WithTransport(t Transport) Option {
	return func(s *Server) { s.transport = t }
}

func NewServer(cfg config.Config, opts ...Option) (*Server, *http.Server) {
	s := &Server{
		cfg:               cfg,
		clock:             clock.New(),
		sessionManager:    NewSessionManager(),
		connectionManager: NewConnectionManager(),
		archive:           NopArchive{},
		decoder:           newCommandDecoder(),
		sendTimeout:       5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transport == nil {
		s.transport = s.connectionManager
	}

	s.registry = NewRegistry(Rules{
		BoardSize:   cfg.BoardSize,
		WinLength:   cfg.WinLength,
		CaptureMode: cfg.CaptureMode,
	}, s.clock)
	s.rateLimiter = NewRateLimiter(cfg.RateLimitPerSecond, time.Second, s.clock)

	ctx, cancel := context.WithCancel(context.Background())
	s.stopCleanup = cancel
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.cleanupTask(ctx)
	}()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, httpServer
}

// Shutdown stops the sweep, tells every connection the server is going away
// and waits for pending archive writes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopCleanup()

	connections := s.connectionManager.ConnectionIDs()
	s.broadcast(connections, MsgServerShutdown, ServerShutdownMessage{
		Message: "Server is shutting down",
	})
	log.Info().Int("connections", len(connections)).Int("rooms", s.registry.Count()).Msg("Notified connections of shutdown")

	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("shutdown interrupted: %w", ctx.Err())
	}

	s.archive.Close()
	return err
}
