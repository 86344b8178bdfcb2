// Package server hosts the Bridge-AI HTTP and websocket surfaces: room
// administration, transcript export and the realtime channel coordinator.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/louisbranch/bridge-ai/internal/platform/i18n"
	"github.com/louisbranch/bridge-ai/internal/platform/logging"
	"github.com/louisbranch/bridge-ai/internal/platform/timeouts"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/intervention"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

// Config defines the inputs for the bridge transport boundary. The room
// registry and intervention policy are owned by the caller.
type Config struct {
	HTTPAddr          string
	PublicBaseURL     string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	AdminID          string
	AdminPassword    string
	AdminTokenSecret string

	Rooms     *room.Registry
	Policy    *intervention.Policy
	Audit     AuditReader
	Localizer *i18n.Localizer
	Logger    *zap.Logger
	Now       func() time.Time
}

// Server hosts the bridge HTTP/websocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	handler         http.Handler
	coordinator     *Coordinator
	logger          *zap.Logger
}

// NewServer builds a configured bridge server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}
	if config.Localizer == nil {
		config.Localizer = i18n.NewLocalizer(i18n.BaseLocale)
	}
	logger := logging.OrNop(config.Logger)

	admin, err := newAdminAuth(config.AdminID, config.AdminPassword, config.AdminTokenSecret, config.Now)
	if err != nil {
		return nil, err
	}
	coordinator, err := NewCoordinator(CoordinatorConfig{
		Rooms:         config.Rooms,
		Policy:        config.Policy,
		Localizer:     config.Localizer,
		Logger:        logger,
		AdminRequired: admin.enabled(),
		Now:           config.Now,
	})
	if err != nil {
		return nil, err
	}

	handler := newHandler(&handlers{
		rooms:         config.Rooms,
		coordinator:   coordinator,
		admin:         admin,
		audit:         config.Audit,
		localizer:     config.Localizer,
		logger:        logger,
		publicBaseURL: config.PublicBaseURL,
	})

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
		},
		handler:     handler,
		coordinator: coordinator,
		logger:      logger,
	}, nil
}

// Handler returns the HTTP routes served by the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves HTTP traffic until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("bridge server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	s.logger.Info("bridge server listening", zap.String("addr", s.httpAddr))
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close stops background facilitator calls and waits for them.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.coordinator.Close()
}
