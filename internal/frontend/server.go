package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dewpoint.dev/monitor/pkg/metrics"
	"dewpoint.dev/monitor/pkg/mq"
)

// DefaultRefreshInterval is the poll interval when none is configured.
const DefaultRefreshInterval = 10 * time.Second

// Server represents the dashboard HTTP server.
type Server struct {
	logger     *slog.Logger
	config     *ServerConfig
	httpServer *http.Server
	poller     *Poller
	mqClient   mq.ClientInterface
	stop       context.CancelFunc
	wg         sync.WaitGroup
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	HTTPPort int

	// BackendURL is the base URL of the backend JSON API.
	BackendURL string

	// RefreshInterval between polls. Zero uses DefaultRefreshInterval.
	RefreshInterval time.Duration

	// RabbitMQURL enables live event updates when set.
	RabbitMQURL string
	EventQueue  string

	// Optional metrics.
	Metrics   *metrics.DashboardMetrics
	MQMetrics *metrics.MQMetrics
}

// NewServer validates cfg and creates a Server.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	if cfg.BackendURL == "" {
		return nil, errors.New("backend URL cannot be empty")
	}

	if cfg.RefreshInterval < 0 {
		return nil, errors.New("refresh interval cannot be negative")
	}

	if cfg.RabbitMQURL != "" && cfg.EventQueue == "" {
		return nil, errors.New("event queue cannot be empty when RabbitMQ is enabled")
	}

	return &Server{
		logger: cfg.Logger,
		config: cfg,
	}, nil
}

// Run starts the poller, the optional event subscriber and the HTTP server,
// and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting dashboard server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.stop = cancel

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	client, err := NewHTTPClient(s.config.BackendURL, requestTimeout, s.config.Metrics)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}
	s.logger.Info("using backend", "url", s.config.BackendURL)

	dashboard, err := NewDashboard(DashboardConfig{
		Client:  client,
		Logger:  s.logger,
		Metrics: s.config.Metrics,
	})
	if err != nil {
		return err
	}

	interval := s.config.RefreshInterval
	if interval == 0 {
		interval = DefaultRefreshInterval
	}
	poller, err := NewPoller(interval, func(ctx context.Context) {
		refreshCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		_ = dashboard.Refresh(refreshCtx)
	}, s.logger)
	if err != nil {
		return err
	}
	if err := poller.Start(ctx); err != nil {
		return err
	}
	s.poller = poller

	if s.config.RabbitMQURL != "" {
		mqClient, err := mq.New(mq.Config{
			URL:     s.config.RabbitMQURL,
			Queue:   s.config.EventQueue,
			Logger:  s.logger,
			Metrics: s.config.MQMetrics,
		})
		if err != nil {
			return errors.Join(fmt.Errorf("failed to create mq client: %w", err), s.Shutdown())
		}
		s.mqClient = mqClient

		subscriber, err := NewSubscriber(mqClient, dashboard, s.logger)
		if err != nil {
			return errors.Join(err, s.Shutdown())
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			subscriber.Run(ctx)
		}()
		s.logger.Info("live updates enabled", "queue", s.config.EventQueue)
	}

	handler, err := NewHandler(HandlerConfig{
		Dashboard: dashboard,
		Logger:    s.logger,
		Metrics:   s.config.Metrics,
	})
	if err != nil {
		return errors.Join(err, s.Shutdown())
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	httpErr := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			return errors.Join(err, s.Shutdown())
		}
	}

	return s.Shutdown()
}

// Shutdown stops the HTTP server, the poller and the subscriber, then closes
// the mq client.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down dashboard server")

	var shutdownErr error

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}
	}

	if s.poller != nil {
		s.poller.Stop()
	}
	if s.stop != nil {
		s.stop()
	}
	s.wg.Wait()

	if s.mqClient != nil {
		if err := s.mqClient.Close(); err != nil && !errors.Is(err, mq.ErrClosed) {
			s.logger.Error("failed to close mq client", "error", err)
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("mq client close error: %w", err))
		}
	}

	if shutdownErr != nil {
		s.logger.Error("dashboard server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("dashboard server shutdown completed successfully")
	return nil
}
