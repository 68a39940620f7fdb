package backend

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

	"gorm.io/gorm"

	"dewpoint.dev/monitor/internal/producer"
	"dewpoint.dev/monitor/pkg/generator"
	"dewpoint.dev/monitor/pkg/metrics"
	"dewpoint.dev/monitor/pkg/mq"
)

// Server runs the mock backend: database, optional event publishing and the HTTP API.
type Server struct {
	logger     *slog.Logger
	config     *ServerConfig
	db         *gorm.DB
	mqClient   mq.ClientInterface
	httpServer *http.Server
	stop       context.CancelFunc
	wg         sync.WaitGroup
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	DB DBConfig

	HTTPPort int

	// Seed backfills a year of history when the store is empty.
	Seed bool

	// GeneratorSeed fixes the noise sequence. Zero picks a random seed.
	GeneratorSeed uint64

	// RabbitMQURL enables event publishing when set.
	RabbitMQURL string
	EventQueue  string

	CORSOrigin string

	// SampleInterval generates a live reading on a schedule when positive,
	// so subscribers see updates without anyone polling.
	SampleInterval time.Duration

	// Optional metrics.
	Metrics   *metrics.BackendMetrics
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

	switch cfg.DB.Driver {
	case "", DriverSQLite:
		if cfg.DB.Path == "" {
			return nil, errors.New("sqlite path cannot be empty")
		}
	case DriverPostgres:
		if cfg.DB.Host == "" {
			return nil, errors.New("database host cannot be empty")
		}
		if cfg.DB.Port <= 0 {
			return nil, errors.New("database port must be positive")
		}
		if cfg.DB.DBName == "" {
			return nil, errors.New("database name cannot be empty")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}

	if cfg.SampleInterval < 0 {
		return nil, errors.New("sample interval cannot be negative")
	}

	if cfg.RabbitMQURL != "" && cfg.EventQueue == "" {
		return nil, errors.New("event queue cannot be empty when RabbitMQ is enabled")
	}

	return &Server{
		logger: cfg.Logger,
		config: cfg,
	}, nil
}

// Run starts the backend and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting backend server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.stop = cancel

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	dbCfg := s.config.DB
	dbCfg.Logger = s.logger
	db, err := NewDB(&dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	store, err := NewStore(db, s.config.Metrics)
	if err != nil {
		return errors.Join(err, s.Shutdown())
	}

	var notifier Notifier
	if s.config.RabbitMQURL != "" {
		client, err := mq.New(mq.Config{
			URL:     s.config.RabbitMQURL,
			Queue:   s.config.EventQueue,
			Logger:  s.logger,
			Metrics: s.config.MQMetrics,
		})
		if err != nil {
			return errors.Join(fmt.Errorf("failed to create mq client: %w", err), s.Shutdown())
		}
		s.mqClient = client

		publisher := NewPublisher(client, s.logger, s.config.Metrics)
		notifier = publisher
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			publisher.Run(ctx)
		}()
		s.logger.Info("event publishing enabled", "queue", s.config.EventQueue)
	}

	gen := generator.New(nil)
	if s.config.GeneratorSeed != 0 {
		gen = generator.NewSeeded(s.config.GeneratorSeed)
	}

	service, err := NewService(ServiceConfig{
		Store:     store,
		Generator: gen,
		Logger:    s.logger,
		Notifier:  notifier,
		Metrics:   s.config.Metrics,
	})
	if err != nil {
		return errors.Join(err, s.Shutdown())
	}

	if s.config.Seed {
		if _, err := service.Seed(ctx); err != nil {
			return errors.Join(err, s.Shutdown())
		}
	}

	if s.config.SampleInterval > 0 {
		sampler, err := producer.New(service, s.config.SampleInterval, s.logger)
		if err != nil {
			return errors.Join(err, s.Shutdown())
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sampler.Run(ctx)
		}()
	}

	api, err := NewAPI(APIConfig{
		Service:    service,
		Fan:        NewFanState(nil),
		Logger:     s.logger,
		Store:      store,
		Notifier:   notifier,
		Metrics:    s.config.Metrics,
		CORSOrigin: s.config.CORSOrigin,
	})
	if err != nil {
		return errors.Join(err, s.Shutdown())
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           api,
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
			cancel()
			return errors.Join(err, s.Shutdown())
		}
	}

	cancel()
	return s.Shutdown()
}

// Shutdown stops the HTTP server, waits for the publisher and sampler and closes the mq
// client and database.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down backend server")

	var shutdownErr error

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}
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

	if s.db != nil {
		if err := CloseDB(s.db, s.logger); err != nil {
			s.logger.Error("failed to close database", "error", err)
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("database close error: %w", err))
		}
	}

	if shutdownErr != nil {
		s.logger.Error("backend server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("backend server shutdown completed successfully")
	return nil
}
