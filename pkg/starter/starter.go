package starter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/lei/suite-starter/internal/api"
	"github.com/lei/suite-starter/internal/config"
	"github.com/lei/suite-starter/internal/dispatcher"
	"github.com/lei/suite-starter/internal/metrics"
	"github.com/lei/suite-starter/internal/provider/kubernetes"
	"github.com/lei/suite-starter/internal/render"
	"github.com/lei/suite-starter/internal/template"
	"github.com/lei/suite-starter/internal/transport/kafka"
	"github.com/lei/suite-starter/pkg/logger"
)

// Starter wires the template store, dispatcher, cluster submitter, event
// consumer and HTTP surface into one runnable instance
type Starter struct {
	config     *config.Config
	dispatcher *dispatcher.Dispatcher
	submitter  *kubernetes.Adapter
	consumer   *kafka.Consumer
	router     http.Handler
	server     *http.Server
	logger     *logger.Logger
}

// New creates a new Starter instance from the provided configuration.
// The template is loaded here, once: a missing or unparseable template is
// fatal since no event could ever be processed.
func New(cfg *config.Config) (*Starter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	appLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	tmpl, err := template.Load(cfg.ETOS.TemplateFile)
	if err != nil {
		return nil, err
	}
	appLogger.Info("loaded job template", "path", tmpl.Path())

	submitter := kubernetes.NewAdapter(&kubernetes.Config{
		Host:               cfg.Cluster.Host,
		Namespace:          cfg.Cluster.Namespace,
		NamespaceFile:      cfg.Cluster.NamespaceFile,
		BearerToken:        cfg.Cluster.BearerToken,
		TokenFile:          cfg.Cluster.TokenFile,
		Timeout:            cfg.Cluster.Timeout,
		InsecureSkipVerify: cfg.Cluster.InsecureSkipVerify,
	}, appLogger)

	registry := prometheus.NewRegistry()
	sink := metrics.NewPrometheusSink(registry, appLogger)

	settings := func() dispatcher.RunSettings {
		return dispatcher.RunSettings{
			ConfigMaps:  cfg.ConfigMapNames(),
			RunnerImage: cfg.ETOS.SuiteRunnerImage,
		}
	}

	disp := dispatcher.New(tmpl, render.New(cfg.ETOS.RunnerContainer), submitter, settings, appLogger).
		WithMetrics(sink).
		WithDedupeTTL(cfg.ETOS.DedupeTTL)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, appLogger).
		WithMetrics(sink)

	handlers := api.NewHandlers(disp, submitter)
	authMiddleware := api.NewAuthMiddleware(cfg.Auth.APIKeys)
	loggingMiddleware := api.NewLoggingMiddleware(appLogger)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	router := api.NewRouter(handlers, authMiddleware, loggingMiddleware, metricsHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Starter{
		config:     cfg,
		dispatcher: disp,
		submitter:  submitter,
		consumer:   consumer,
		router:     router,
		server:     srv,
		logger:     appLogger,
	}, nil
}

// Start runs the event consumer and the HTTP server.
// This is a blocking call that runs until the context is canceled or a
// component fails.
func (s *Starter) Start(ctx context.Context) error {
	// Cluster credentials are resolved once, before the first event
	if err := s.submitter.LoadConfig(ctx); err != nil {
		return fmt.Errorf("load cluster config: %w", err)
	}

	serverErrors := make(chan error, 1)
	consumerErrors := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server", "port", s.config.Server.Port)
		serverErrors <- s.server.ListenAndServe()
	}()

	go func() {
		consumerErrors <- s.consumer.Run(ctx, s.dispatcher.OnEvent)
	}()

	var cause error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			cause = fmt.Errorf("server error: %w", err)
		}
	case err := <-consumerErrors:
		if err != nil {
			cause = fmt.Errorf("consumer error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	return multierr.Append(cause, s.shutdown())
}

// shutdown stops the consumer and drains the HTTP server
func (s *Starter) shutdown() error {
	var errs error

	if err := s.consumer.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("close consumer: %w", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.server.Close()
		errs = multierr.Append(errs, fmt.Errorf("graceful shutdown failed: %w", err))
	}

	if errs == nil {
		s.logger.Info("stopped gracefully")
	}
	return errs
}

// Handler returns the http.Handler for the starter.
// Use this to integrate health/status/metrics into an existing HTTP server.
func (s *Starter) Handler() http.Handler {
	return s.router
}

// Dispatcher returns the underlying event dispatcher.
// Use this to feed events from a custom bus when embedding.
func (s *Starter) Dispatcher() *dispatcher.Dispatcher {
	return s.dispatcher
}

// NewFromEnv creates a Starter from a configuration file, with environment
// variables expanded inside it
func NewFromEnv(configFile string) (*Starter, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return New(cfg)
}
