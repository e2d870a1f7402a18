package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fortune/config"
	"fortune/database"
	"fortune/events"
	"fortune/infrastructure"
	"fortune/infrastructure/observability"
	"fortune/repository"
	"fortune/server"
	"fortune/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()
	configureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting fortune service...")

	// Initialize database connection
	log.WithField("database", database.RedactURL(cfg.GetDatabaseURL())).Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Forward committed domain events to NATS when configured
	natsClient, err := setupEventForwarding(ctx, cfg, eventBus)
	if err != nil {
		db.Close()
		return err
	}

	// Initialize metrics
	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	} else {
		metricsProvider.Subscribe(eventBus)
	}

	// Initialize services
	services := server.Services{
		Inventory:      service.NewInventoryService(uowFactory, cfg),
		Booking:        service.NewBookingService(uowFactory, cfg),
		FortuneCounter: service.NewFortuneCounterService(uowFactory, cfg),
		Wallet:         service.NewWalletService(uowFactory, cfg),
		Referral:       service.NewReferralService(uowFactory, cfg),
		Cancellation:   service.NewCancellationService(uowFactory),
	}
	log.Info("Services initialized successfully")

	// Start HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(services).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for context cancellation or a server failure
	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	// Cleanup resources
	log.Info("Shutting down fortune service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}

	if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics provider")
	}

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return runErr
}

// setupEventForwarding wires the bus to NATS JetStream, or to a no-op publisher
// when no servers are configured. The returned client is nil in the no-op case.
func setupEventForwarding(ctx context.Context, cfg *config.Config, bus *events.Bus) (*infrastructure.NATSClient, error) {
	if cfg.NATSServers == "" {
		log.Info("NATS not configured, domain events stay in-process")
		infrastructure.ForwardEvents(bus, infrastructure.NewNoopEventPublisher())
		return nil, nil
	}

	client := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.DomainEventStream, mapper.GetAllSubjects()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}

	infrastructure.ForwardEvents(bus, infrastructure.NewNATSEventPublisher(client, mapper))
	log.WithField("servers", cfg.NATSServers).Info("Forwarding domain events to NATS")

	return client, nil
}

func configureLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
