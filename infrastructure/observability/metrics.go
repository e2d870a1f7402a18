package observability

import (
	"context"
	"fmt"
	"sync"

	"fortune/config"
	"fortune/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsProvider manages OpenTelemetry metrics derived from domain events
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	ticketsSoldCounter          metric.Int64Counter
	booksCreatedCounter         metric.Int64Counter
	settlementsRequestedCounter metric.Int64Counter
	settlementsConfirmedCounter metric.Int64Counter
	ticketsSettledCounter       metric.Int64Counter
	walletTransactionsCounter   metric.Int64Counter
	referralBonusesCounter      metric.Int64Counter
	cancellationsCounter        metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry meter provider with the configured exporter
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	if !mp.config.MetricsEnabled {
		log.Info("OpenTelemetry metrics disabled")
		return mp.markInitialized(false)
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.MetricsExporter {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTLPEndpoint).Info("Using OTLP metric exporter")

	case "none", "":
		log.Info("Metrics export disabled (exporter='none')")
		return mp.markInitialized(false)

	default:
		return fmt.Errorf("unknown metrics exporter: %s", mp.config.MetricsExporter)
	}

	return mp.initializeWithReader(sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(mp.config.MetricsInterval),
	))
}

func (mp *MetricsProvider) initializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", mp.config.ServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("fortune")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

func (mp *MetricsProvider) markInitialized(enabled bool) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.initialized = true
	mp.enabled = enabled
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.ticketsSoldCounter, TicketsSoldTotal, "Total number of tickets sold"},
		{&mp.booksCreatedCounter, BooksCreatedTotal, "Total number of books registered"},
		{&mp.settlementsRequestedCounter, SettlementsRequestedTotal, "Total number of settlement requests"},
		{&mp.settlementsConfirmedCounter, SettlementsConfirmedTotal, "Total number of confirmed settlements"},
		{&mp.ticketsSettledCounter, TicketsSettledTotal, "Total number of online tickets settled"},
		{&mp.walletTransactionsCounter, WalletTransactionsTotal, "Total number of FC ledger entries"},
		{&mp.referralBonusesCounter, ReferralBonusesTotal, "Total number of referral bonuses credited"},
		{&mp.cancellationsCounter, CancellationTransitionsTotal, "Total number of cancellation status changes"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}

	return nil
}

// Subscribe records a metric for every domain event emitted on the bus
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(mp.RecordEvent)
}

// RecordEvent updates the counters affected by a domain event
func (mp *MetricsProvider) RecordEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.TicketSoldEvent:
		mp.ticketsSoldCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelChannel, string(e.Channel))))
	case events.BookCreatedEvent:
		mp.booksCreatedCounter.Add(ctx, 1)
	case events.SettlementRequestedEvent:
		mp.settlementsRequestedCounter.Add(ctx, 1)
	case events.SettlementConfirmedEvent:
		mp.settlementsConfirmedCounter.Add(ctx, 1)
		mp.ticketsSettledCounter.Add(ctx, e.SettledTickets)
	case events.BalanceChangeEvent:
		mp.walletTransactionsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelReason, string(e.Reason))))
	case events.ReferralBonusCreditedEvent:
		mp.referralBonusesCounter.Add(ctx, 1)
	case events.CancellationStatusChangedEvent:
		mp.cancellationsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelStatus, string(e.Status))))
	}
}

// Shutdown flushes and shuts down the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
