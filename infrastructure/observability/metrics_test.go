package observability

import (
	"context"
	"testing"
	"time"

	"fortune/config"
	"fortune/events"
	"fortune/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestMetricsProvider_RecordsDomainEvents(t *testing.T) {
	cfg := config.NewTestConfig()
	reader := sdkmetric.NewManualReader()

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.initializeWithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	bus := events.NewBus()
	mp.Subscribe(bus)

	bus.Emit(context.Background(), events.TicketSoldEvent{GameID: 1, Channel: models.ChannelOnline})
	bus.Emit(context.Background(), events.TicketSoldEvent{GameID: 1, Channel: models.ChannelOffline})
	bus.Emit(context.Background(), events.SettlementConfirmedEvent{GameID: 1, SettledTickets: 3})

	assert.Eventually(t, func() bool {
		return collectSum(t, reader, TicketsSoldTotal) == 2 && collectSum(t, reader, TicketsSettledTotal) == 3
	}, time.Second, 10*time.Millisecond)
}

func TestMetricsProvider_Disabled(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.MetricsEnabled = false

	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))
	assert.False(t, mp.isEnabled())

	// Recording on a disabled provider is a no-op
	mp.RecordEvent(context.Background(), events.BookCreatedEvent{})
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_UnknownExporter(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.MetricsEnabled = true
	cfg.MetricsExporter = "carrier-pigeon"

	err := NewMetricsProvider(cfg).Initialize(context.Background())
	assert.Error(t, err)
}
