package metric

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, r *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestCoreMetricsRegistered(t *testing.T) {
	registry := NewMetricsRegistry()

	// Touch a few vectors so they show up in Gather output.
	registry.Metrics.RecordAnnotation("Email")
	registry.Metrics.RecordModelStatus("en", 2)
	registry.Metrics.RecordReply("success")
	registry.Metrics.RecordError("gateway", "transient")

	names := gatherNames(t, registry)
	assert.True(t, names["textann_extraction_annotations_total"])
	assert.True(t, names["textann_model_status"])
	assert.True(t, names["textann_reply_suggestions_total"])
	assert.True(t, names["textann_errors_total"])
	assert.True(t, names["textann_nats_connected"])
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("test-component", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	names := gatherNames(t, registry)
	assert.True(t, names["test_counter"], "counter should be registered in Prometheus registry")
}

func TestMetricsRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dup_gauge", Help: "dup"})
	second := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dup_gauge", Help: "dup"})

	require.NoError(t, registry.RegisterGauge("test-component", "dup_gauge", first))

	err := registry.RegisterGauge("test-component", "dup_gauge", second)
	assert.Error(t, err, "duplicate key should be rejected")

	// Same collector name under a different component key still collides
	// inside Prometheus itself.
	err = registry.RegisterGauge("other-component", "dup_gauge", second)
	assert.Error(t, err)
}

func TestMetricsRegistry_RegisterHistogramVec(t *testing.T) {
	registry := NewMetricsRegistry()

	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "A test histogram vector",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	require.NoError(t, registry.RegisterHistogramVec("test-component", "test_duration_seconds", hv))

	hv.WithLabelValues("success").Observe(0.1)

	names := gatherNames(t, registry)
	assert.True(t, names["test_duration_seconds"])
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "removable_counter",
		Help: "A removable counter",
	})
	require.NoError(t, registry.RegisterCounter("test-component", "removable_counter", counter))

	assert.True(t, registry.Unregister("test-component", "removable_counter"))
	assert.False(t, registry.Unregister("test-component", "removable_counter"))

	// Re-registration after unregister should succeed.
	require.NoError(t, registry.RegisterCounter("test-component", "removable_counter", counter))
}

func TestMetricsRegistry_ConcurrentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", n),
				Help: "A concurrently registered counter",
			})
			assert.NoError(t, registry.RegisterCounter("test-component",
				fmt.Sprintf("concurrent_counter_%d", n), c))
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent registration did not finish")
	}
}

func TestMetricsRecorders(t *testing.T) {
	m := NewMetrics()

	m.RecordCandidate("Phone")
	m.RecordRejection("PaymentCard", "checksum")
	m.RecordExtractionDuration("annotate", 15*time.Millisecond)
	m.RecordModelDownload("de", "success")
	m.RecordNATSStatus(true)
	m.RecordNATSReconnect()

	// Recorders must not panic and must accept repeated label values.
	m.RecordCandidate("Phone")
	m.RecordNATSStatus(false)
}
