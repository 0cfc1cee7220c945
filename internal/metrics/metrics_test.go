package metrics

import (
	"testing"
	"time"

	"crypto-telegram-bot/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend map[string]float64

func (b memoryBackend) GetMetric(name string) (float64, error) {
	return b[name], nil
}

func (b memoryBackend) SaveMetric(name string, value float64) error {
	b[name] = value
	return nil
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MessageHandled("1")
		m.CommandProcessed("!p")
		m.AlertFired(types.MinNamespace)
		m.PriceFetchFailed()
		m.CycleCompleted(time.Second)
		m.Save(memoryBackend{})
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.MessageHandled("1")
	m.MessageHandled("1")
	m.MessageHandled("2")
	m.CommandProcessed("!a")
	m.AlertFired(types.MaxNamespace)
	m.CycleCompleted(50 * time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.MessagesHandled))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChannelsCount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsProcessed.WithLabelValues("!a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsFired.WithLabelValues("max")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertCycles))
}

func TestMetrics_SaveRestore(t *testing.T) {
	backend := memoryBackend{}

	first := New(prometheus.NewRegistry())
	first.MessageHandled("1")
	first.PriceFetchFailed()
	first.PriceFetchFailed()
	first.AlertFired(types.MinNamespace)
	first.Save(backend)

	require.Equal(t, 2.0, backend["price_fetch_failures"])
	assert.NotContains(t, backend, "channels_count")

	second := New(prometheus.NewRegistry())
	second.Restore(backend)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.MessagesHandled))
	assert.Equal(t, 2.0, testutil.ToFloat64(second.PriceFetchFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(second.AlertsFired.WithLabelValues("min")))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.ChannelsCount))
}
