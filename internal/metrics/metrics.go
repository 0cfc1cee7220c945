package metrics

import (
	"sync"
	"time"

	"crypto-telegram-bot/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "crypto"
	subsystem = "telegram_bot"
)

// Metrics are the bot's prometheus collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	CommandsProcessed  *prometheus.CounterVec
	MessagesHandled    prometheus.Counter
	ChannelsCount      prometheus.Gauge
	AlertsFired        *prometheus.CounterVec
	PriceFetchFailures prometheus.Counter
	AlertCycles        prometheus.Counter
	AlertCycleDuration prometheus.Histogram

	mu       sync.Mutex
	channels map[types.ConversationID]struct{}
}

// Backend persists counter values between restarts.
type Backend interface {
	GetMetric(name string) (float64, error)
	SaveMetric(name string, value float64) error
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}, []string{"command"}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		ChannelsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channels_count",
			Help:      "The current number of unique chats the bot received messages from",
		}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_fired",
			Help:      "The total number of triggered price alerts",
		}, []string{"namespace"}),
		PriceFetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "price_fetch_failures",
			Help:      "The total number of failed current price fetches during alert checks",
		}),
		AlertCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alert_cycles",
			Help:      "The total number of completed alert evaluation cycles",
		}),
		AlertCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alert_cycle_duration_seconds",
			Help:      "Duration of alert evaluation cycles",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		channels: make(map[types.ConversationID]struct{}),
	}

	reg.MustRegister(
		m.CommandsProcessed,
		m.MessagesHandled,
		m.ChannelsCount,
		m.AlertsFired,
		m.PriceFetchFailures,
		m.AlertCycles,
		m.AlertCycleDuration,
	)
	return m
}

func (m *Metrics) MessageHandled(conversation types.ConversationID) {
	if m == nil {
		return
	}
	m.MessagesHandled.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[conversation]; !ok {
		m.channels[conversation] = struct{}{}
		m.ChannelsCount.Set(float64(len(m.channels)))
	}
}

func (m *Metrics) CommandProcessed(command string) {
	if m == nil {
		return
	}
	m.CommandsProcessed.WithLabelValues(command).Inc()
}

func (m *Metrics) AlertFired(ns types.Namespace) {
	if m == nil {
		return
	}
	m.AlertsFired.WithLabelValues(string(ns)).Inc()
}

func (m *Metrics) PriceFetchFailed() {
	if m == nil {
		return
	}
	m.PriceFetchFailures.Inc()
}

func (m *Metrics) CycleCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.AlertCycles.Inc()
	m.AlertCycleDuration.Observe(d.Seconds())
}

// persisted lists the plain counters restored on start and saved on shutdown.
// channels_count is left out: the set of seen chats only lives in memory.
func (m *Metrics) persisted() map[string]prometheus.Counter {
	return map[string]prometheus.Counter{
		"messages_handled":     m.MessagesHandled,
		"price_fetch_failures": m.PriceFetchFailures,
		"alert_cycles":         m.AlertCycles,
		"alerts_fired_min":     m.AlertsFired.WithLabelValues(string(types.MinNamespace)),
		"alerts_fired_max":     m.AlertsFired.WithLabelValues(string(types.MaxNamespace)),
	}
}

// Restore adds the saved counter values to the fresh collectors.
func (m *Metrics) Restore(b Backend) {
	if m == nil || b == nil {
		return
	}
	for name, counter := range m.persisted() {
		value, err := b.GetMetric(name)
		if err != nil {
			log.WithError(err).Warnf("failed to load metric %s", name)
			continue
		}
		counter.Add(value)
	}
	log.Debug("Metrics loaded from database.")
}

// Save writes the current counter values.
func (m *Metrics) Save(b Backend) {
	if m == nil || b == nil {
		return
	}
	for name, counter := range m.persisted() {
		if err := b.SaveMetric(name, GetMetricValue(counter)); err != nil {
			log.WithError(err).Warnf("failed to save metric %s", name)
		}
	}
	log.Debug("Metrics saved to database.")
}

func GetMetricValue(metric prometheus.Metric) float64 {
	metricProto := &dto.Metric{}
	if err := metric.Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}
