package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initSignalMetrics(cfg Config) {
	m.publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_publishes_total",
			Help: "Total number of publish calls",
		},
		[]string{"signal", "mode"},
	)

	m.deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_deliveries_total",
			Help: "Total number of successful subscriber deliveries",
		},
		[]string{"signal", "mode"},
	)

	m.errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_errors_total",
			Help: "Total number of subscriber and publish failures",
		},
		[]string{"signal", "reason"},
	)

	m.subscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signal_subscribers",
			Help: "Current number of live subscribers",
		},
		[]string{"signal"},
	)

	m.publishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_publish_duration_seconds",
			Help:    "Publish dispatch duration in seconds",
			Buckets: cfg.PublishDurationBuckets,
		},
		[]string{"signal", "mode"},
	)

	m.registry.MustRegister(m.publishes)
	m.registry.MustRegister(m.deliveries)
	m.registry.MustRegister(m.errors)
	m.registry.MustRegister(m.subscribers)
	m.registry.MustRegister(m.publishDuration)
}

// RecordPublish records one publish dispatch.
func (m *Manager) RecordPublish(signal string, mode string) {
	if !m.enabled {
		return
	}
	m.publishes.WithLabelValues(signal, mode).Inc()
}

// RecordDelivery records one successful subscriber delivery.
func (m *Manager) RecordDelivery(signal string, mode string) {
	if !m.enabled {
		return
	}
	m.deliveries.WithLabelValues(signal, mode).Inc()
}

// RecordError records a subscriber or publish failure by reason.
func (m *Manager) RecordError(signal string, reason string) {
	if !m.enabled {
		return
	}
	m.errors.WithLabelValues(signal, reason).Inc()
}

// ObserveSubscribers records the current live-subscriber count.
func (m *Manager) ObserveSubscribers(signal string, count int) {
	if !m.enabled {
		return
	}
	m.subscribers.WithLabelValues(signal).Set(float64(count))
}

// ObservePublishDuration records one dispatch duration.
func (m *Manager) ObservePublishDuration(signal string, mode string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.publishDuration.WithLabelValues(signal, mode).Observe(d.Seconds())
}
