// Package metrics exposes pipeline counters and gauges to Prometheus.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pez-globo/ventserver/internal/message"
)

const namespace = "ventserver"

// Metrics holds the pipeline collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	received       *prometheus.CounterVec
	sent           *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	sendFailures   *prometheus.CounterVec
	queueDrops     prometheus.Counter
	queueLength    prometheus.Gauge
	connected      prometheus.Gauge
	delayed        prometheus.Counter
	stepLatency    prometheus.Histogram
	logResets      prometheus.Gauge
	logBacklog     prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Inbound events accepted into the pipeline, by transport.",
		}, []string{"transport"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_sent_total",
			Help:      "Outbound payloads handed to a transport, by transport.",
		}, []string{"transport"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Inbound payloads dropped because they could not be decoded.",
		}, []string{"transport", "kind"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outbound payloads a transport failed to accept.",
		}, []string{"transport"}),
		queueDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dropped_total",
			Help:      "Inbound events rejected because the pipeline queue was full.",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_length",
			Help:      "Inbound events waiting for the pipeline.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontend_connected",
			Help:      "1 while the frontend is considered live.",
		}),
		delayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frontend_delayed_total",
			Help:      "Pipeline steps that withheld frontend output.",
		}),
		stepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time to run one event through the protocol stack.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14),
		}),
		logResets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mcu_log_resets",
			Help:      "Times the MCU restarted log replication since startup.",
		}),
		logBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontend_log_unacknowledged",
			Help:      "Retained log events the frontend has not acknowledged.",
		}),
	}
	m.registry.MustRegister(
		m.received, m.sent, m.decodeFailures, m.sendFailures,
		m.queueDrops, m.queueLength, m.connected, m.delayed, m.stepLatency,
		m.logResets, m.logBacklog,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EventReceived(transport string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(transport).Inc()
}

func (m *Metrics) PayloadSent(transport string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(transport).Inc()
}

func (m *Metrics) SendFailed(transport string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(transport).Inc()
}

func (m *Metrics) QueueDropped() {
	if m == nil {
		return
	}
	m.queueDrops.Inc()
}

func (m *Metrics) SetQueueLength(n int) {
	if m == nil {
		return
	}
	m.queueLength.Set(float64(n))
}

func (m *Metrics) FrontendDelayed() {
	if m == nil {
		return
	}
	m.delayed.Inc()
}

func (m *Metrics) ObserveStep(d time.Duration) {
	if m == nil {
		return
	}
	m.stepLatency.Observe(d.Seconds())
}

// DecodeFailed implements server.Observer.
func (m *Metrics) DecodeFailed(transport string, kind message.Kind) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(transport, kind.String()).Inc()
}

// FrontendConnectionChanged implements server.Observer.
func (m *Metrics) FrontendConnectionChanged(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

// LogReplicationChanged implements server.Observer.
func (m *Metrics) LogReplicationChanged(mcuResets, unacknowledged int) {
	if m == nil {
		return
	}
	m.logResets.Set(float64(mcuResets))
	m.logBacklog.Set(float64(unacknowledged))
}
