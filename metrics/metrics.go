// Package metrics exports Manager events as Prometheus metrics.
package metrics

import (
	"time"

	sio "github.com/karagenc/sio-client-go"
	"github.com/karagenc/sio-client-go/emitter"
	"github.com/karagenc/sio-client-go/parser"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultNamespace = "sio_client"

// 1ms -> 10s
var latencyBuckets = []float64{
	0.001, 0.002, 0.005, 0.010, 0.025, 0.050, 0.1, 0.2,
	0.4, 0.8, 1.0, 2, 5, 10,
}

type Metrics struct {
	opens             *prometheus.CounterVec
	closes            *prometheus.CounterVec
	connectErrors     *prometheus.CounterVec
	connectTimeouts   *prometheus.CounterVec
	reconnectAttempts *prometheus.CounterVec
	reconnects        *prometheus.CounterVec
	reconnectFailures *prometheus.CounterVec
	errors            *prometheus.CounterVec
	packets           *prometheus.CounterVec
	pongLatency       *prometheus.HistogramVec
}

// New creates the collectors and registers them to reg.
// If namespace is empty, DefaultNamespace is used.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, append([]string{"url"}, labels...))
	}

	m := &Metrics{
		opens:             counter("opens_total", "Number of times the connection was opened"),
		closes:            counter("closes_total", "Number of times the connection was closed", "reason"),
		connectErrors:     counter("connect_errors_total", "Number of failed connection attempts"),
		connectTimeouts:   counter("connect_timeouts_total", "Number of connection attempts that timed out"),
		reconnectAttempts: counter("reconnect_attempts_total", "Number of reconnection attempts"),
		reconnects:        counter("reconnects_total", "Number of successful reconnections"),
		reconnectFailures: counter("reconnect_failures_total", "Number of times reconnection was given up"),
		errors:            counter("errors_total", "Number of transport and decoding errors"),
		packets:           counter("packets_received_total", "Number of received packets", "type"),
		pongLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pong_latency_seconds",
			Help:      "Histogram for the time between a ping and the following pong",
			Buckets:   latencyBuckets,
		}, []string{"url"}),
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.opens,
		m.closes,
		m.connectErrors,
		m.connectTimeouts,
		m.reconnectAttempts,
		m.reconnects,
		m.reconnectFailures,
		m.errors,
		m.packets,
		m.pongLatency,
	}
}

// Instrument starts recording the events of manager.
// Destroy the returned subscriptions to stop.
func (m *Metrics) Instrument(manager *sio.Manager) *emitter.Subscriptions {
	url := manager.URL()
	subs := emitter.NewSubscriptions()
	subs.Add(
		manager.OnOpen(func() {
			m.opens.WithLabelValues(url).Inc()
		}),
		manager.OnClose(func(reason sio.Reason, err error) {
			m.closes.WithLabelValues(url, reason).Inc()
		}),
		manager.OnConnectError(func(err error) {
			m.connectErrors.WithLabelValues(url).Inc()
		}),
		manager.OnConnectTimeout(func(time.Duration) {
			m.connectTimeouts.WithLabelValues(url).Inc()
		}),
		manager.OnReconnectAttempt(func(uint32) {
			m.reconnectAttempts.WithLabelValues(url).Inc()
		}),
		manager.OnReconnect(func(uint32) {
			m.reconnects.WithLabelValues(url).Inc()
		}),
		manager.OnReconnectFailed(func() {
			m.reconnectFailures.WithLabelValues(url).Inc()
		}),
		manager.OnError(func(err error) {
			m.errors.WithLabelValues(url).Inc()
		}),
		manager.OnPacket(func(packet *parser.Packet) {
			m.packets.WithLabelValues(url, packet.Type.String()).Inc()
		}),
		manager.OnPong(func(latency time.Duration) {
			m.pongLatency.WithLabelValues(url).Observe(latency.Seconds())
		}),
	)
	return subs
}
