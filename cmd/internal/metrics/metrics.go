// Package metrics exposes Prometheus collectors for the client.
//
// A nil *Metrics is valid and records nothing, so callers never need to guard.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "iostack_client"

// Metrics groups the client's collectors.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	packets         *prometheus.CounterVec
	renewals        *prometheus.CounterVec
	reportedErrors  prometheus.Counter
}

// New builds the collectors and registers them with reg.
// Collectors already registered by an earlier client are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Platform calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time to response headers for platform calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_packets_total",
			Help:      "Decoded stream packets by type.",
		}, []string{"type"}),
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_renewals_total",
			Help:      "Credential renewals by token kind.",
		}, []string{"token"}),
		reportedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reported_errors_total",
			Help:      "Errors delivered to application error handlers.",
		}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	m.requests, err = register(reg, m.requests)
	if err != nil {
		return nil, err
	}
	m.requestDuration, err = register(reg, m.requestDuration)
	if err != nil {
		return nil, err
	}
	m.packets, err = register(reg, m.packets)
	if err != nil {
		return nil, err
	}
	m.renewals, err = register(reg, m.renewals)
	if err != nil {
		return nil, err
	}
	m.reportedErrors, err = register(reg, m.reportedErrors)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveRequest records one platform call.
func (m *Metrics) ObserveRequest(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObservePacket records one decoded stream packet.
func (m *Metrics) ObservePacket(packetType string) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues(packetType).Inc()
}

// ObserveRenewal records one credential renewal.
func (m *Metrics) ObserveRenewal(tokenKind string) {
	if m == nil {
		return
	}
	m.renewals.WithLabelValues(tokenKind).Inc()
}

// ObserveReportedError records one error-handler delivery.
func (m *Metrics) ObserveReportedError() {
	if m == nil {
		return
	}
	m.reportedErrors.Inc()
}
