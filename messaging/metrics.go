// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync scopes used as the "scope" label.
const (
	scopeRoom    = "room"
	scopeInvites = "invites"
)

// Sync outcomes used as the "result" label.
const (
	resultOK        = "ok"
	resultTransport = "transport_error"
	resultDecode    = "decode_error"
)

// Metrics counts polling outcomes. A nil *Metrics is valid and records
// nothing, so cursors and scanners work without a registry.
type Metrics struct {
	syncs        *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	events       *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	invites      prometheus.Gauge
}

// NewMetrics creates the polling metrics and registers them with
// registerer. It panics if they are already registered, like
// prometheus.MustRegister.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matrixbot",
			Name:      "syncs_total",
			Help:      "Sync requests by scope (room, invites) and result (ok, transport_error, decode_error).",
		}, []string{"scope", "result"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "matrixbot",
			Name:      "sync_duration_seconds",
			Help:      "Wall time of sync requests including decoding.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matrixbot",
			Name:      "events_delivered_total",
			Help:      "Timeline events delivered to callers, by event type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matrixbot",
			Name:      "events_dropped_total",
			Help:      "Events left out of decoded sync results, by reason (unrecognized, malformed).",
		}, []string{"reason"}),
		invites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matrixbot",
			Name:      "pending_invites",
			Help:      "Invited rooms found by the most recent successful invite scan.",
		}),
	}
	registerer.MustRegister(
		metrics.syncs,
		metrics.syncDuration,
		metrics.events,
		metrics.dropped,
		metrics.invites,
	)
	return metrics
}

func (m *Metrics) observeSync(scope, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(scope, result).Inc()
	m.syncDuration.WithLabelValues(scope).Observe(elapsed.Seconds())
}

func (m *Metrics) observeDecoded(result *SyncResult, delivered []RoomEvent) {
	if m == nil {
		return
	}
	for _, event := range delivered {
		m.events.WithLabelValues(event.Type().String()).Inc()
	}
	for _, dropped := range result.Dropped {
		m.dropped.WithLabelValues(string(dropped.Reason)).Inc()
	}
}

func (m *Metrics) setInvites(count int) {
	if m == nil {
		return
	}
	m.invites.Set(float64(count))
}
