// Package metrics provides Prometheus metrics for the chat service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatRepliesTotal counts replies by intent kind and outcome (ok, fallback).
	ChatRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsbuddy",
			Name:      "chat_replies_total",
			Help:      "Total number of chat replies",
		},
		[]string{"kind", "outcome"},
	)

	// RemoteCallDuration measures outbound calls to the news service.
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsbuddy",
			Name:      "remote_call_duration_seconds",
			Help:      "Duration of news service calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// RemoteErrorsTotal counts failed remote calls by error kind.
	RemoteErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsbuddy",
			Name:      "remote_errors_total",
			Help:      "Total number of failed news service calls",
		},
		[]string{"operation", "error_kind"},
	)

	// RejectedSubmissionsTotal counts submissions refused by the session gate.
	RejectedSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsbuddy",
			Name:      "rejected_submissions_total",
			Help:      "Chat submissions rejected while busy or disconnected",
		},
		[]string{"reason"},
	)

	// RemoteConnected tracks the last health check (1 = connected, 0 = disconnected).
	RemoteConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsbuddy",
			Name:      "remote_connected",
			Help:      "News service connectivity as seen by the health monitor",
		},
	)
)

// RecordReply records a chat reply.
func RecordReply(kind string, fallback bool) {
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	ChatRepliesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordRemoteCall records the duration of a remote call.
func RecordRemoteCall(operation string, seconds float64) {
	RemoteCallDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordRemoteError records a failed remote call.
func RecordRemoteError(operation, errorKind string) {
	RemoteErrorsTotal.WithLabelValues(operation, errorKind).Inc()
}

// RecordRejected records a refused submission.
func RecordRejected(reason string) {
	RejectedSubmissionsTotal.WithLabelValues(reason).Inc()
}

// SetConnected sets the connectivity gauge.
func SetConnected(connected bool) {
	if connected {
		RemoteConnected.Set(1)
		return
	}
	RemoteConnected.Set(0)
}
