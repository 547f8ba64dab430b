// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

// Package metrics collects and exposes the Prometheus metrics of the portal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psu-triup/portal/internal/access"
)

// Collector records gate, backend, import, session and audit metrics.
//
// It satisfies [access.Observer] and the backend client's observer.
type Collector struct {
	gateDecisions   *prometheus.CounterVec
	identityLatency *prometheus.HistogramVec
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	importRuns      *prometheus.CounterVec
	sessionsEnded   *prometheus.CounterVec
	auditDropped    prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_gate_decisions_total",
			Help: "Terminal access gate decisions by area and outcome.",
		}, []string{"area", "outcome"}),
		identityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_identity_check_seconds",
			Help:    "Latency of backend identity checks issued by the gate.",
			Buckets: prometheus.DefBuckets,
		}, []string{"area"}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_backend_requests_total",
			Help: "Backend API calls by endpoint and HTTP status (0 when unreachable).",
		}, []string{"endpoint", "status"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_backend_request_seconds",
			Help:    "Backend API call latency by endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		importRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_import_runs_total",
			Help: "Import script runs by script and result.",
		}, []string{"script", "result"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_sessions_invalidated_total",
			Help: "Portal sessions removed, by reason.",
		}, []string{"reason"}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_audit_dropped_total",
			Help: "Audit entries dropped because the buffer was full.",
		}),
	}

	reg.MustRegister(
		c.gateDecisions,
		c.identityLatency,
		c.backendRequests,
		c.backendLatency,
		c.importRuns,
		c.sessionsEnded,
		c.auditDropped,
	)

	return c
}

// ObserveDecision counts one terminal gate state.
func (c *Collector) ObserveDecision(area string, state access.State) {
	c.gateDecisions.WithLabelValues(area, state.String()).Inc()
}

// ObserveIdentityCheck records the latency of one identity call.
func (c *Collector) ObserveIdentityCheck(area string, elapsed time.Duration) {
	c.identityLatency.WithLabelValues(area).Observe(elapsed.Seconds())
}

// ObserveBackendRequest records one backend API call.
func (c *Collector) ObserveBackendRequest(endpoint string, status int, elapsed time.Duration) {
	c.backendRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	c.backendLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordImportRun counts one import script run.
func (c *Collector) RecordImportRun(script string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.importRuns.WithLabelValues(script, result).Inc()
}

// RecordSessionInvalidated counts one removed portal session.
func (c *Collector) RecordSessionInvalidated(reason string) {
	c.sessionsEnded.WithLabelValues(reason).Inc()
}

// RecordAuditDropped counts one dropped audit entry.
func (c *Collector) RecordAuditDropped() {
	c.auditDropped.Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
