// Package metrics defines the prometheus collectors for sync activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label names.
const (
	LabelOutcome   = "outcome"
	LabelOperation = "operation"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeOffline = "offline"
)

// Sync metrics
var (
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regs_sync_runs_total",
			Help: "Sync passes by outcome",
		},
		[]string{LabelOutcome},
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "regs_sync_duration_seconds",
			Help:    "Wall time of a sync pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordsPushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regs_records_pushed_total",
			Help: "Pending records pushed to the remote store",
		},
		[]string{LabelOutcome},
	)

	RecordsPulled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "regs_records_pulled_total",
			Help: "Records received from owner queries",
		},
	)

	PullFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "regs_pull_failures_total",
			Help: "Owner queries that failed and left the local collection authoritative",
		},
	)
)

// Remote mirror metrics
var (
	RemoteWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regs_remote_writes_total",
			Help: "Remote upserts and deletes issued by lifecycle operations",
		},
		[]string{LabelOperation, LabelOutcome},
	)

	PendingDeletes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "regs_pending_deletes",
			Help: "Records deleted locally whose remote delete is still owed",
		},
	)
)

// Outcome maps an error to an outcome label value.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Remote server metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regs_http_requests_total",
			Help: "Requests served by the remote record service",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "regs_http_request_duration_seconds",
			Help:    "Request latency of the remote record service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "regs_http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)
)
