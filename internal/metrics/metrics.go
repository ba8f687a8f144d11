// Package metrics holds Keel's Prometheus collectors, exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keel_sessions_processed_total",
		Help: "Coaching sessions run through commitment extraction.",
	})

	CommitmentsExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keel_commitments_extracted_total",
		Help: "Commitments produced by the extractor before deduplication.",
	})

	CommitmentsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keel_commitments_inserted_total",
		Help: "Commitment rows actually written after deduplication.",
	})

	CommitmentsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keel_commitments_deduplicated_total",
		Help: "Extracted commitments dropped as duplicates of open ones.",
	})

	ReminderRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keel_reminder_runs_total",
		Help: "Completed reminder scheduler runs.",
	})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keel_reminder_emails_sent_total",
		Help: "Reminder emails dispatched, by category.",
	}, []string{"category"})

	EmailFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keel_reminder_email_failures_total",
		Help: "Reminder email dispatch failures, by category.",
	}, []string{"category"})
)
