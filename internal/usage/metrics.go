package usage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts tracks fetch attempts per strategy tier across all jobs.
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagehound_fetch_attempts_total",
		Help: "The total number of fetch attempts issued, by strategy tier.",
	}, []string{"tier"})
	// FetchSuccesses tracks successful fetches per strategy tier.
	FetchSuccesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagehound_fetch_successes_total",
		Help: "The total number of successful fetches, by strategy tier.",
	}, []string{"tier"})
	// TierEscalations tracks how often a fetch had to move up a tier.
	TierEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagehound_tier_escalations_total",
		Help: "The total number of tier escalations triggered by failed or incomplete fetches.",
	})
	// DocumentsStored tracks documents persisted to the object store.
	DocumentsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagehound_documents_stored_total",
		Help: "The total number of deduplicated documents written to the object store.",
	})
	// DuplicateDocuments tracks documents skipped by content-hash dedup.
	DuplicateDocuments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagehound_duplicate_documents_total",
		Help: "The total number of documents recognized as duplicates and not re-stored.",
	})
)
