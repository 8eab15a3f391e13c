package crawler

import (
	"context"
	"time"
)

// Fetcher executes one fetch attempt against the remote fetch provider.
// Implementations exist per strategy tier; the escalator decides which one
// to call and how to interpret the outcome.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResult, error)
}

// ObjectStore persists raw document bytes under deterministic keys.
// Put must tolerate duplicate calls for the same key and bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte, metadata map[string]string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Ledger receives progress and terminal reports. Delivery failures must not
// abort the crawl; the orchestrator logs and continues.
type Ledger interface {
	ReportProgress(ctx context.Context, jobID string, counters JobCounters) error
	ReportTerminal(ctx context.Context, jobID string, status JobStatus, summary JobSummary) error
}

// JobStore persists job, page, document, and skip metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, counters JobCounters) error
	RecordPage(ctx context.Context, page PageRecord) error
	RecordDocument(ctx context.Context, doc DocumentRecord) error
	RecordSkip(ctx context.Context, skip SkippedURL) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	ListPages(ctx context.Context, jobID string) ([]PageRecord, error)
	ListDocuments(ctx context.Context, jobID string) ([]DocumentRecord, error)
	ListSkips(ctx context.Context, jobID string) ([]SkippedURL, error)
}

// Queue provides enqueue/dequeue semantics for crawl jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
