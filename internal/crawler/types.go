// Package crawler defines core types shared across the crawl engine subsystems.
package crawler

import (
	"net/http"
	"time"
)

// JobStatus represents the lifecycle state of a crawl job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status is a final lifecycle state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// JobParameters captures per-job configuration knobs requested by the client.
type JobParameters struct {
	SeedURL           string        `json:"seed_url"`
	MaxPages          int           `json:"max_pages"`
	MaxDocuments      int           `json:"max_documents"`
	MaxDepth          int           `json:"max_depth"`
	PerRequestTimeout time.Duration `json:"per_request_timeout"`
	TotalTimeout      time.Duration `json:"total_timeout"`
}

// Job represents the metadata persisted for each submitted crawl request.
type Job struct {
	ID            string        `json:"id"`
	Status        JobStatus     `json:"status"`
	AllowedDomain string        `json:"allowed_domain"`
	Submitted     time.Time     `json:"submitted_at"`
	Started       *time.Time    `json:"started_at,omitempty"`
	Finished      *time.Time    `json:"finished_at,omitempty"`
	ErrorText     string        `json:"error_text,omitempty"`
	Parameters    JobParameters `json:"parameters"`
	Counters      JobCounters   `json:"counters"`
}

// JobCounters tracks traversal progress per job.
type JobCounters struct {
	PagesCrawled        int `json:"pages_crawled"`
	DocumentsDownloaded int `json:"documents_downloaded"`
	URLsSkipped         int `json:"urls_skipped"`
	FetchFailures       int `json:"fetch_failures"`
}

// FrontierEntry is one URL pending traversal, annotated with discovery depth.
type FrontierEntry struct {
	URL            string `json:"url"`
	Depth          int    `json:"depth"`
	DiscoveredFrom string `json:"discovered_from,omitempty"`
}

// FetchRequest carries one fetch attempt's parameters down to a Fetcher.
// Tier settings (proxy class, render wait) are interpreted by the
// implementation; basic HTTP fetchers ignore the rendering knobs.
type FetchRequest struct {
	URL        string
	Timeout    time.Duration
	Wait       time.Duration
	ProxyClass string
	Headers    http.Header
}

// FetchResult is the outcome of one escalated fetch. Ordinary HTTP and
// network failures are reported through StatusCode/ErrorText rather than as
// Go errors so the orchestrator can keep traversing.
type FetchResult struct {
	URL         string        `json:"url"`
	FinalURL    string        `json:"final_url"`
	StatusCode  int           `json:"status_code"`
	Body        []byte        `json:"-"`
	ContentType string        `json:"content_type"`
	Tier        int           `json:"tier"`
	Elapsed     time.Duration `json:"elapsed"`
	ErrorText   string        `json:"error_text,omitempty"`
}

// OK reports whether the fetch yielded a usable HTTP success.
func (r FetchResult) OK() bool {
	return r.ErrorText == "" && r.StatusCode >= 200 && r.StatusCode < 300
}

// PageRecord is persisted for each successfully crawled page.
type PageRecord struct {
	JobID       string    `json:"job_id"`
	URL         string    `json:"url"`
	Depth       int       `json:"depth"`
	StatusCode  int       `json:"status_code"`
	Tier        int       `json:"tier"`
	ContentHash string    `json:"content_hash"`
	FetchedAt   time.Time `json:"fetched_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// DocumentRecord is created on first sight of a document's content hash
// within a job. The storage key encodes the job ID and hash so overlapping
// jobs never collide and re-runs recognize already-stored content.
type DocumentRecord struct {
	JobID       string    `json:"job_id"`
	ContentHash string    `json:"content_hash"`
	SourceURL   string    `json:"source_url"`
	StorageKey  string    `json:"storage_key"`
	StorageURI  string    `json:"storage_uri"`
	ByteSize    int       `json:"byte_size"`
	ContentType string    `json:"content_type"`
	Depth       int       `json:"discovered_at_depth"`
	StoredAt    time.Time `json:"stored_at"`
}

// SkippedURL records a URL that was dropped from traversal and why.
type SkippedURL struct {
	JobID  string `json:"job_id"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// TierConfig describes one fetch strategy, ordered by cost.
type TierConfig struct {
	Name           string        `mapstructure:"name" json:"name"`
	Render         bool          `mapstructure:"render" json:"render"`
	ProxyClass     string        `mapstructure:"proxy_class" json:"proxy_class"`
	Wait           time.Duration `mapstructure:"wait" json:"wait"`
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout"`
	CostPerRequest float64       `mapstructure:"cost_per_request" json:"cost_per_request"`
}

// TierUsage is the per-tier slice of a usage snapshot.
type TierUsage struct {
	Name      string `json:"name"`
	Requests  int64  `json:"requests"`
	Successes int64  `json:"successes"`
}

// UsageSnapshot is a point-in-time view of fetch spend for one job.
type UsageSnapshot struct {
	Tiers            []TierUsage `json:"tiers"`
	EstimatedCost    float64     `json:"estimated_cost"`
	EstimatedSavings float64     `json:"estimated_savings"`
}

// JobSummary accompanies the terminal ledger report.
type JobSummary struct {
	Counters JobCounters   `json:"counters"`
	Skipped  []SkippedURL  `json:"skipped,omitempty"`
	Usage    UsageSnapshot `json:"usage"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Params    JobParameters
	Submitted int64
}
