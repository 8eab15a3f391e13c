// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagehound/pagehound/internal/crawler"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns" yaml:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// JobStore writes job, page, document, and skip rows into Postgres.
type JobStore struct {
	pool pgxPool
}

// NewJobStore creates a Postgres-backed JobStore using the provided config.
func NewJobStore(ctx context.Context, cfg Config) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: pool}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewJobStoreWithPool(pool pgxPool) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob inserts a new job row.
func (s *JobStore) CreateJob(ctx context.Context, job crawler.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	query := `
INSERT INTO jobs (
	id,
	status,
	allowed_domain,
	submitted_at,
	seed_url,
	max_pages,
	max_documents,
	max_depth,
	per_request_timeout_ms,
	total_timeout_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err := s.pool.Exec(ctx, query,
		job.ID,
		string(job.Status),
		job.AllowedDomain,
		job.Submitted,
		job.Parameters.SeedURL,
		job.Parameters.MaxPages,
		job.Parameters.MaxDocuments,
		job.Parameters.MaxDepth,
		job.Parameters.PerRequestTimeout.Milliseconds(),
		job.Parameters.TotalTimeout.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJobStatus transitions a job's status and refreshes its counters.
// Terminal statuses also stamp finished_at.
func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID string, status crawler.JobStatus, errText string, counters crawler.JobCounters) error {
	query := `
UPDATE jobs SET
	status = $2,
	error_text = NULLIF($3, ''),
	pages_crawled = $4,
	documents_downloaded = $5,
	urls_skipped = $6,
	fetch_failures = $7,
	started_at = CASE WHEN $2 = 'running' AND started_at IS NULL THEN now() ELSE started_at END,
	finished_at = CASE WHEN $8 THEN now() ELSE finished_at END
WHERE id = $1;
`
	tag, err := s.pool.Exec(ctx, query,
		jobID,
		string(status),
		errText,
		counters.PagesCrawled,
		counters.DocumentsDownloaded,
		counters.URLsSkipped,
		counters.FetchFailures,
		status.IsTerminal(),
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", jobID)
	}
	return nil
}

// RecordPage inserts a crawled page row.
func (s *JobStore) RecordPage(ctx context.Context, page crawler.PageRecord) error {
	query := `
INSERT INTO pages (
	job_id,
	url,
	depth,
	status_code,
	tier,
	content_hash,
	fetched_at,
	duration_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := s.pool.Exec(ctx, query,
		page.JobID,
		page.URL,
		page.Depth,
		page.StatusCode,
		page.Tier,
		page.ContentHash,
		page.FetchedAt,
		page.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

// RecordDocument inserts a stored document row. The (job_id, content_hash)
// unique constraint backstops the in-process dedup: a conflicting insert is
// treated as already recorded.
func (s *JobStore) RecordDocument(ctx context.Context, doc crawler.DocumentRecord) error {
	query := `
INSERT INTO documents (
	job_id,
	content_hash,
	source_url,
	storage_key,
	storage_uri,
	byte_size,
	content_type,
	discovered_at_depth,
	stored_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (job_id, content_hash) DO NOTHING;
`
	_, err := s.pool.Exec(ctx, query,
		doc.JobID,
		doc.ContentHash,
		doc.SourceURL,
		doc.StorageKey,
		doc.StorageURI,
		doc.ByteSize,
		doc.ContentType,
		doc.Depth,
		doc.StoredAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// RecordSkip inserts a skipped URL row.
func (s *JobStore) RecordSkip(ctx context.Context, skip crawler.SkippedURL) error {
	query := `INSERT INTO skipped_urls (job_id, url, reason) VALUES ($1, $2, $3);`
	_, err := s.pool.Exec(ctx, query, skip.JobID, skip.URL, skip.Reason)
	if err != nil {
		return fmt.Errorf("insert skip: %w", err)
	}
	return nil
}

// GetJob loads a job row by ID.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (crawler.Job, error) {
	query := `
SELECT
	id,
	status,
	allowed_domain,
	submitted_at,
	started_at,
	finished_at,
	COALESCE(error_text, ''),
	seed_url,
	max_pages,
	max_documents,
	max_depth,
	per_request_timeout_ms,
	total_timeout_ms,
	pages_crawled,
	documents_downloaded,
	urls_skipped,
	fetch_failures
FROM jobs WHERE id = $1;
`
	var (
		job          crawler.Job
		status       string
		perRequestMS int64
		totalMS      int64
	)
	err := s.pool.QueryRow(ctx, query, jobID).Scan(
		&job.ID,
		&status,
		&job.AllowedDomain,
		&job.Submitted,
		&job.Started,
		&job.Finished,
		&job.ErrorText,
		&job.Parameters.SeedURL,
		&job.Parameters.MaxPages,
		&job.Parameters.MaxDocuments,
		&job.Parameters.MaxDepth,
		&perRequestMS,
		&totalMS,
		&job.Counters.PagesCrawled,
		&job.Counters.DocumentsDownloaded,
		&job.Counters.URLsSkipped,
		&job.Counters.FetchFailures,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crawler.Job{}, fmt.Errorf("job %s not found", jobID)
		}
		return crawler.Job{}, fmt.Errorf("select job: %w", err)
	}
	job.Status = crawler.JobStatus(status)
	job.Parameters.PerRequestTimeout = time.Duration(perRequestMS) * time.Millisecond
	job.Parameters.TotalTimeout = time.Duration(totalMS) * time.Millisecond
	return job, nil
}

// ListPages returns the page rows for a job ordered by fetch time.
func (s *JobStore) ListPages(ctx context.Context, jobID string) ([]crawler.PageRecord, error) {
	query := `
SELECT job_id, url, depth, status_code, tier, content_hash, fetched_at, duration_ms
FROM pages WHERE job_id = $1 ORDER BY fetched_at;
`
	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("select pages: %w", err)
	}
	defer rows.Close()

	var pages []crawler.PageRecord
	for rows.Next() {
		var p crawler.PageRecord
		if err := rows.Scan(&p.JobID, &p.URL, &p.Depth, &p.StatusCode, &p.Tier, &p.ContentHash, &p.FetchedAt, &p.DurationMs); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

// ListDocuments returns the document rows for a job ordered by storage time.
func (s *JobStore) ListDocuments(ctx context.Context, jobID string) ([]crawler.DocumentRecord, error) {
	query := `
SELECT job_id, content_hash, source_url, storage_key, storage_uri, byte_size, content_type, discovered_at_depth, stored_at
FROM documents WHERE job_id = $1 ORDER BY stored_at;
`
	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("select documents: %w", err)
	}
	defer rows.Close()

	var docs []crawler.DocumentRecord
	for rows.Next() {
		var d crawler.DocumentRecord
		if err := rows.Scan(&d.JobID, &d.ContentHash, &d.SourceURL, &d.StorageKey, &d.StorageURI, &d.ByteSize, &d.ContentType, &d.Depth, &d.StoredAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// ListSkips returns the skipped URL rows for a job.
func (s *JobStore) ListSkips(ctx context.Context, jobID string) ([]crawler.SkippedURL, error) {
	query := `SELECT job_id, url, reason FROM skipped_urls WHERE job_id = $1 ORDER BY id;`
	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("select skips: %w", err)
	}
	defer rows.Close()

	var skips []crawler.SkippedURL
	for rows.Next() {
		var sk crawler.SkippedURL
		if err := rows.Scan(&sk.JobID, &sk.URL, &sk.Reason); err != nil {
			return nil, fmt.Errorf("scan skip: %w", err)
		}
		skips = append(skips, sk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skips: %w", err)
	}
	return skips, nil
}
