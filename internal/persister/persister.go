// Package persister stores downloaded documents exactly once per job,
// deduplicated by content hash.
package persister

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pagehound/pagehound/internal/crawler"
	"github.com/pagehound/pagehound/internal/usage"
)

// ErrDuplicate signals that identical content was already persisted for the
// job. Callers treat it as a no-op, not a failure.
var ErrDuplicate = errors.New("duplicate document content")

// DocFetcher retrieves the bytes for a document reference. The escalator
// satisfies this with its single low-cost tier document path.
type DocFetcher interface {
	FetchDocument(ctx context.Context, url string) crawler.FetchResult
}

// Config controls retry behavior for object store writes.
type Config struct {
	MaxStoreRetries int
	RetryBackoff    time.Duration
}

// Persister is scoped to one job. The hash set it maintains guarantees the
// job writes each distinct payload to the object store exactly once; the
// deterministic job+hash key makes a re-run's writes idempotent at the
// storage layer too.
type Persister struct {
	objects crawler.ObjectStore
	fetcher DocFetcher
	hasher  crawler.Hasher
	clock   crawler.Clock
	cfg     Config
	seen    map[string]struct{}
	logger  *zap.Logger
}

// New constructs a job-scoped Persister.
func New(
	objects crawler.ObjectStore,
	fetcher DocFetcher,
	hasher crawler.Hasher,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Persister {
	if cfg.MaxStoreRetries <= 0 {
		cfg.MaxStoreRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{
		objects: objects,
		fetcher: fetcher,
		hasher:  hasher,
		clock:   clock,
		cfg:     cfg,
		seen:    make(map[string]struct{}),
		logger:  logger,
	}
}

// Persist stores one document and returns its record. When body is nil the
// reference is fetched first via the basic tier. Returns ErrDuplicate when
// the job has already stored identical bytes.
func (p *Persister) Persist(
	ctx context.Context,
	jobID string,
	sourceURL string,
	body []byte,
	contentType string,
	depth int,
) (crawler.DocumentRecord, error) {
	if body == nil {
		res := p.fetcher.FetchDocument(ctx, sourceURL)
		if !res.OK() {
			return crawler.DocumentRecord{}, fmt.Errorf("fetch document %s: %s", sourceURL, res.ErrorText)
		}
		body = res.Body
		if res.ContentType != "" {
			contentType = res.ContentType
		}
	}
	if len(body) == 0 {
		return crawler.DocumentRecord{}, fmt.Errorf("document %s has empty body", sourceURL)
	}

	hash, err := p.hasher.Hash(body)
	if err != nil {
		return crawler.DocumentRecord{}, fmt.Errorf("hash document: %w", err)
	}
	if _, dup := p.seen[hash]; dup {
		usage.DuplicateDocuments.Inc()
		return crawler.DocumentRecord{}, ErrDuplicate
	}

	key := StorageKey(jobID, hash, contentType)
	uri, err := p.putWithRetries(ctx, key, contentType, body, map[string]string{
		"job_id":     jobID,
		"source_url": sourceURL,
		"depth":      strconv.Itoa(depth),
	})
	if err != nil {
		return crawler.DocumentRecord{}, err
	}

	p.seen[hash] = struct{}{}
	usage.DocumentsStored.Inc()
	return crawler.DocumentRecord{
		JobID:       jobID,
		ContentHash: hash,
		SourceURL:   sourceURL,
		StorageKey:  key,
		StorageURI:  uri,
		ByteSize:    len(body),
		ContentType: contentType,
		Depth:       depth,
		StoredAt:    p.clock.Now(),
	}, nil
}

func (p *Persister) putWithRetries(
	ctx context.Context,
	key string,
	contentType string,
	body []byte,
	metadata map[string]string,
) (string, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxStoreRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("store retry wait: %w", ctx.Err())
			case <-time.After(p.cfg.RetryBackoff << (attempt - 1)):
			}
		}
		uri, err := p.objects.Put(ctx, key, contentType, body, metadata)
		if err == nil {
			return uri, nil
		}
		lastErr = err
		p.logger.Warn("object store put failed",
			zap.String("key", key),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return "", fmt.Errorf("put object after %d attempts: %w", p.cfg.MaxStoreRetries, lastErr)
}

// StorageKey derives the deterministic object key for a document. It
// encodes the job ID and content hash so overlapping jobs never collide.
func StorageKey(jobID, hash, contentType string) string {
	return fmt.Sprintf("jobs/%s/docs/%s%s", jobID, hash, extensionFor(contentType))
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}
	switch mediaType {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "text/csv":
		return ".csv"
	case "application/msword":
		return ".doc"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "application/vnd.ms-excel":
		return ".xls"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	default:
		return ".bin"
	}
}
