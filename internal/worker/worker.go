// Package worker implements the per-job crawl orchestration loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pagehound/pagehound/internal/crawler"
	"github.com/pagehound/pagehound/internal/escalator"
	"github.com/pagehound/pagehound/internal/frontier"
	"github.com/pagehound/pagehound/internal/persister"
	"github.com/pagehound/pagehound/internal/usage"
)

// DomainLimiter throttles fetches per domain. A nil limiter disables
// politeness waits.
type DomainLimiter interface {
	Wait(ctx context.Context, url string) error
}

// Config controls Worker behavior shared across jobs.
type Config struct {
	Tiers        []crawler.TierConfig
	Completeness crawler.CompletenessConfig
	Persist      persister.Config
}

// Worker consumes queue items and drives each crawl job through its state
// machine: Pending -> Running -> {Completed, Failed, Cancelled}. Within one
// job every step is sequential, so the frontier, counters, and site memory
// need no locking; concurrency comes from running multiple Workers over the
// shared queue, each owning its jobs outright.
type Worker struct {
	queue    crawler.Queue
	jobStore crawler.JobStore
	objects  crawler.ObjectStore
	ledger   crawler.Ledger
	hasher   crawler.Hasher
	clock    crawler.Clock
	fetchers []crawler.Fetcher
	limiter  DomainLimiter
	cancels  *Canceller
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Worker.
func New(
	queue crawler.Queue,
	jobStore crawler.JobStore,
	objects crawler.ObjectStore,
	ledger crawler.Ledger,
	hasher crawler.Hasher,
	clock crawler.Clock,
	fetchers []crawler.Fetcher,
	limiter DomainLimiter,
	cancels *Canceller,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:    queue,
		jobStore: jobStore,
		objects:  objects,
		ledger:   ledger,
		hasher:   hasher,
		clock:    clock,
		fetchers: fetchers,
		limiter:  limiter,
		cancels:  cancels,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

// jobRun holds the single-threaded mutable state of one crawl.
type jobRun struct {
	jobID     string
	params    crawler.JobParameters
	domain    string
	frontier  *frontier.Frontier
	esc       *escalator.Escalator
	pers      *persister.Persister
	acct      *usage.Accountant
	counters  crawler.JobCounters
	skipped   []crawler.SkippedURL
	deadline  time.Time
	startedAt time.Time
}

func (w *Worker) processJob(ctx context.Context, item crawler.QueueItem) {
	run, err := w.startJob(ctx, item)
	if err != nil {
		w.failJob(ctx, item.JobID, err)
		return
	}

	status := w.crawl(ctx, run)
	w.finishJob(ctx, run, status)
}

// startJob validates configuration and prepares job-scoped state. A fatal
// configuration error here surfaces as job Failed before any fetch is
// attempted.
func (w *Worker) startJob(ctx context.Context, item crawler.QueueItem) (*jobRun, error) {
	params := item.Params

	seed, err := crawler.NormalizeURL(params.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed url: %w", err)
	}
	domain, err := crawler.Hostname(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed url: %w", err)
	}
	if params.MaxPages <= 0 || params.MaxDocuments < 0 || params.MaxDepth < 0 {
		return nil, errors.New("invalid crawl ceilings")
	}

	acct := usage.NewAccountant(w.cfg.Tiers)
	esc, err := escalator.New(w.cfg.Tiers, w.fetchers, w.cfg.Completeness, acct, w.logger)
	if err != nil {
		return nil, fmt.Errorf("build escalator: %w", err)
	}
	pers := persister.New(w.objects, esc, w.hasher, w.clock, w.cfg.Persist, w.logger)

	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, crawler.JobStatusRunning, "", crawler.JobCounters{}); err != nil {
		return nil, fmt.Errorf("mark job running: %w", err)
	}

	run := &jobRun{
		jobID:     item.JobID,
		params:    params,
		domain:    domain,
		frontier:  frontier.New(),
		esc:       esc,
		pers:      pers,
		acct:      acct,
		startedAt: w.clock.Now(),
	}
	if params.TotalTimeout > 0 {
		run.deadline = run.startedAt.Add(params.TotalTimeout)
	}
	run.frontier.Push(crawler.FrontierEntry{URL: seed, Depth: 0})
	return run, nil
}

// crawl runs the traversal loop and returns the terminal status. Ceiling
// exhaustion and frontier exhaustion are expected, successful termination.
func (w *Worker) crawl(ctx context.Context, run *jobRun) crawler.JobStatus {
	for {
		if ctx.Err() != nil || w.cancels.Cancelled(run.jobID) {
			return crawler.JobStatusCancelled
		}
		if !run.deadline.IsZero() && w.clock.Now().After(run.deadline) {
			return crawler.JobStatusCompleted
		}
		// The two ceilings are independent: a full document budget stops new
		// documents, but page traversal continues while its own ceiling holds.
		if run.counters.PagesCrawled >= run.params.MaxPages {
			return crawler.JobStatusCompleted
		}

		entry, ok := run.frontier.Pop()
		if !ok {
			return crawler.JobStatusCompleted
		}
		if entry.Depth > run.params.MaxDepth {
			continue
		}

		w.processEntry(ctx, run, entry)
		w.reportProgress(ctx, run)
	}
}

func (w *Worker) processEntry(ctx context.Context, run *jobRun, entry crawler.FrontierEntry) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, entry.URL); err != nil {
			w.recordSkip(ctx, run, entry.URL, "rate limit wait cancelled")
			return
		}
	}

	fetchCtx := ctx
	if run.params.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, run.params.PerRequestTimeout)
		defer cancel()
	}

	res := run.esc.Fetch(fetchCtx, entry.URL)
	if !res.OK() {
		run.counters.FetchFailures++
		w.recordSkip(ctx, run, entry.URL, "fetch failed: "+res.ErrorText)
		return
	}

	switch kind := crawler.Classify(res); kind {
	case crawler.KindPage:
		w.handlePage(ctx, run, entry, res)
	case crawler.KindDocument, crawler.KindImage:
		w.handleDocument(ctx, run, entry.URL, res.Body, res.ContentType, entry.Depth)
	default:
		w.recordSkip(ctx, run, entry.URL, "unclassifiable content type "+res.ContentType)
	}
}

func (w *Worker) handlePage(ctx context.Context, run *jobRun, entry crawler.FrontierEntry, res crawler.FetchResult) {
	run.counters.PagesCrawled++

	hash, err := w.hasher.Hash(res.Body)
	if err != nil {
		hash = ""
	}
	page := crawler.PageRecord{
		JobID:       run.jobID,
		URL:         entry.URL,
		Depth:       entry.Depth,
		StatusCode:  res.StatusCode,
		Tier:        res.Tier,
		ContentHash: hash,
		FetchedAt:   w.clock.Now(),
		DurationMs:  res.Elapsed.Milliseconds(),
	}
	if err := w.jobStore.RecordPage(ctx, page); err != nil {
		w.logger.Error("record page failed", zap.String("job_id", run.jobID), zap.String("url", entry.URL), zap.Error(err))
	}

	base := res.FinalURL
	if base == "" {
		base = entry.URL
	}
	refs, err := crawler.Extract(res.Body, base)
	if err != nil {
		w.logger.Warn("link extraction failed", zap.String("job_id", run.jobID), zap.String("url", entry.URL), zap.Error(err))
		return
	}

	for _, link := range refs.PageLinks {
		if entry.Depth+1 > run.params.MaxDepth {
			break
		}
		host, err := crawler.Hostname(link)
		if err != nil || host != run.domain {
			continue
		}
		run.frontier.Push(crawler.FrontierEntry{
			URL:            link,
			Depth:          entry.Depth + 1,
			DiscoveredFrom: entry.URL,
		})
	}

	for _, ref := range refs.DocumentRefs {
		w.handleDocument(ctx, run, ref, nil, "", entry.Depth+1)
	}
}

// handleDocument routes one document or image to the persister, honoring
// the document ceiling. body is nil for references that still need a fetch.
func (w *Worker) handleDocument(ctx context.Context, run *jobRun, url string, body []byte, contentType string, depth int) {
	if run.counters.DocumentsDownloaded >= run.params.MaxDocuments {
		w.recordSkip(ctx, run, url, "document ceiling reached")
		return
	}

	record, err := run.pers.Persist(ctx, run.jobID, url, body, contentType, depth)
	if errors.Is(err, persister.ErrDuplicate) {
		return
	}
	if err != nil {
		w.recordSkip(ctx, run, url, "document persist failed: "+err.Error())
		return
	}

	run.counters.DocumentsDownloaded++
	if err := w.jobStore.RecordDocument(ctx, record); err != nil {
		w.logger.Error("record document failed",
			zap.String("job_id", run.jobID),
			zap.String("url", url),
			zap.Error(err),
		)
	}
}

func (w *Worker) recordSkip(ctx context.Context, run *jobRun, url, reason string) {
	run.counters.URLsSkipped++
	skip := crawler.SkippedURL{JobID: run.jobID, URL: url, Reason: reason}
	run.skipped = append(run.skipped, skip)
	if err := w.jobStore.RecordSkip(ctx, skip); err != nil {
		w.logger.Error("record skip failed", zap.String("job_id", run.jobID), zap.Error(err))
	}
}

// reportProgress is synchronous and best-effort: ledger delivery failures
// never abort the crawl.
func (w *Worker) reportProgress(ctx context.Context, run *jobRun) {
	if w.ledger == nil {
		return
	}
	if err := w.ledger.ReportProgress(ctx, run.jobID, run.counters); err != nil {
		w.logger.Warn("progress report failed", zap.String("job_id", run.jobID), zap.Error(err))
	}
}

// finishJob persists the terminal state and delivers the awaited terminal
// ledger report as the last step of the loop.
func (w *Worker) finishJob(ctx context.Context, run *jobRun, status crawler.JobStatus) {
	w.cancels.Forget(run.jobID)

	if err := w.jobStore.UpdateJobStatus(ctx, run.jobID, status, "", run.counters); err != nil {
		w.logger.Error("final job status update failed", zap.String("job_id", run.jobID), zap.Error(err))
	}

	if w.ledger != nil {
		summary := crawler.JobSummary{
			Counters: run.counters,
			Skipped:  run.skipped,
			Usage:    run.acct.Snapshot(),
		}
		if err := w.ledger.ReportTerminal(ctx, run.jobID, status, summary); err != nil {
			w.logger.Warn("terminal report failed", zap.String("job_id", run.jobID), zap.Error(err))
		}
	}

	w.logger.Info("job finished",
		zap.String("job_id", run.jobID),
		zap.String("status", string(status)),
		zap.Int("pages", run.counters.PagesCrawled),
		zap.Int("documents", run.counters.DocumentsDownloaded),
		zap.Int("skipped", run.counters.URLsSkipped),
	)
}

func (w *Worker) failJob(ctx context.Context, jobID string, cause error) {
	w.cancels.Forget(jobID)
	w.logger.Error("job failed before crawl", zap.String("job_id", jobID), zap.Error(cause))
	if err := w.jobStore.UpdateJobStatus(ctx, jobID, crawler.JobStatusFailed, cause.Error(), crawler.JobCounters{}); err != nil {
		w.logger.Error("fail status update failed", zap.String("job_id", jobID), zap.Error(err))
	}
	if w.ledger != nil {
		if err := w.ledger.ReportTerminal(ctx, jobID, crawler.JobStatusFailed, crawler.JobSummary{}); err != nil {
			w.logger.Warn("terminal report failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}
}
