// Package memory holds an in-memory job store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/pagehound/pagehound/internal/crawler"
)

// JobStore keeps job, page, document, and skip records in memory.
type JobStore struct {
	mu        sync.RWMutex
	jobs      map[string]crawler.Job
	pages     map[string][]crawler.PageRecord
	documents map[string][]crawler.DocumentRecord
	skips     map[string][]crawler.SkippedURL
}

// NewJobStore creates an empty in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:      make(map[string]crawler.Job),
		pages:     make(map[string][]crawler.PageRecord),
		documents: make(map[string][]crawler.DocumentRecord),
		skips:     make(map[string][]crawler.SkippedURL),
	}
}

// CreateJob stores a new job record.
func (s *JobStore) CreateJob(_ context.Context, job crawler.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus transitions a job's status and refreshes its counters.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status crawler.JobStatus, errText string, counters crawler.JobCounters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	job.Status = status
	job.ErrorText = errText
	job.Counters = counters
	s.jobs[jobID] = job
	return nil
}

// RecordPage appends a crawled page record.
func (s *JobStore) RecordPage(_ context.Context, page crawler.PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[page.JobID] = append(s.pages[page.JobID], page)
	return nil
}

// RecordDocument appends a stored document record.
func (s *JobStore) RecordDocument(_ context.Context, doc crawler.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.JobID] = append(s.documents[doc.JobID], doc)
	return nil
}

// RecordSkip appends a skipped URL record.
func (s *JobStore) RecordSkip(_ context.Context, skip crawler.SkippedURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skips[skip.JobID] = append(s.skips[skip.JobID], skip)
	return nil
}

// GetJob returns the stored job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (crawler.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return crawler.Job{}, fmt.Errorf("job %s not found", jobID)
	}
	return job, nil
}

// ListPages returns the page records for a job in insertion order.
func (s *JobStore) ListPages(_ context.Context, jobID string) ([]crawler.PageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.PageRecord, len(s.pages[jobID]))
	copy(out, s.pages[jobID])
	return out, nil
}

// ListDocuments returns the document records for a job in insertion order.
func (s *JobStore) ListDocuments(_ context.Context, jobID string) ([]crawler.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.DocumentRecord, len(s.documents[jobID]))
	copy(out, s.documents[jobID])
	return out, nil
}

// ListSkips returns the skipped URL records for a job in insertion order.
func (s *JobStore) ListSkips(_ context.Context, jobID string) ([]crawler.SkippedURL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.SkippedURL, len(s.skips[jobID]))
	copy(out, s.skips[jobID])
	return out, nil
}
