// Package memory contains an in-memory task ledger for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/pagehound/pagehound/internal/crawler"
)

// ProgressReport captures one progress call for inspection.
type ProgressReport struct {
	JobID    string
	Counters crawler.JobCounters
}

// TerminalReport captures one terminal call for inspection.
type TerminalReport struct {
	JobID   string
	Status  crawler.JobStatus
	Summary crawler.JobSummary
}

// Ledger records reports in memory.
type Ledger struct {
	mu        sync.RWMutex
	progress  []ProgressReport
	terminals []TerminalReport
}

// New returns a memory Ledger.
func New() *Ledger {
	return &Ledger{}
}

// ReportProgress records a progress update.
func (l *Ledger) ReportProgress(_ context.Context, jobID string, counters crawler.JobCounters) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, ProgressReport{JobID: jobID, Counters: counters})
	return nil
}

// ReportTerminal records a terminal report.
func (l *Ledger) ReportTerminal(_ context.Context, jobID string, status crawler.JobStatus, summary crawler.JobSummary) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.terminals = append(l.terminals, TerminalReport{JobID: jobID, Status: status, Summary: summary})
	return nil
}

// Progress returns the recorded progress reports.
func (l *Ledger) Progress() []ProgressReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ProgressReport, len(l.progress))
	copy(out, l.progress)
	return out
}

// Terminals returns the recorded terminal reports.
func (l *Ledger) Terminals() []TerminalReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]TerminalReport, len(l.terminals))
	copy(out, l.terminals)
	return out
}
