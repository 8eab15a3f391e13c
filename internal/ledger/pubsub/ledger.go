// Package pubsub reports job progress and completion to Google Cloud
// Pub/Sub topics for downstream consumers.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/pagehound/pagehound/internal/crawler"
)

// Config captures the topics the ledger publishes to.
type Config struct {
	ProgressTopic string `mapstructure:"progress_topic" yaml:"progress_topic"`
	TerminalTopic string `mapstructure:"terminal_topic" yaml:"terminal_topic"`
}

// Ledger publishes job reports as JSON messages.
type Ledger struct {
	progress *pubsub.Topic
	terminal *pubsub.Topic
}

// progressMessage is the wire shape of a progress report.
type progressMessage struct {
	JobID     string              `json:"job_id"`
	Counters  crawler.JobCounters `json:"counters"`
	Timestamp time.Time           `json:"timestamp"`
}

// terminalMessage is the wire shape of a terminal report.
type terminalMessage struct {
	JobID     string             `json:"job_id"`
	Status    crawler.JobStatus  `json:"status"`
	Summary   crawler.JobSummary `json:"summary"`
	Timestamp time.Time          `json:"timestamp"`
}

// New builds a Pub/Sub-backed ledger.
func New(client *pubsub.Client, cfg Config) (*Ledger, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if cfg.ProgressTopic == "" || cfg.TerminalTopic == "" {
		return nil, fmt.Errorf("progress and terminal topics are required")
	}
	return &Ledger{
		progress: client.Topic(cfg.ProgressTopic),
		terminal: client.Topic(cfg.TerminalTopic),
	}, nil
}

// ReportProgress publishes a progress update and waits for the broker ack.
func (l *Ledger) ReportProgress(ctx context.Context, jobID string, counters crawler.JobCounters) error {
	msg := progressMessage{
		JobID:     jobID,
		Counters:  counters,
		Timestamp: time.Now().UTC(),
	}
	return l.publish(ctx, l.progress, jobID, msg)
}

// ReportTerminal publishes the final job report and waits for the broker
// ack. Callers treat this as part of job completion, so failures surface.
func (l *Ledger) ReportTerminal(ctx context.Context, jobID string, status crawler.JobStatus, summary crawler.JobSummary) error {
	msg := terminalMessage{
		JobID:     jobID,
		Status:    status,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	}
	return l.publish(ctx, l.terminal, jobID, msg)
}

func (l *Ledger) publish(ctx context.Context, topic *pubsub.Topic, jobID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ledger message: %w", err)
	}
	result := topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_id": jobID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topic.ID(), err)
	}
	return nil
}

// Stop flushes any pending messages.
func (l *Ledger) Stop() {
	l.progress.Stop()
	l.terminal.Stop()
}
