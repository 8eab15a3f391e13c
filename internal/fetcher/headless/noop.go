package headless

import (
	"context"
	"errors"

	"github.com/pagehound/pagehound/internal/crawler"
)

// Noop implements Fetcher but always fails, for deployments where Chrome is
// unavailable. The escalator treats the failure like any other transport
// error and falls back to the best result a cheaper tier produced.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch returns an error since this is a stub implementation.
func (Noop) Fetch(_ context.Context, _ crawler.FetchRequest) (crawler.FetchResult, error) {
	return crawler.FetchResult{}, errors.New("headless fetcher not configured")
}
