// Package ratelimit throttles fetches per target domain so a crawl never
// hammers one host.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/pagehound/pagehound/internal/crawler"
)

// Config controls per-domain request pacing.
type Config struct {
	// RequestsPerSecond is the sustained rate allowed per domain.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	// Burst is the number of requests a domain may issue back to back.
	Burst int `mapstructure:"burst" yaml:"burst"`
}

// DefaultConfig returns a conservative per-domain pace.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 2, Burst: 1}
}

// DomainLimiter hands out one token-bucket limiter per hostname.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// New creates a DomainLimiter from config, falling back to defaults for
// zero values.
func New(cfg Config) *DomainLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
	}
}

// Wait blocks until the URL's domain may issue another request, or until
// the context is done.
func (d *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	host, err := crawler.Hostname(rawURL)
	if err != nil {
		return fmt.Errorf("rate limit key: %w", err)
	}
	return d.limiterFor(host).Wait(ctx)
}

func (d *DomainLimiter) limiterFor(host string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	lim, ok := d.limiters[host]
	if !ok {
		lim = rate.NewLimiter(d.rps, d.burst)
		d.limiters[host] = lim
	}
	return lim
}
