// Package escalator picks the cheapest fetch strategy that still yields
// complete content, escalating through ordered tiers on demonstrated
// failure and remembering per site which tier finally worked.
package escalator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pagehound/pagehound/internal/crawler"
	"github.com/pagehound/pagehound/internal/usage"
)

// Escalator executes fetch attempts over an ordered tier table. It is
// scoped to one job: the site memory it accumulates is never shared across
// jobs, so no locking is needed and one job's escalations cannot
// contaminate another's.
type Escalator struct {
	tiers        []crawler.TierConfig
	fetchers     []crawler.Fetcher
	completeness crawler.CompletenessConfig
	accountant   *usage.Accountant
	memory       map[string]int
	logger       *zap.Logger
}

// New builds a job-scoped Escalator. The fetcher slice must parallel the
// tier table and hold at least one entry.
func New(
	tiers []crawler.TierConfig,
	fetchers []crawler.Fetcher,
	completeness crawler.CompletenessConfig,
	accountant *usage.Accountant,
	logger *zap.Logger,
) (*Escalator, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one fetch tier is required")
	}
	if len(fetchers) != len(tiers) {
		return nil, fmt.Errorf("fetcher count %d does not match tier count %d", len(fetchers), len(tiers))
	}
	for i, f := range fetchers {
		if f == nil {
			return nil, fmt.Errorf("fetcher for tier %q is nil", tiers[i].Name)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Escalator{
		tiers:        tiers,
		fetchers:     fetchers,
		completeness: completeness,
		accountant:   accountant,
		memory:       make(map[string]int),
		logger:       logger,
	}, nil
}

// Fetch retrieves a URL starting at the cheapest tier not already known
// insufficient for its site. Ordinary HTTP and network failures come back
// inside the FetchResult, never as a panic or error: total failure after
// exhausting all tiers yields a result whose ErrorText is set, and the
// orchestrator records it as a skipped URL.
func (e *Escalator) Fetch(ctx context.Context, rawURL string) crawler.FetchResult {
	site, err := crawler.SiteKey(rawURL)
	if err != nil {
		return crawler.FetchResult{URL: rawURL, ErrorText: err.Error()}
	}

	start := e.memory[site]

	// Best-available fallback: a successful-but-incomplete result from a
	// cheaper tier beats a later tier's transport failure, since partial
	// content is more useful than none.
	var incomplete crawler.FetchResult
	haveIncomplete := false
	failed := crawler.FetchResult{URL: rawURL, ErrorText: "no fetch attempted"}

	for tier := start; tier < len(e.tiers); tier++ {
		if tier > start {
			usage.TierEscalations.Inc()
		}
		res := e.attempt(ctx, tier, rawURL)
		e.accountant.Record(tier, res.OK())

		if !res.OK() {
			failed = res
			if tier+1 < len(e.tiers) {
				e.logger.Debug("fetch failed, escalating",
					zap.String("url", rawURL),
					zap.String("tier", e.tiers[tier].Name),
					zap.String("error", res.ErrorText),
					zap.Int("status", res.StatusCode),
				)
				continue
			}
			break
		}

		kind := crawler.Classify(res)
		policy := crawler.PolicyFor(kind, e.completeness)
		if policy.Complete(res) {
			e.memory[site] = tier
			return res
		}

		// Incomplete content. Rendering escalation only helps HTML; binary
		// payloads are as complete as they will ever get.
		if kind != crawler.KindPage && kind != crawler.KindUnknown {
			e.memory[site] = tier
			return res
		}
		incomplete = res
		haveIncomplete = true
		if tier+1 >= len(e.tiers) {
			break
		}
		e.logger.Debug("content incomplete, escalating",
			zap.String("url", rawURL),
			zap.String("tier", e.tiers[tier].Name),
			zap.Int("body_bytes", len(res.Body)),
		)
	}

	if haveIncomplete {
		e.memory[site] = incomplete.Tier
		return incomplete
	}
	return failed
}

// FetchDocument retrieves a confirmed document or image reference using the
// basic tier only. Rendering tiers are meaningless for binary content, so
// escalation never applies here.
func (e *Escalator) FetchDocument(ctx context.Context, rawURL string) crawler.FetchResult {
	res := e.attempt(ctx, 0, rawURL)
	e.accountant.Record(0, res.OK())
	return res
}

// MemoryTier returns the remembered tier for a site key, with false when
// the site has not been fetched yet.
func (e *Escalator) MemoryTier(site string) (int, bool) {
	tier, ok := e.memory[site]
	return tier, ok
}

func (e *Escalator) attempt(ctx context.Context, tier int, rawURL string) crawler.FetchResult {
	cfg := e.tiers[tier]
	req := crawler.FetchRequest{
		URL:        rawURL,
		Timeout:    cfg.Timeout,
		Wait:       cfg.Wait,
		ProxyClass: cfg.ProxyClass,
	}

	started := time.Now()
	res, err := e.fetchers[tier].Fetch(ctx, req)
	if err != nil {
		return crawler.FetchResult{
			URL:       rawURL,
			Tier:      tier,
			Elapsed:   time.Since(started),
			ErrorText: err.Error(),
		}
	}
	res.Tier = tier
	if res.URL == "" {
		res.URL = rawURL
	}
	if res.FinalURL == "" {
		res.FinalURL = res.URL
	}
	if res.Elapsed == 0 {
		res.Elapsed = time.Since(started)
	}
	if !res.OK() && res.ErrorText == "" {
		res.ErrorText = fmt.Sprintf("unexpected status %d", res.StatusCode)
	}
	return res
}
