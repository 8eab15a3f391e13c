// Package usage tallies fetch attempts per strategy tier and estimates the
// cost saved by the escalation strategy.
package usage

import (
	"sync"

	"github.com/pagehound/pagehound/internal/crawler"
)

// Accountant counts fetch attempts and successes per tier. One Accountant
// is scoped to a job; increments are mutex-guarded so a shared instance
// would also be safe, and every increment is mirrored into the process-wide
// prometheus counters.
type Accountant struct {
	mu    sync.Mutex
	tiers []crawler.TierConfig
	stats []tierStats
}

type tierStats struct {
	requests  int64
	successes int64
}

// NewAccountant creates an Accountant for the given tier table.
func NewAccountant(tiers []crawler.TierConfig) *Accountant {
	return &Accountant{
		tiers: append([]crawler.TierConfig(nil), tiers...),
		stats: make([]tierStats, len(tiers)),
	}
}

// Record tallies one fetch attempt on the given tier. Every attempt counts,
// successful or not, so cost reporting reflects actual spend.
func (a *Accountant) Record(tier int, success bool) {
	if a == nil || tier < 0 || tier >= len(a.stats) {
		return
	}
	a.mu.Lock()
	a.stats[tier].requests++
	if success {
		a.stats[tier].successes++
	}
	a.mu.Unlock()

	name := a.tiers[tier].Name
	FetchAttempts.WithLabelValues(name).Inc()
	if success {
		FetchSuccesses.WithLabelValues(name).Inc()
	}
}

// Snapshot returns the per-tier counts plus the estimated spend and the
// savings versus a baseline where every request used the most expensive
// tier.
func (a *Accountant) Snapshot() crawler.UsageSnapshot {
	if a == nil {
		return crawler.UsageSnapshot{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := crawler.UsageSnapshot{
		Tiers: make([]crawler.TierUsage, len(a.tiers)),
	}
	var totalRequests int64
	var maxCost float64
	for i, tier := range a.tiers {
		snap.Tiers[i] = crawler.TierUsage{
			Name:      tier.Name,
			Requests:  a.stats[i].requests,
			Successes: a.stats[i].successes,
		}
		snap.EstimatedCost += float64(a.stats[i].requests) * tier.CostPerRequest
		totalRequests += a.stats[i].requests
		if tier.CostPerRequest > maxCost {
			maxCost = tier.CostPerRequest
		}
	}
	snap.EstimatedSavings = float64(totalRequests)*maxCost - snap.EstimatedCost
	return snap
}
