package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitAllowsBurstImmediately(t *testing.T) {
	t.Parallel()

	lim := New(Config{RequestsPerSecond: 100, Burst: 2})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, lim.Wait(ctx, "https://example.com/a"))
	require.NoError(t, lim.Wait(ctx, "https://example.com/b"))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitThrottlesPerDomain(t *testing.T) {
	t.Parallel()

	lim := New(Config{RequestsPerSecond: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, lim.Wait(ctx, "https://example.com/a"))
	start := time.Now()
	require.NoError(t, lim.Wait(ctx, "https://example.com/b"))
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDomainsHaveIndependentBudgets(t *testing.T) {
	t.Parallel()

	lim := New(Config{RequestsPerSecond: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, lim.Wait(ctx, "https://a.example.com/"))
	start := time.Now()
	require.NoError(t, lim.Wait(ctx, "https://b.example.com/"))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitRejectsUnparsableURL(t *testing.T) {
	t.Parallel()

	lim := New(Config{})
	require.Error(t, lim.Wait(context.Background(), "not a url"))
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	lim := New(Config{RequestsPerSecond: 0.1, Burst: 1})
	ctx := context.Background()
	require.NoError(t, lim.Wait(ctx, "https://slow.example.com/"))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.Error(t, lim.Wait(short, "https://slow.example.com/"))
}
