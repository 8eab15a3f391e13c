package escalator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagehound/pagehound/internal/crawler"
	"github.com/pagehound/pagehound/internal/usage"
)

type fakeFetcher struct {
	calls   int
	results []crawler.FetchResult
	errs    []error
}

func (f *fakeFetcher) Fetch(_ context.Context, req crawler.FetchRequest) (crawler.FetchResult, error) {
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	res := f.results[idx]
	res.URL = req.URL
	return res, err
}

func testTiers() []crawler.TierConfig {
	return []crawler.TierConfig{
		{Name: "basic", CostPerRequest: 1},
		{Name: "rendered", Render: true, CostPerRequest: 5},
		{Name: "stealth", Render: true, ProxyClass: "residential", CostPerRequest: 25},
	}
}

func completeHTML() []byte {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 20; i++ {
		b.WriteString("<p>Substantial rendered paragraph with plenty of words inside.</p>")
	}
	b.WriteString("</body></html>")
	return []byte(b.String())
}

func placeholderHTML() []byte {
	return []byte("<html><body><noscript>Please enable JavaScript to continue.</noscript>" +
		strings.Repeat("<div>shell shell shell shell shell</div>", 40) + "</body></html>")
}

func okPage(body []byte) crawler.FetchResult {
	return crawler.FetchResult{StatusCode: 200, ContentType: "text/html", Body: body}
}

func newEscalator(t *testing.T, fetchers []crawler.Fetcher) (*Escalator, *usage.Accountant) {
	t.Helper()
	acct := usage.NewAccountant(testTiers())
	esc, err := New(testTiers(), fetchers, crawler.DefaultCompletenessConfig(), acct, nil)
	require.NoError(t, err)
	return esc, acct
}

func TestFetchStaysOnCheapTierWhenComplete(t *testing.T) {
	t.Parallel()

	basic := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	rendered := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	stealth := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	esc, _ := newEscalator(t, []crawler.Fetcher{basic, rendered, stealth})

	res := esc.Fetch(context.Background(), "https://example.com/")
	require.True(t, res.OK())
	require.Equal(t, 0, res.Tier)
	require.Equal(t, 1, basic.calls)
	require.Zero(t, rendered.calls)
	require.Zero(t, stealth.calls)

	tier, ok := esc.MemoryTier("https://example.com")
	require.True(t, ok)
	require.Equal(t, 0, tier)
}

func TestFetchEscalatesOnIncompleteContent(t *testing.T) {
	t.Parallel()

	basic := &fakeFetcher{results: []crawler.FetchResult{okPage(placeholderHTML())}}
	rendered := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	stealth := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	esc, _ := newEscalator(t, []crawler.Fetcher{basic, rendered, stealth})

	res := esc.Fetch(context.Background(), "https://spa.example.com/")
	require.True(t, res.OK())
	require.Equal(t, 1, res.Tier)
	require.Equal(t, 1, basic.calls)
	require.Equal(t, 1, rendered.calls)
	require.Zero(t, stealth.calls)
}

func TestSiteMemorySkipsKnownInsufficientTiers(t *testing.T) {
	t.Parallel()

	basic := &fakeFetcher{results: []crawler.FetchResult{okPage(placeholderHTML())}}
	rendered := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	stealth := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	esc, _ := newEscalator(t, []crawler.Fetcher{basic, rendered, stealth})

	first := esc.Fetch(context.Background(), "https://spa.example.com/")
	require.Equal(t, 1, first.Tier)

	// Same site, second URL: the basic tier is not retried.
	second := esc.Fetch(context.Background(), "https://spa.example.com/about")
	require.Equal(t, 1, second.Tier)
	require.Equal(t, 1, basic.calls)
	require.Equal(t, 2, rendered.calls)
}

func TestSiteMemoryIsPerSite(t *testing.T) {
	t.Parallel()

	basic := &fakeFetcher{results: []crawler.FetchResult{
		okPage(placeholderHTML()),
		okPage(completeHTML()),
	}}
	rendered := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	stealth := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	esc, _ := newEscalator(t, []crawler.Fetcher{basic, rendered, stealth})

	res := esc.Fetch(context.Background(), "https://spa.example.com/")
	require.Equal(t, 1, res.Tier)

	// A different site starts back at the cheapest tier.
	res = esc.Fetch(context.Background(), "https://plain.example.org/")
	require.Equal(t, 0, res.Tier)
	require.Equal(t, 2, basic.calls)
}

func TestFetchEscalatesOnTransportFailure(t *testing.T) {
	t.Parallel()

	basic := &fakeFetcher{
		results: []crawler.FetchResult{{}},
		errs:    []error{errors.New("connection refused")},
	}
	rendered := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	stealth := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	esc, _ := newEscalator(t, []crawler.Fetcher{basic, rendered, stealth})

	res := esc.Fetch(context.Background(), "https://flaky.example.com/")
	require.True(t, res.OK())
	require.Equal(t, 1, res.Tier)
}

func TestFetchReturnsFailureAfterExhaustingTiers(t *testing.T) {
	t.Parallel()

	failing := func() *fakeFetcher {
		return &fakeFetcher{
			results: []crawler.FetchResult{{}},
			errs:    []error{errors.New("blocked")},
		}
	}
	esc, acct := newEscalator(t, []crawler.Fetcher{failing(), failing(), failing()})

	res := esc.Fetch(context.Background(), "https://walled.example.com/")
	require.False(t, res.OK())
	require.Equal(t, "blocked", res.ErrorText)

	snap := acct.Snapshot()
	require.Equal(t, int64(1), snap.Tiers[0].Requests)
	require.Equal(t, int64(1), snap.Tiers[1].Requests)
	require.Equal(t, int64(1), snap.Tiers[2].Requests)
	require.Zero(t, snap.Tiers[0].Successes)
}

func TestFetchPrefersIncompleteContentOverLaterFailure(t *testing.T) {
	t.Parallel()

	basic := &fakeFetcher{results: []crawler.FetchResult{okPage(placeholderHTML())}}
	broken := &fakeFetcher{
		results: []crawler.FetchResult{{}},
		errs:    []error{errors.New("headless fetcher not configured")},
	}
	esc, _ := newEscalator(t, []crawler.Fetcher{basic, broken, broken})

	res := esc.Fetch(context.Background(), "https://spa.example.com/")
	require.True(t, res.OK())
	require.Equal(t, 0, res.Tier)
	require.NotEmpty(t, res.Body)
}

func TestFetchDocumentUsesBasicTierOnly(t *testing.T) {
	t.Parallel()

	basic := &fakeFetcher{results: []crawler.FetchResult{
		okPage(placeholderHTML()),
		{StatusCode: 200, ContentType: "application/pdf", Body: []byte("%PDF-1.7")},
	}}
	rendered := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	stealth := &fakeFetcher{results: []crawler.FetchResult{okPage(completeHTML())}}
	esc, _ := newEscalator(t, []crawler.Fetcher{basic, rendered, stealth})

	// Push the site memory to tier 1 first.
	esc.Fetch(context.Background(), "https://spa.example.com/")

	doc := esc.FetchDocument(context.Background(), "https://spa.example.com/report.pdf")
	require.True(t, doc.OK())
	require.Equal(t, 0, doc.Tier)
	require.Equal(t, 2, basic.calls)
}

func TestNewValidatesInputs(t *testing.T) {
	t.Parallel()

	acct := usage.NewAccountant(testTiers())
	_, err := New(nil, nil, crawler.DefaultCompletenessConfig(), acct, nil)
	require.Error(t, err)

	_, err = New(testTiers(), []crawler.Fetcher{&fakeFetcher{}}, crawler.DefaultCompletenessConfig(), acct, nil)
	require.Error(t, err)

	_, err = New(testTiers(), []crawler.Fetcher{&fakeFetcher{}, nil, &fakeFetcher{}}, crawler.DefaultCompletenessConfig(), acct, nil)
	require.Error(t, err)
}
