package persister

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagehound/pagehound/internal/clock"
	"github.com/pagehound/pagehound/internal/crawler"
	"github.com/pagehound/pagehound/internal/hash"
	memorystorage "github.com/pagehound/pagehound/internal/storage/memory"
)

type fakeDocFetcher struct {
	results map[string]crawler.FetchResult
	calls   int
}

func (f *fakeDocFetcher) FetchDocument(_ context.Context, url string) crawler.FetchResult {
	f.calls++
	if res, ok := f.results[url]; ok {
		return res
	}
	return crawler.FetchResult{URL: url, ErrorText: "not found"}
}

type flakyStore struct {
	*memorystorage.ObjectStore
	failures int
	attempts int
}

func (s *flakyStore) Put(ctx context.Context, key, contentType string, data []byte, metadata map[string]string) (string, error) {
	s.attempts++
	if s.attempts <= s.failures {
		return "", errors.New("transient store error")
	}
	return s.ObjectStore.Put(ctx, key, contentType, data, metadata)
}

func newPersister(t *testing.T, objects crawler.ObjectStore, fetcher DocFetcher) *Persister {
	t.Helper()
	return New(objects, fetcher, hash.NewSHA256(), clock.Fixed{At: time.Unix(1700000000, 0).UTC()}, Config{
		MaxStoreRetries: 3,
		RetryBackoff:    time.Millisecond,
	}, nil)
}

func TestPersistStoresDocumentOnce(t *testing.T) {
	t.Parallel()

	objects := memorystorage.NewObjectStore()
	p := newPersister(t, objects, &fakeDocFetcher{})

	body := []byte("%PDF-1.7 payload")
	record, err := p.Persist(context.Background(), "job-1", "https://example.com/a.pdf", body, "application/pdf", 1)
	require.NoError(t, err)
	require.Equal(t, "job-1", record.JobID)
	require.Equal(t, len(body), record.ByteSize)
	require.Contains(t, record.StorageKey, "jobs/job-1/docs/")
	require.Contains(t, record.StorageKey, ".pdf")
	require.Equal(t, "memory://"+record.StorageKey, record.StorageURI)

	stored, ok := objects.Get(record.StorageKey)
	require.True(t, ok)
	require.Equal(t, body, stored)
	require.Equal(t, "https://example.com/a.pdf", objects.Metadata(record.StorageKey)["source_url"])
}

func TestPersistDedupsIdenticalContent(t *testing.T) {
	t.Parallel()

	objects := memorystorage.NewObjectStore()
	p := newPersister(t, objects, &fakeDocFetcher{})
	body := []byte("%PDF-1.7 identical bytes")

	_, err := p.Persist(context.Background(), "job-1", "https://example.com/a.pdf", body, "application/pdf", 1)
	require.NoError(t, err)

	// Same bytes under a different URL: recognized by hash, never re-stored.
	_, err = p.Persist(context.Background(), "job-1", "https://example.com/copy-of-a.pdf", body, "application/pdf", 2)
	require.ErrorIs(t, err, ErrDuplicate)
	require.Equal(t, 1, objects.PutCount())
}

func TestPersistFetchesWhenBodyIsNil(t *testing.T) {
	t.Parallel()

	objects := memorystorage.NewObjectStore()
	fetcher := &fakeDocFetcher{results: map[string]crawler.FetchResult{
		"https://example.com/r.pdf": {
			StatusCode:  200,
			ContentType: "application/pdf",
			Body:        []byte("%PDF fetched on demand"),
		},
	}}
	p := newPersister(t, objects, fetcher)

	record, err := p.Persist(context.Background(), "job-1", "https://example.com/r.pdf", nil, "", 2)
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.calls)
	require.Equal(t, "application/pdf", record.ContentType)
}

func TestPersistReportsFetchFailure(t *testing.T) {
	t.Parallel()

	p := newPersister(t, memorystorage.NewObjectStore(), &fakeDocFetcher{})
	_, err := p.Persist(context.Background(), "job-1", "https://example.com/gone.pdf", nil, "", 0)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrDuplicate)
}

func TestPersistRetriesTransientStoreErrors(t *testing.T) {
	t.Parallel()

	store := &flakyStore{ObjectStore: memorystorage.NewObjectStore(), failures: 2}
	p := newPersister(t, store, &fakeDocFetcher{})

	record, err := p.Persist(context.Background(), "job-1", "https://example.com/a.pdf", []byte("%PDF retry me"), "application/pdf", 0)
	require.NoError(t, err)
	require.Equal(t, 3, store.attempts)
	require.NotEmpty(t, record.StorageURI)
}

func TestPersistGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	store := &flakyStore{ObjectStore: memorystorage.NewObjectStore(), failures: 10}
	p := newPersister(t, store, &fakeDocFetcher{})

	_, err := p.Persist(context.Background(), "job-1", "https://example.com/a.pdf", []byte("%PDF doomed"), "application/pdf", 0)
	require.Error(t, err)
	require.Equal(t, 3, store.attempts)

	// The hash is not marked seen, so a later retry of the same content is
	// allowed to attempt storage again.
	store.failures = 3
	_, err = p.Persist(context.Background(), "job-1", "https://example.com/a.pdf", []byte("%PDF doomed"), "application/pdf", 0)
	require.NoError(t, err)
}

func TestStorageKeyIsDeterministic(t *testing.T) {
	t.Parallel()

	a := StorageKey("job-1", "abc123", "application/pdf")
	b := StorageKey("job-1", "abc123", "application/pdf")
	require.Equal(t, a, b)
	require.Equal(t, "jobs/job-1/docs/abc123.pdf", a)

	require.Equal(t, "jobs/job-2/docs/abc123.png", StorageKey("job-2", "abc123", "image/png"))
	require.Equal(t, "jobs/job-2/docs/abc123.bin", StorageKey("job-2", "abc123", "application/x-mystery"))
}
