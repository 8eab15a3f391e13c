package frontier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagehound/pagehound/internal/crawler"
)

func TestPushPopFIFO(t *testing.T) {
	t.Parallel()

	f := New()
	for i := 0; i < 5; i++ {
		ok := f.Push(crawler.FrontierEntry{URL: fmt.Sprintf("https://example.com/%d", i), Depth: i})
		require.True(t, ok)
	}
	require.Equal(t, 5, f.Len())

	for i := 0; i < 5; i++ {
		entry, ok := f.Pop()
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("https://example.com/%d", i), entry.URL)
		require.Equal(t, i, entry.Depth)
	}
	_, ok := f.Pop()
	require.False(t, ok)
	require.Equal(t, 0, f.Len())
}

func TestPushRejectsDuplicates(t *testing.T) {
	t.Parallel()

	f := New()
	require.True(t, f.Push(crawler.FrontierEntry{URL: "https://example.com/a"}))
	require.False(t, f.Push(crawler.FrontierEntry{URL: "https://example.com/a", Depth: 3}))
	require.Equal(t, 1, f.Len())
}

func TestSeenIsMonotonic(t *testing.T) {
	t.Parallel()

	// Once seen, always seen: popping never re-admits a URL.
	f := New()
	f.Push(crawler.FrontierEntry{URL: "https://example.com/a"})
	require.True(t, f.Seen("https://example.com/a"))

	_, ok := f.Pop()
	require.True(t, ok)
	require.True(t, f.Seen("https://example.com/a"))
	require.False(t, f.Push(crawler.FrontierEntry{URL: "https://example.com/a"}))
	require.Equal(t, 0, f.Len())
}

func TestInterleavedPushPop(t *testing.T) {
	t.Parallel()

	f := New()
	f.Push(crawler.FrontierEntry{URL: "https://example.com/1"})
	f.Push(crawler.FrontierEntry{URL: "https://example.com/2"})

	entry, _ := f.Pop()
	require.Equal(t, "https://example.com/1", entry.URL)

	f.Push(crawler.FrontierEntry{URL: "https://example.com/3"})

	entry, _ = f.Pop()
	require.Equal(t, "https://example.com/2", entry.URL)
	entry, _ = f.Pop()
	require.Equal(t, "https://example.com/3", entry.URL)
}
