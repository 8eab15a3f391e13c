package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTP://Example.COM/Page", "http://example.com/Page"},
		{"strips default http port", "http://example.com:80/a", "http://example.com/a"},
		{"strips default https port", "https://example.com:443/a", "https://example.com/a"},
		{"keeps non-default port", "http://example.com:8080/a", "http://example.com:8080/a"},
		{"drops fragment", "https://example.com/a#section", "https://example.com/a"},
		{"adds root path", "https://example.com", "https://example.com/"},
		{"sorts query parameters", "https://example.com/?b=2&a=1", "https://example.com/?a=1&b=2"},
		{"preserves path case", "https://example.com/Docs/Report.PDF", "https://example.com/Docs/Report.PDF"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeURLRejectsBadInput(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"ftp://example.com/file",
		"mailto:someone@example.com",
		"/relative/path",
		"",
	} {
		_, err := NormalizeURL(raw)
		require.Error(t, err, "input %q", raw)
	}
}

func TestNormalizeURLEquivalentFormsCollapse(t *testing.T) {
	t.Parallel()

	a, err := NormalizeURL("HTTPS://Example.com:443/page?z=1&a=2#top")
	require.NoError(t, err)
	b, err := NormalizeURL("https://example.com/page?a=2&z=1")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestSiteKey(t *testing.T) {
	t.Parallel()

	key, err := SiteKey("https://Example.com:8443/deep/path?q=1")
	require.NoError(t, err)
	require.Equal(t, "https://example.com:8443", key)

	_, err = SiteKey("not a url at all\x00")
	require.Error(t, err)
}

func TestSameHost(t *testing.T) {
	t.Parallel()

	require.True(t, SameHost("https://example.com/a", "http://EXAMPLE.com/b"))
	require.False(t, SameHost("https://example.com/a", "https://other.example.com/a"))
	require.False(t, SameHost("https://example.com/a", "nonsense"))
}
