package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPartitionsRefs(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<a href="/about">About</a>
		<a href="https://example.com/contact">Contact</a>
		<a href="/files/report.pdf">Report</a>
		<img src="/img/logo.png">
		<a href="https://other.org/elsewhere">External</a>
	</body></html>`)

	refs, err := Extract(body, "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/contact",
	}, refs.PageLinks)
	require.Equal(t, []string{
		"https://example.com/files/report.pdf",
		"https://example.com/img/logo.png",
	}, refs.DocumentRefs)
}

func TestExtractSkipsNonNavigableSchemes(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<a href="#section">Anchor</a>
		<a href="javascript:void(0)">JS</a>
		<a href="mailto:team@example.com">Mail</a>
		<a href="tel:+15551234567">Call</a>
		<a href="/real">Real</a>
	</body></html>`)

	refs, err := Extract(body, "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/real"}, refs.PageLinks)
	require.Empty(t, refs.DocumentRefs)
}

func TestExtractDedupsWithinPage(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
		<a href="/a">One</a>
		<a href="/a">One again</a>
		<a href="/a#frag">One with fragment</a>
		<a href="/b">Two</a>
	</body></html>`)

	refs, err := Extract(body, "https://example.com/")
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, refs.PageLinks)
}

func TestExtractResolvesRelativeAgainstBase(t *testing.T) {
	t.Parallel()

	body := []byte(`<a href="sibling.html">Next</a><a href="../up.html">Up</a>`)
	refs, err := Extract(body, "https://example.com/dir/sub/page.html")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/dir/sub/sibling.html",
		"https://example.com/dir/up.html",
	}, refs.PageLinks)
}

func TestExtractImageHintOnExtensionlessSrc(t *testing.T) {
	t.Parallel()

	body := []byte(`<img src="/dynamic/image?id=42">`)
	refs, err := Extract(body, "https://example.com/")
	require.NoError(t, err)
	require.Empty(t, refs.PageLinks)
	require.Equal(t, []string{"https://example.com/dynamic/image?id=42"}, refs.DocumentRefs)
}
