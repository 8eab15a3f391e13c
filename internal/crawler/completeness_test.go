package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func fullPage() []byte {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 20; i++ {
		b.WriteString("<p>This paragraph carries enough prose to count as real content.</p>")
	}
	b.WriteString("</body></html>")
	return []byte(b.String())
}

func TestTextualPolicyAcceptsFullPage(t *testing.T) {
	t.Parallel()

	policy := PolicyFor(KindPage, DefaultCompletenessConfig())
	res := FetchResult{StatusCode: 200, ContentType: "text/html", Body: fullPage()}
	require.True(t, policy.Complete(res))
}

func TestTextualPolicyRejectsThinBody(t *testing.T) {
	t.Parallel()

	policy := PolicyFor(KindPage, DefaultCompletenessConfig())
	res := FetchResult{StatusCode: 200, ContentType: "text/html", Body: []byte("<html><body><p>tiny</p></body></html>")}
	require.False(t, policy.Complete(res))
}

func TestTextualPolicyRejectsPlaceholderShell(t *testing.T) {
	t.Parallel()

	body := []byte("<html><body><div>Please enable JavaScript to view this site.</div>" +
		strings.Repeat("<div>padding padding padding padding</div>", 30) + "</body></html>")
	policy := PolicyFor(KindPage, DefaultCompletenessConfig())
	res := FetchResult{StatusCode: 200, ContentType: "text/html", Body: body}
	require.False(t, policy.Complete(res))
}

func TestTextualPolicyRejectsBlocklessShell(t *testing.T) {
	t.Parallel()

	// Big enough and no placeholder text, but nothing paragraph-like.
	body := []byte("<html><body><div id=\"root\"></div><script>" +
		strings.Repeat("var x = 1;", 100) + "</script></body></html>")
	policy := PolicyFor(KindPage, DefaultCompletenessConfig())
	res := FetchResult{StatusCode: 200, ContentType: "text/html", Body: body}
	require.False(t, policy.Complete(res))
}

func TestTextualPolicyRejectsFailedFetch(t *testing.T) {
	t.Parallel()

	policy := PolicyFor(KindPage, DefaultCompletenessConfig())
	res := FetchResult{StatusCode: 503, ContentType: "text/html", Body: fullPage(), ErrorText: "unexpected status 503"}
	require.False(t, policy.Complete(res))
}

func TestBinaryPolicy(t *testing.T) {
	t.Parallel()

	policy := PolicyFor(KindDocument, DefaultCompletenessConfig())
	require.True(t, policy.Complete(FetchResult{StatusCode: 200, Body: []byte("%PDF")}))
	require.False(t, policy.Complete(FetchResult{StatusCode: 200, Body: nil}))
	require.False(t, policy.Complete(FetchResult{StatusCode: 404, Body: []byte("x"), ErrorText: "unexpected status 404"}))

	imagePolicy := PolicyFor(KindImage, DefaultCompletenessConfig())
	require.True(t, imagePolicy.Complete(FetchResult{StatusCode: 200, Body: []byte{0x89}}))
}

func TestCompletenessThresholdsAreTunable(t *testing.T) {
	t.Parallel()

	cfg := CompletenessConfig{MinHTMLBytes: 10, MinTextBlocks: 1}
	policy := PolicyFor(KindPage, cfg)
	res := FetchResult{StatusCode: 200, ContentType: "text/html", Body: []byte("<html><body><p>short but fine</p></body></html>")}
	require.True(t, policy.Complete(res))
}
