package crawler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func htmlBody() []byte {
	return []byte("<html><head><title>t</title></head><body><p>hello world content</p></body></html>")
}

func TestClassifyByContentType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		contentType string
		body        []byte
		want        Kind
	}{
		{"html page", "text/html; charset=utf-8", htmlBody(), KindPage},
		{"pdf document", "application/pdf", []byte("%PDF-1.7 ..."), KindDocument},
		{"csv document", "text/csv", []byte("a,b,c\n1,2,3"), KindDocument},
		{"docx document", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("PK..."), KindDocument},
		{"png image", "image/png", []byte{0x89, 'P', 'N', 'G'}, KindImage},
		{"tiny text is not a page", "text/html", []byte("<p>x</p>"), KindUnknown},
		{"binary octet stream", "application/octet-stream", bytes.Repeat([]byte{0x00}, 64), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := FetchResult{StatusCode: 200, ContentType: tc.contentType, Body: tc.body}
			require.Equal(t, tc.want, Classify(res))
		})
	}
}

func TestClassifySniffsWhenHeaderMissing(t *testing.T) {
	t.Parallel()

	res := FetchResult{StatusCode: 200, Body: htmlBody()}
	require.Equal(t, KindPage, Classify(res))

	res = FetchResult{StatusCode: 200, Body: append([]byte("%PDF-1.4"), bytes.Repeat([]byte{' '}, 64)...)}
	require.Equal(t, KindDocument, Classify(res))

	res = FetchResult{StatusCode: 200, Body: nil}
	require.Equal(t, KindUnknown, Classify(res))
}

func TestRefKindForURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want Kind
	}{
		{"https://example.com/report.pdf", KindDocument},
		{"https://example.com/sheet.XLSX", KindDocument},
		{"https://example.com/logo.png", KindImage},
		{"https://example.com/photo.jpeg?size=large", KindImage},
		{"https://example.com/about", KindPage},
		{"https://example.com/", KindPage},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, RefKindForURL(tc.url), "url %s", tc.url)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "page", KindPage.String())
	require.Equal(t, "document", KindDocument.String())
	require.Equal(t, "image", KindImage.String())
	require.Equal(t, "unknown", KindUnknown.String())
}
