package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractedRefs partitions the references found on one page. PageLinks are
// same-host navigable URLs; DocumentRefs point at downloadable documents or
// images, hinted by extension so they can be capped without an extra fetch.
// Both slices are deduplicated within the page, in first-seen order.
type ExtractedRefs struct {
	PageLinks    []string
	DocumentRefs []string
}

// Extract parses a page and resolves every anchor and image reference
// against baseURL. Cross-page deduplication is the orchestrator's job via
// the global visited set; this only dedups within the single page.
func Extract(body []byte, baseURL string) (ExtractedRefs, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ExtractedRefs{}, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ExtractedRefs{}, fmt.Errorf("parse page: %w", err)
	}

	var refs ExtractedRefs
	seen := make(map[string]struct{})

	add := func(raw string, imageHint bool) {
		resolved, ok := resolveRef(base, raw)
		if !ok {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}

		if !SameHost(resolved, baseURL) {
			return
		}
		kind := RefKindForURL(resolved)
		if imageHint && kind == KindPage {
			kind = KindImage
		}
		switch kind {
		case KindDocument, KindImage:
			refs.DocumentRefs = append(refs.DocumentRefs, resolved)
		default:
			refs.PageLinks = append(refs.PageLinks, resolved)
		}
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		add(href, false)
	})
	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		add(src, true)
	})

	return refs, nil
}

func resolveRef(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}
	lowered := strings.ToLower(raw)
	if strings.HasPrefix(lowered, "javascript:") ||
		strings.HasPrefix(lowered, "mailto:") ||
		strings.HasPrefix(lowered, "tel:") ||
		strings.HasPrefix(lowered, "data:") {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	normalized, err := NormalizeURL(resolved.String())
	if err != nil {
		return "", false
	}
	return normalized, true
}
