package crawler

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CompletenessConfig holds the tunable thresholds for the textual
// completeness check. The numbers are tuning parameters, not contracts;
// they load from configuration.
type CompletenessConfig struct {
	MinHTMLBytes        int      `mapstructure:"min_html_bytes"`
	MinTextBlocks       int      `mapstructure:"min_text_blocks"`
	PlaceholderKeywords []string `mapstructure:"placeholder_keywords"`
}

// DefaultCompletenessConfig returns the shipped thresholds.
func DefaultCompletenessConfig() CompletenessConfig {
	return CompletenessConfig{
		MinHTMLBytes:  512,
		MinTextBlocks: 2,
		PlaceholderKeywords: []string{
			"enable javascript",
			"javascript is required",
			"loading...",
		},
	}
}

// CompletenessPolicy decides whether fetched content is usable or warrants
// tier escalation.
type CompletenessPolicy interface {
	Complete(res FetchResult) bool
}

// PolicyFor selects the policy variant by classified content kind, never by
// guessing site genre from the URL. Binary content (documents, images) is
// complete whenever the fetch succeeded with a non-empty body; only textual
// pages run the structural checks that can trigger render escalation.
func PolicyFor(kind Kind, cfg CompletenessConfig) CompletenessPolicy {
	if kind == KindPage || kind == KindUnknown {
		return textualPolicy{cfg: cfg}
	}
	return binaryPolicy{}
}

type binaryPolicy struct{}

func (binaryPolicy) Complete(res FetchResult) bool {
	return res.OK() && len(res.Body) > 0
}

// textualPolicy checks minimum byte length, absence of JS-placeholder
// markers, and presence of paragraph-like blocks.
type textualPolicy struct {
	cfg CompletenessConfig
}

func (p textualPolicy) Complete(res FetchResult) bool {
	if !res.OK() {
		return false
	}
	switch {
	case p.bodyBelowThreshold(res.Body):
		return false
	case p.containsPlaceholder(res.Body):
		return false
	default:
		return p.hasTextBlocks(res.Body)
	}
}

func (p textualPolicy) bodyBelowThreshold(body []byte) bool {
	return p.cfg.MinHTMLBytes > 0 && len(body) < p.cfg.MinHTMLBytes
}

func (p textualPolicy) containsPlaceholder(body []byte) bool {
	if len(body) == 0 || len(p.cfg.PlaceholderKeywords) == 0 {
		return false
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range p.cfg.PlaceholderKeywords {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw == "" {
			continue
		}
		if bytes.Contains(lowerBody, []byte(kw)) {
			return true
		}
	}
	return false
}

func (p textualPolicy) hasTextBlocks(body []byte) bool {
	if p.cfg.MinTextBlocks <= 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	blocks := 0
	doc.Find("p, article, section, li, td, pre").Each(func(_ int, sel *goquery.Selection) {
		if strings.TrimSpace(sel.Text()) != "" {
			blocks++
		}
	})
	return blocks >= p.cfg.MinTextBlocks
}
