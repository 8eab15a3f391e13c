// Package collyfetcher implements the basic (non-rendering) fetch tier
// using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/pagehound/pagehound/internal/crawler"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	ProxyURL      string
}

// Fetcher implements crawler.Fetcher using the Colly collector. It issues
// one plain HTTP GET per call; rendering knobs in the request are ignored.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = !cfg.RespectRobots

	transport := newHTTPTransport(cfg.ProxyURL)
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResult, error) {
	var (
		result   crawler.FetchResult
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.timeout(request))

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range request.Headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		result = crawler.FetchResult{
			URL:         request.URL,
			FinalURL:    r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			Body:        append([]byte(nil), r.Body...),
			ContentType: r.Headers.Get("Content-Type"),
			Elapsed:     time.Since(start),
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil && r.StatusCode > 0 {
			// HTTP-level failure: surface the status so the escalator can
			// distinguish it from a transport error.
			result = crawler.FetchResult{
				URL:         request.URL,
				FinalURL:    request.URL,
				StatusCode:  r.StatusCode,
				Body:        append([]byte(nil), r.Body...),
				ContentType: r.Headers.Get("Content-Type"),
				Elapsed:     time.Since(start),
				ErrorText:   err.Error(),
			}
			fetchErr = nil
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return crawler.FetchResult{}, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return crawler.FetchResult{}, fmt.Errorf("colly response failed: %w", fetchErr)
		}
		if err != nil && result.StatusCode == 0 {
			return crawler.FetchResult{}, fmt.Errorf("colly visit failed: %w", err)
		}
		return result, nil
	}
}

func (f *Fetcher) timeout(request crawler.FetchRequest) time.Duration {
	if request.Timeout > 0 {
		return request.Timeout
	}
	if f.cfg.Timeout > 0 {
		return f.cfg.Timeout
	}
	return 15 * time.Second
}

func newHTTPTransport(proxyURL string) *http.Transport {
	proxy := http.ProxyFromEnvironment
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			proxy = http.ProxyURL(parsed)
		}
	}
	return &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
