// Package fetch retrieves pages and parses them into queryable documents.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/toshevnikola/new-egg-scraper/config"
)

// HTTPError reports a 4xx/5xx response status for a fetched URL.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d fetching %s", e.StatusCode, e.URL)
}

// Client issues single-attempt GET requests with a fixed pre-request delay.
// It is strictly sequential: one fetch at a time, no retries.
type Client struct {
	collector *colly.Collector
	delay     time.Duration

	mu  sync.Mutex
	doc *goquery.Document
	err error
}

// NewClient builds a fetch client configured from cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	c := &Client{
		collector: collector,
		delay:     cfg.Delay,
	}

	collector.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			c.err = fmt.Errorf("parse %s: %w", r.Request.URL, err)
			return
		}
		c.doc = doc
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= http.StatusBadRequest {
			c.err = &HTTPError{URL: r.Request.URL.String(), StatusCode: r.StatusCode}
			return
		}
		c.err = err
	})

	return c, nil
}

// WithTransport replaces the underlying round tripper. Used by tests.
func (c *Client) WithTransport(transport http.RoundTripper) {
	c.collector.WithTransport(transport)
}

// Fetch sleeps for the configured delay, issues one GET for url and returns
// the parsed document. A 4xx/5xx status is returned as *HTTPError without
// retrying.
func (c *Client) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.doc = nil
	c.err = nil

	// The collector is synchronous, so the handlers above have run by the
	// time Visit returns.
	visitErr := c.collector.Visit(url)
	if c.err != nil {
		return nil, c.err
	}
	if visitErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, visitErr)
	}
	if c.doc == nil {
		return nil, fmt.Errorf("fetch %s: empty response", url)
	}
	return c.doc, nil
}

// wait blocks for the fixed delay applied before every request.
func (c *Client) wait(ctx context.Context) error {
	if c.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
