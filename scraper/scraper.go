// Package scraper discovers product URLs from the paginated catalog and
// scrapes each product detail page into the record sink.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/toshevnikola/new-egg-scraper/config"
	"github.com/toshevnikola/new-egg-scraper/fetch"
	"github.com/toshevnikola/new-egg-scraper/models"
	"github.com/toshevnikola/new-egg-scraper/parser"
	"github.com/toshevnikola/new-egg-scraper/pipeline"
)

// Fetcher retrieves one URL as a parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

const minSeenWindow = 128

// Scraper runs the sequential discover-then-scrape loop.
type Scraper struct {
	cfg     *config.Config
	client  Fetcher
	writer  pipeline.RecordWriter
	Metrics *Metrics

	// seen tracks discovered URLs so duplicates across catalog pages can be
	// reported (and skipped when de-duplication is enabled).
	seen *lru.Cache[string, struct{}]

	pagesFetched int
}

// New builds a scraper instance from cfg.
func New(cfg *config.Config, client Fetcher, writer pipeline.RecordWriter) (*Scraper, error) {
	if client == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if writer == nil {
		return nil, fmt.Errorf("record writer is required")
	}

	window := cfg.ProductCount
	if window < minSeenWindow {
		window = minSeenWindow
	}
	seen, err := lru.New[string, struct{}](window)
	if err != nil {
		return nil, fmt.Errorf("create seen cache: %w", err)
	}

	return &Scraper{
		cfg:     cfg,
		client:  client,
		writer:  writer,
		Metrics: NewMetrics(),
		seen:    seen,
	}, nil
}

// listingURL builds the catalog page URL for one page number.
func listingURL(baseURL string, page, pageSize int) string {
	return fmt.Sprintf("%s/Page-%d?PageSize=%d", baseURL, page, pageSize)
}

// DiscoverURLs walks catalog pages from the configured start page until the
// target product count is reached or the page ceiling is hit. Pages that
// fail to fetch or carry no product list contribute zero URLs; the walk
// never aborts because of a single page.
func (s *Scraper) DiscoverURLs(ctx context.Context) []string {
	urls := make([]string, 0, s.cfg.ProductCount)
	page := s.cfg.StartPage

	for len(urls) < s.cfg.ProductCount {
		if ctx.Err() != nil {
			slog.Info("discovery interrupted", slog.Int("page", page))
			break
		}
		if page > s.cfg.MaxPage {
			slog.Warn("reached product catalog page limit", slog.Int("max_page", s.cfg.MaxPage))
			break
		}
		urls = append(urls, s.scrapeListingPage(ctx, page)...)
		page++
	}

	if len(urls) > s.cfg.ProductCount {
		urls = urls[:s.cfg.ProductCount]
	}
	return urls
}

// scrapeListingPage fetches one catalog page and collects the product link
// of every entry in the product list container.
func (s *Scraper) scrapeListingPage(ctx context.Context, page int) []string {
	pageURL := listingURL(s.cfg.BaseURL, page, s.cfg.PageSize)

	start := time.Now()
	doc, err := s.client.Fetch(ctx, pageURL)
	if err != nil {
		slog.Error("skipping listing page",
			slog.Int("page", page),
			slog.String("url", pageURL),
			slog.Any("error", err),
		)
		s.Metrics.IncSkipped("listing_" + errorKind(err))
		return nil
	}
	s.Metrics.ObserveDuration(time.Since(start))
	s.Metrics.IncPages()
	s.pagesFetched++

	container := doc.Find("div#Product_List").First()
	if container.Length() == 0 {
		slog.Warn("listing page has no product list", slog.Int("page", page))
		return nil
	}

	var urls []string
	container.Children().Each(func(_ int, entry *goquery.Selection) {
		href, ok := entry.Find("a").First().Attr("href")
		if !ok || href == "" {
			// Entries without a link are decoration, not products.
			return
		}
		urls = append(urls, href)
	})
	return urls
}

// ScrapeProduct fetches one product detail page and extracts a full record.
func (s *Scraper) ScrapeProduct(ctx context.Context, url string) (*models.Product, error) {
	start := time.Now()
	doc, err := s.client.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	s.Metrics.ObserveDuration(time.Since(start))

	product, err := parser.Product(doc, url)
	if err != nil {
		return nil, err
	}
	if err := parser.ValidateProduct(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Run discovers product URLs, then sequentially scrapes each one and appends
// it to the record sink. Failed pages and products are skipped; only sink
// failures abort the run.
func (s *Scraper) Run(ctx context.Context) (*models.RunResult, error) {
	result := &models.RunResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	defer func() {
		result.EndTime = time.Now()
	}()

	urls := s.DiscoverURLs(ctx)
	result.URLsDiscovered = len(urls)
	result.PagesFetched = s.pagesFetched
	slog.Info("discovered product urls", slog.Int("count", len(urls)))

	for i, url := range urls {
		if ctx.Err() != nil {
			slog.Info("run interrupted", slog.Int("remaining", len(urls)-i))
			break
		}

		if duplicate, _ := s.seen.ContainsOrAdd(url, struct{}{}); duplicate {
			result.DuplicateURLs++
			s.Metrics.IncDuplicates()
			slog.Warn("duplicate product url", slog.String("url", url))
			if s.cfg.Dedup {
				continue
			}
		}

		product, err := s.ScrapeProduct(ctx, url)
		if err != nil {
			kind := errorKind(err)
			result.ProductsSkipped++
			result.ErrorsByType[kind]++
			s.Metrics.IncSkipped(kind)
			slog.Error("skipping product",
				slog.String("url", url),
				slog.String("kind", kind),
				slog.Any("error", err),
			)
			continue
		}

		if err := s.writer.Write(product); err != nil {
			return result, fmt.Errorf("append record: %w", err)
		}
		result.ProductsScraped++
		s.Metrics.IncProducts()
		slog.Debug("scraped product", slog.Int("index", i), slog.String("url", url))
	}

	return result, nil
}

// errorKind labels an error for metrics and the run summary.
func errorKind(err error) string {
	var httpErr *fetch.HTTPError
	if errors.As(err, &httpErr) {
		return "http"
	}
	var malformed *parser.MalformedPageError
	if errors.As(err, &malformed) {
		return "malformed_page"
	}
	return "other"
}
