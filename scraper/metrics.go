package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry          *prometheus.Registry
	PagesFetchedTotal prometheus.Counter
	ProductsTotal     prometheus.Counter
	SkippedTotal      *prometheus.CounterVec
	DuplicatesTotal   prometheus.Counter
	RequestDuration   prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pagesFetched := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_listing_pages_fetched_total",
			Help: "Total catalog listing pages fetched and parsed.",
		},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_products_scraped_total",
			Help: "Total product records appended to the output.",
		},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_units_skipped_total",
			Help: "Total pages and products skipped, by error kind.",
		},
		[]string{"kind"},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_duplicate_urls_total",
			Help: "Total product URLs discovered more than once.",
		},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(pagesFetched, products, skipped, duplicates, requestDuration)

	return &Metrics{
		Registry:          registry,
		PagesFetchedTotal: pagesFetched,
		ProductsTotal:     products,
		SkippedTotal:      skipped,
		DuplicatesTotal:   duplicates,
		RequestDuration:   requestDuration,
	}
}

// IncPages increments the listing pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesFetchedTotal.Inc()
}

// IncProducts increments the scraped products counter.
func (m *Metrics) IncProducts() {
	if m == nil {
		return
	}
	m.ProductsTotal.Inc()
}

// IncSkipped increments the skipped units counter for an error kind.
func (m *Metrics) IncSkipped(kind string) {
	if m == nil {
		return
	}
	m.SkippedTotal.WithLabelValues(kind).Inc()
}

// IncDuplicates increments the duplicate URLs counter.
func (m *Metrics) IncDuplicates() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}
