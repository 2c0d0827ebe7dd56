package config

import (
	"fmt"
	"net/url"
	"time"
)

// AllowedPageSizes lists the page sizes the catalog accepts.
var AllowedPageSizes = []int{32, 60, 96}

// Config holds scraper configuration.
type Config struct {
	BaseURL          string
	ProductCount     int
	PageSize         int
	StartPage        int
	MaxPage          int
	Delay            time.Duration
	Timeout          time.Duration
	OutputFile       string
	OutputFormat     string // csv, json, or dual
	UserAgent        string
	Dedup            bool
	Verbose          bool
	RespectRobotsTxt bool
	MetricsAddr      string
}

// DefaultConfig returns the defaults for the deals catalog.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://www.newegg.com/Newegg-Deals/EventSaleStore/ID-9447",
		ProductCount:     500,
		PageSize:         96,
		StartPage:        1,
		MaxPage:          100,
		Delay:            time.Second,
		Timeout:          10 * time.Second,
		OutputFile:       "data/products.csv",
		OutputFormat:     "csv",
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Dedup:            false,
		Verbose:          false,
		RespectRobotsTxt: false,
		MetricsAddr:      "",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.ProductCount <= 0 {
		return fmt.Errorf("product count must be positive")
	}
	if !validPageSize(c.PageSize) {
		return fmt.Errorf("page size must be one of %v", AllowedPageSizes)
	}
	if c.StartPage <= 0 {
		return fmt.Errorf("start page must be positive")
	}
	if c.MaxPage <= 0 {
		return fmt.Errorf("max page must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

func validPageSize(size int) bool {
	for _, allowed := range AllowedPageSizes {
		if size == allowed {
			return true
		}
	}
	return false
}
