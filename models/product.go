// Package models defines data structures for the scraper.
package models

import "time"

// Product represents one scraped product detail page. Field order matches
// the column order of the CSV output.
type Product struct {
	URL          string `csv:"url" json:"url"`
	Title        string `csv:"title" json:"title"`
	Description  string `csv:"description" json:"description"`
	FinalPrice   string `csv:"final_price" json:"final_price"`
	Rating       string `csv:"rating" json:"rating"`
	SellerName   string `csv:"seller_name" json:"seller_name"`
	MainImageURL string `csv:"main_image_url" json:"main_image_url"`
}

// RunResult holds the overall result of a scraping run.
type RunResult struct {
	StartTime       time.Time
	EndTime         time.Time
	PagesFetched    int
	URLsDiscovered  int
	ProductsScraped int
	ProductsSkipped int
	DuplicateURLs   int
	ErrorsByType    map[string]int
}
