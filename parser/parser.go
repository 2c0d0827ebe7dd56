// Package parser extracts product fields from fetched catalog markup.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/toshevnikola/new-egg-scraper/models"
)

// NotAvailable marks an optional field that could not be determined.
const NotAvailable = "N/A"

const sellerPrefix = "Sold & Shipped by "

// MalformedPageError reports a product page missing a mandatory section or
// field. Pages like this are skipped as a unit.
type MalformedPageError struct {
	URL     string
	Missing string
}

func (e *MalformedPageError) Error() string {
	return fmt.Sprintf("malformed product page %s: missing %s", e.URL, e.Missing)
}

// Product locates the three page sections and assembles a full record.
// Mandatory fields (title, price, image) abort with *MalformedPageError;
// optional fields degrade to their sentinel values.
func Product(doc *goquery.Document, url string) (*models.Product, error) {
	mainSection := doc.Find("div.product-wrap").First()
	if mainSection.Length() == 0 {
		return nil, &MalformedPageError{URL: url, Missing: "div.product-wrap"}
	}
	imageSection := doc.Find("div.product-view").First()
	if imageSection.Length() == 0 {
		return nil, &MalformedPageError{URL: url, Missing: "div.product-view"}
	}
	buySection := doc.Find("div.product-buy-box").First()
	if buySection.Length() == 0 {
		return nil, &MalformedPageError{URL: url, Missing: "div.product-buy-box"}
	}

	title, err := Title(mainSection)
	if err != nil {
		return nil, &MalformedPageError{URL: url, Missing: "h1.product-title"}
	}
	price, err := FinalPrice(buySection)
	if err != nil {
		return nil, &MalformedPageError{URL: url, Missing: "li.price-current"}
	}
	imageURL, err := MainImageURL(imageSection)
	if err != nil {
		return nil, &MalformedPageError{URL: url, Missing: "img.product-view-img-original"}
	}

	return &models.Product{
		URL:          url,
		Title:        title,
		Description:  Description(mainSection),
		FinalPrice:   price,
		Rating:       Rating(mainSection),
		SellerName:   SellerName(buySection),
		MainImageURL: imageURL,
	}, nil
}

// Title reads the product title heading. Mandatory.
func Title(mainSection *goquery.Selection) (string, error) {
	heading := mainSection.Find("h1.product-title").First()
	if heading.Length() == 0 {
		return "", fmt.Errorf("missing title heading")
	}
	return strings.TrimSpace(heading.Text()), nil
}

// Description joins the bullet-list items with single spaces, in document
// order. A missing bullet container is a normal marketplace variation and
// yields an empty string.
func Description(mainSection *goquery.Selection) string {
	bullets := mainSection.Find("div.product-bullets").First()
	if bullets.Length() == 0 {
		slog.Warn("product has no description bullets")
		return ""
	}
	var items []string
	bullets.Find("li").Each(func(_ int, item *goquery.Selection) {
		items = append(items, strings.TrimSpace(item.Text()))
	})
	return strings.Join(items, " ")
}

// Rating reads the rating indicator's title attribute, formatted as
// "<number> out of <max>", and returns the numeric prefix. Any missing
// markup or non-numeric prefix yields the sentinel. Never errors.
func Rating(mainSection *goquery.Selection) string {
	attr, ok := mainSection.Find("div.product-rating i").First().Attr("title")
	if !ok || attr == "" {
		slog.Info("no reviews for product")
		return NotAvailable
	}
	value := attr
	if i := strings.Index(attr, " out of "); i >= 0 {
		value = attr[:i]
	}
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return NotAvailable
	}
	return value
}

// SellerName reads the seller attribution and strips its literal prefix.
// Missing attribution yields the sentinel.
func SellerName(buySection *goquery.Selection) string {
	anchor := buySection.Find("div.product-seller a").First()
	if anchor.Length() == 0 {
		slog.Warn("product has no seller attribution")
		return NotAvailable
	}
	return strings.TrimPrefix(strings.TrimSpace(anchor.Text()), sellerPrefix)
}

// FinalPrice reads the current price text verbatim. Mandatory.
func FinalPrice(buySection *goquery.Selection) (string, error) {
	price := buySection.Find("li.price-current").First()
	if price.Length() == 0 {
		return "", fmt.Errorf("missing current price")
	}
	return strings.TrimSpace(price.Text()), nil
}

// MainImageURL reads the primary image source attribute. Mandatory.
func MainImageURL(imageSection *goquery.Selection) (string, error) {
	src, ok := imageSection.Find("img.product-view-img-original").First().Attr("src")
	if !ok || src == "" {
		return "", fmt.Errorf("missing main image source")
	}
	return src, nil
}

// ValidateProduct ensures the scraper captured the mandatory fields.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("product missing title for %s", p.URL)
	}
	if strings.TrimSpace(p.FinalPrice) == "" {
		return fmt.Errorf("product missing price for %s", p.URL)
	}
	if strings.TrimSpace(p.MainImageURL) == "" {
		return fmt.Errorf("product missing image for %s", p.URL)
	}
	return nil
}
