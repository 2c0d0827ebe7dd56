package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/toshevnikola/new-egg-scraper/models"
)

func sampleProduct(url string) *models.Product {
	return &models.Product{
		URL:          url,
		Title:        "Widget Pro 3000",
		Description:  "Desc1. Desc2.",
		FinalPrice:   "$199.99",
		Rating:       "4.2",
		SellerName:   "Acme",
		MainImageURL: "https://img.example.test/widget.png",
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

func TestCSVWriterHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	if err := writer.Write(sampleProduct("http://example.test/product/1")); err != nil {
		t.Fatalf("write first record: %v", err)
	}
	if err := writer.Write(sampleProduct("http://example.test/product/2")); err != nil {
		t.Fatalf("write second record: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 3 {
		t.Fatalf("rows = %d, want 3", len(records))
	}
	wantHeader := []string{"url", "title", "description", "final_price", "rating", "seller_name", "main_image_url"}
	for i, name := range wantHeader {
		if records[0][i] != name {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], name)
		}
	}
	if records[1][0] != "http://example.test/product/1" || records[2][0] != "http://example.test/product/2" {
		t.Fatalf("rows out of call order: %v", records[1:])
	}
}

func TestCSVWriterAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")

	first, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := first.Write(sampleProduct("http://example.test/product/1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("reopen csv writer: %v", err)
	}
	if err := second.Write(sampleProduct("http://example.test/product/2")); err != nil {
		t.Fatalf("write after reopen: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 3 {
		t.Fatalf("rows = %d, want 3 (one header, two records)", len(records))
	}
	for _, record := range records[1:] {
		if record[0] == "url" {
			t.Fatalf("second header row written on reopen")
		}
	}
}

func TestCSVWriterCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "products.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(sampleProduct("http://example.test/product/1")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestCSVWriterEscapesEmbeddedDelimiters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	p := sampleProduct("http://example.test/product/1")
	p.Description = "Desc1, with comma.\nAnd a newline."
	if err := writer.Write(p); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 2 {
		t.Fatalf("rows = %d, want 2", len(records))
	}
	if records[1][2] != p.Description {
		t.Fatalf("description = %q, want %q", records[1][2], p.Description)
	}
}

func TestJSONWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(sampleProduct("http://example.test/product/1")); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	reopened, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("reopen json writer: %v", err)
	}
	if err := reopened.Write(sampleProduct("http://example.test/product/2")); err != nil {
		t.Fatalf("write after reopen: %v", err)
	}
	if err := reopened.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.Product
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 2 {
		t.Fatalf("json lines = %d, want 2", count)
	}
}

func TestDualWriterWritesBoth(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "products.csv")
	jsonPath := filepath.Join(dir, "products.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(sampleProduct("http://example.test/product/1")); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	records := readCSV(t, csvPath)
	if len(records) != 2 {
		t.Fatalf("csv rows = %d, want 2", len(records))
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json output missing or empty: %v", err)
	}
}
