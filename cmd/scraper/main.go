package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/toshevnikola/new-egg-scraper/config"
	"github.com/toshevnikola/new-egg-scraper/fetch"
	"github.com/toshevnikola/new-egg-scraper/models"
	"github.com/toshevnikola/new-egg-scraper/pipeline"
	"github.com/toshevnikola/new-egg-scraper/scraper"
)

func main() {
	// Missing .env files are fine; env vars may come from the shell.
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	countDefault := defaultCfg.ProductCount
	if value, ok, err := config.EnvInt("SCRAPER_COUNT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_COUNT: %v\n", err)
		os.Exit(1)
	} else if ok {
		countDefault = value
	}
	pageSizeDefault := defaultCfg.PageSize
	if value, ok, err := config.EnvInt("SCRAPER_PAGE_SIZE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PAGE_SIZE: %v\n", err)
		os.Exit(1)
	} else if ok {
		pageSizeDefault = value
	}
	outputDefault := fmt.Sprintf("data/products_%d.csv", time.Now().Unix())
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	productCount := flag.Int("count", countDefault, "Number of products to scrape")
	pageSize := flag.Int("page-size", pageSizeDefault, "Catalog page size (32, 60 or 96)")
	startPage := flag.Int("start-page", defaultCfg.StartPage, "Page number to start from")
	maxPage := flag.Int("max-page", defaultCfg.MaxPage, "Last catalog page number to attempt")
	delaySec := flag.Float64("delay", 1.0, "Delay before each request (seconds)")
	timeoutSec := flag.Int("timeout", 10, "Request timeout (seconds)")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Catalog base URL")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", "csv", "Output format: csv, json, or dual")
	dedup := flag.Bool("dedup", false, "Skip product URLs discovered more than once")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := buildConfigFromFlags(*baseURL, *productCount, *pageSize, *startPage, *maxPage, *delaySec, *timeoutSec, *outputFile, *outputFormat, *dedup, *respectRobots, *verbose, *metricsAddr)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("count", cfg.ProductCount),
		slog.Int("page_size", cfg.PageSize),
		slog.Duration("delay", cfg.Delay),
	)

	client, err := fetch.NewClient(cfg)
	if err != nil {
		slog.Error("initialising fetch client", slog.Any("error", err))
		os.Exit(1)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	s, err := scraper.New(cfg, client, writer)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current request")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := s.Run(ctx)
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, cfg.OutputFile)
}

func buildConfigFromFlags(baseURL string, productCount, pageSize, startPage, maxPage int, delaySec float64, timeoutSec int, outputFile, outputFormat string, dedup, respectRobots, verbose bool, metricsAddr string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.ProductCount = productCount
	cfg.PageSize = pageSize
	cfg.StartPage = startPage
	cfg.MaxPage = maxPage
	cfg.Delay = time.Duration(delaySec * float64(time.Second))
	cfg.Timeout = time.Duration(timeoutSec) * time.Second
	cfg.OutputFile = outputFile
	cfg.OutputFormat = strings.ToLower(outputFormat)
	cfg.Dedup = dedup
	cfg.RespectRobotsTxt = respectRobots
	cfg.Verbose = verbose
	cfg.MetricsAddr = metricsAddr
	return cfg
}

func createWriter(format, filename string) (pipeline.RecordWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.RunResult, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	duration := result.EndTime.Sub(result.StartTime)
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(result.ProductsScraped) / duration.Seconds()
	}

	fmt.Printf("  Pages fetched:  %d\n", result.PagesFetched)
	fmt.Printf("  URLs found:     %d\n", result.URLsDiscovered)
	fmt.Printf("  Products saved: %d\n", result.ProductsScraped)
	fmt.Printf("  Skipped:        %d\n", result.ProductsSkipped)
	if result.DuplicateURLs > 0 {
		fmt.Printf("  Duplicates:     %d\n", result.DuplicateURLs)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:    %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:       %v\n", duration)
	fmt.Printf("  Items/sec:      %.2f\n", itemsPerSec)
	fmt.Printf("  Output file:    %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
