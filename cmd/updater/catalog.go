package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/extract"
	"github.com/ArqamWaheed/submissionUpdater/match"
	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/ArqamWaheed/submissionUpdater/parser"
	"github.com/ArqamWaheed/submissionUpdater/pipeline"
	"github.com/ArqamWaheed/submissionUpdater/reconcile"
	"github.com/ArqamWaheed/submissionUpdater/scraper"
	"github.com/ArqamWaheed/submissionUpdater/storage"
	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newScraper returns nil when the catalog is read from a local file.
func (a *app) newScraper() (*scraper.Scraper, error) {
	if err := a.cfg.ValidateSource(); err != nil {
		return nil, err
	}
	if a.cfg.SourceFile != "" {
		return nil, nil
	}
	s, err := scraper.NewScraper(a.cfg, extract.New(a.cfg.Schema))
	if err != nil {
		return nil, fmt.Errorf("initialising scraper: %w", err)
	}
	if a.transport != nil {
		s.WithTransport(a.transport)
	}
	return s, nil
}

// loadCatalog reads a saved catalog and checks it before it is compared.
func loadCatalog(path string) (*models.Catalog, error) {
	catalog, err := storage.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	if err := parser.ValidateCatalog(catalog); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog, nil
}

// capture extracts the live catalog. result is nil for local files.
func (a *app) capture(ctx context.Context, s *scraper.Scraper) (*models.Catalog, *models.FetchResult, error) {
	var (
		catalog *models.Catalog
		result  *models.FetchResult
		err     error
	)
	if s == nil {
		catalog, err = extractFile(a.cfg.SourceFile, extract.New(a.cfg.Schema))
	} else {
		catalog, result, err = s.Scrape(ctx)
	}
	if err != nil {
		return nil, result, err
	}
	if err := parser.ValidateCatalog(catalog); err != nil {
		return nil, result, fmt.Errorf("extracted catalog: %w", err)
	}
	return catalog, result, nil
}

func extractFile(path string, ex *extract.Extractor) (*models.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse source file: %w", err)
	}
	return ex.Catalog(doc, path, time.Now())
}

// reconcileCatalogs aligns the terms of both catalogs and diffs every pair on
// the worker pipeline.
func (a *app) reconcileCatalogs(ctx context.Context, live, reference *models.Catalog, reg prometheus.Registerer) (*models.Report, map[string]interface{}, error) {
	engine := reconcile.New(reconcile.Options{
		PrerequisiteAware:   a.cfg.PrerequisiteAware,
		SimilarityThreshold: a.cfg.SimilarityThreshold,
	})
	pairs := match.Terms(live.Terms, reference.Terms)
	for _, pair := range pairs {
		slog.Debug("term aligned",
			slog.String("live", pair.Live.Name),
			slog.String("reference", pair.Reference.Name),
			slog.String("rule", string(pair.Rule)),
		)
	}

	p := pipeline.NewPipeline(ctx, engine, a.cfg)
	if reg != nil {
		if err := p.RegisterMetrics(reg); err != nil {
			return nil, nil, err
		}
	}
	p.Start(a.cfg.Parallelism)
	if a.cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	if err := p.Process(pairs...); err != nil {
		_ = p.Close()
		return nil, nil, fmt.Errorf("queue term pairs: %w", err)
	}
	if err := p.Close(); err != nil {
		return nil, nil, fmt.Errorf("pipeline shutdown failed: %w", err)
	}
	return p.Report(time.Now()), p.GetMetrics(), nil
}

func (a *app) writeReport(report *models.Report) error {
	writer, err := pipeline.NewWriter(a.cfg.OutputFormat, a.cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	if err := writer.Write(report); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Validate(); err != nil {
		writer.Close()
		return fmt.Errorf("output validation failed: %w", err)
	}
	return writer.Close()
}

// serveMetrics exposes gatherers on cfg.MetricsAddr until the returned stop
// function is called. It is a no-op without an address.
func (a *app) serveMetrics(gatherers prometheus.Gatherers) func() {
	if a.cfg.MetricsAddr == "" {
		return func() {}
	}
	server := &http.Server{
		Addr:    a.cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", a.cfg.MetricsAddr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}
