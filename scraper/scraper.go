package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ArqamWaheed/submissionUpdater/config"
	"github.com/ArqamWaheed/submissionUpdater/extract"
	"github.com/ArqamWaheed/submissionUpdater/models"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// ErrRenderUnavailable is returned by Render when no render service is configured.
var ErrRenderUnavailable = errors.New("render service not configured")

const (
	modePlain    = "plain"
	modeRendered = "rendered"
)

// Page is one retrieved and parsed document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Document   *goquery.Document
	Rendered   bool
}

// Scraper retrieves the source document with colly, retrying transient
// failures and falling back to a prerender service for script-built pages.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	renderer  *colly.Collector
	extractor *extract.Extractor
	retry     *retryManager
	Metrics   *Metrics

	requestCount int64
	errorCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int
}

// NewScraper builds a scraper for cfg.SourceURL.
func NewScraper(cfg *config.Config, extractor *extract.Extractor) (*Scraper, error) {
	source, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}
	if source.Host == "" {
		return nil, fmt.Errorf("source url must include a host")
	}

	collector, err := newCollector(cfg, cfg.Timeout, source.Hostname())
	if err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:          cfg,
		collector:    collector,
		extractor:    extractor,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}

	if cfg.RenderURL != "" {
		render, err := url.Parse(cfg.RenderURL)
		if err != nil {
			return nil, fmt.Errorf("parse render url: %w", err)
		}
		s.renderer, err = newCollector(cfg, cfg.RenderTimeout, render.Hostname())
		if err != nil {
			return nil, err
		}
	}

	s.retry = newRetryManager(cfg, s.Metrics)
	return s, nil
}

func newCollector(cfg *config.Config, timeout time.Duration, host string) (*colly.Collector, error) {
	collector := colly.NewCollector(
		colly.AllowedDomains(host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}
	return collector, nil
}

// WithTransport replaces the HTTP transport of every collector.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
	if s.renderer != nil {
		s.renderer.WithTransport(rt)
	}
}

// Scrape fetches the source document and extracts its catalog. An empty
// extraction is retried once against the rendered page when a render
// service is configured.
func (s *Scraper) Scrape(ctx context.Context) (*models.Catalog, *models.FetchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	page, err := s.Fetch(ctx, s.cfg.SourceURL)
	if err != nil {
		return nil, s.result(start, nil), err
	}

	catalog, err := s.extractor.Catalog(page.Document, s.cfg.SourceURL, time.Now())
	if errors.Is(err, extract.ErrExtractionEmpty) && s.renderer != nil {
		slog.Warn("no terms in fetched page, retrying rendered page",
			slog.String("url", s.cfg.SourceURL),
			slog.Bool("script_gated", scriptGated(page.Document)),
		)
		s.Metrics.IncRenderFallback()

		rendered, renderErr := s.Render(ctx, s.cfg.SourceURL)
		if renderErr != nil {
			return nil, s.result(start, page), fmt.Errorf("render fallback: %w", renderErr)
		}
		page = rendered
		catalog, err = s.extractor.Catalog(page.Document, s.cfg.SourceURL, time.Now())
	}
	if err != nil {
		return nil, s.result(start, page), err
	}

	s.Metrics.AddCourses(catalog.CourseCount())
	slog.Info("catalog extracted",
		slog.String("url", s.cfg.SourceURL),
		slog.Bool("rendered", page.Rendered),
		slog.Int("terms", len(catalog.Terms)),
		slog.Int("courses", catalog.CourseCount()),
	)
	return catalog, s.result(start, page), nil
}

// Fetch retrieves target as served.
func (s *Scraper) Fetch(ctx context.Context, target string) (*Page, error) {
	return s.fetchWithRetry(ctx, s.collector, target, modePlain)
}

// Render retrieves target through the prerender service.
func (s *Scraper) Render(ctx context.Context, target string) (*Page, error) {
	if s.renderer == nil {
		return nil, ErrRenderUnavailable
	}
	renderURL, err := s.renderURL(target)
	if err != nil {
		return nil, err
	}
	page, err := s.fetchWithRetry(ctx, s.renderer, renderURL, modeRendered)
	if err != nil {
		return nil, err
	}
	page.URL = target
	page.Rendered = true
	return page, nil
}

func (s *Scraper) renderURL(target string) (string, error) {
	u, err := url.Parse(s.cfg.RenderURL)
	if err != nil {
		return "", fmt.Errorf("parse render url: %w", err)
	}
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Scraper) fetchWithRetry(ctx context.Context, c *colly.Collector, target, mode string) (*Page, error) {
	for {
		page, err := s.visit(ctx, c, target, mode)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			s.markFailed(target)
			return nil, ctx.Err()
		}
		s.recordError(target, err)

		delay, ok := s.retry.Next(target, err)
		if !ok {
			s.markFailed(target)
			return nil, err
		}
		slog.Debug("retrying request",
			slog.String("url", target),
			slog.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.markFailed(target)
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// visit performs one request on a clone of c so callbacks stay local to
// this attempt.
func (s *Scraper) visit(ctx context.Context, c *colly.Collector, target, mode string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c = c.Clone()
	var (
		page     *Page
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		atomic.AddInt64(&s.requestCount, 1)
		s.Metrics.IncRequest(mode)
	})

	c.OnResponse(func(r *colly.Response) {
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = classifyError(target, err, status)
	})

	visitErr := c.Visit(target)
	c.Wait()

	switch {
	case fetchErr != nil:
		return nil, fetchErr
	case visitErr != nil:
		return nil, classifyError(target, visitErr, 0)
	case page == nil:
		return nil, classifyError(target, errors.New("no response"), 0)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	page.Document = doc
	return page, nil
}

// scriptGated reports pages whose content is assembled client side.
func scriptGated(doc *goquery.Document) bool {
	if doc.Find("noscript").Length() > 0 {
		return true
	}
	text := strings.TrimSpace(doc.Find("body").Text())
	return doc.Find("script").Length() > 0 && len(text) < 200
}

func (s *Scraper) recordError(target string, err error) {
	atomic.AddInt64(&s.errorCount, 1)
	category := errorTypeLabel(err)

	s.mu.Lock()
	s.errorsByType[category]++
	s.mu.Unlock()

	slog.Error("request error",
		slog.String("url", target),
		slog.String("category", category),
		slog.Any("error", err),
	)
	s.Metrics.IncError(category)
}

func (s *Scraper) markFailed(target string) {
	s.mu.Lock()
	s.failedURLs = append(s.failedURLs, target)
	s.mu.Unlock()
}

func (s *Scraper) result(start time.Time, page *Page) *models.FetchResult {
	result := &models.FetchResult{
		URL:          s.cfg.SourceURL,
		StartTime:    start,
		EndTime:      time.Now(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		RetryCount:   s.retry.TotalRetries(),
		ErrorsByType: s.snapshotErrors(),
		FailedURLs:   s.snapshotFailedURLs(),
	}
	if page != nil {
		result.StatusCode = page.StatusCode
		result.Rendered = page.Rendered
	}
	return result
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

type retryManager struct {
	cfg     *config.Config
	metrics *Metrics

	mu           sync.Mutex
	attempts     map[string]int
	totalRetries int
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	return &retryManager{
		cfg:      cfg,
		metrics:  metrics,
		attempts: make(map[string]int),
	}
}

// Next records a retry for url and returns its delay, or false when err is
// permanent or the attempt limit is reached.
func (rm *retryManager) Next(url string, err error) (time.Duration, bool) {
	if rm.cfg.MaxRetries == 0 {
		return 0, false
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && !fetchErr.Retryable() {
		return 0, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		return 0, false
	}
	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	rm.metrics.IncRetries()

	return rm.backoff(attempt), true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if limit := rm.cfg.RetryBackoffMax; limit > 0 && delay > limit {
		delay = limit
	}
	return delay
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}
