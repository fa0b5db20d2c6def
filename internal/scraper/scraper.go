package scraper

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"go-api/internal/config"
	"go-api/internal/metrics"
	"go-api/internal/models"
	"go-api/internal/storage"

	"github.com/avast/retry-go/v4"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultMaxDocumentSize = 50 << 20

// AppealStore is the part of the appeal service the scraper writes through.
type AppealStore interface {
	FindByCode(ctx context.Context, code string) (*models.Appeal, error)
	UpsertDocument(ctx context.Context, doc *models.AppealDocument) error
	FillMissingFields(ctx context.Context, appealID int64, ex models.AppealExtract) (bool, error)
}

type Options struct {
	FeedURL         string
	Concurrency     int
	PerHostConns    int
	Timeout         time.Duration
	Retries         int
	RetryDelay      time.Duration
	MaxDocumentSize int64
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FeedURL:      cfg.AppealDocsFeedURL,
		Concurrency:  cfg.ScraperConcurrency,
		PerHostConns: cfg.ScraperPerHostConns,
		Timeout:      cfg.ScraperTimeout,
		Retries:      cfg.ScraperRetries,
	}
}

func (o *Options) setDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.PerHostConns <= 0 {
		o.PerHostConns = 4
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.MaxDocumentSize <= 0 {
		o.MaxDocumentSize = defaultMaxDocumentSize
	}
}

// ItemError records a document that could not be processed.
type ItemError struct {
	Code string `json:"code"`
	URL  string `json:"url"`
	Err  string `json:"error"`
}

// Report summarises one run.
type Report struct {
	RunID   string      `json:"run_id"`
	Items   int         `json:"items"`
	Stored  int         `json:"stored"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Errors  []ItemError `json:"errors,omitempty"`
}

type Scraper struct {
	opts      Options
	client    *http.Client
	store     AppealStore
	blobs     storage.Blob
	extractor *Extractor
	text      TextFunc
	logr      *zap.Logger
	metrics   *metrics.Metrics
}

// New builds a scraper. m may be nil.
func New(opts Options, store AppealStore, blobs storage.Blob, extractor *Extractor, logr *zap.Logger, m *metrics.Metrics) *Scraper {
	opts.setDefaults()
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = opts.PerHostConns
	transport.MaxIdleConnsPerHost = opts.PerHostConns

	return &Scraper{
		opts:      opts,
		client:    &http.Client{Transport: transport, Timeout: opts.Timeout},
		store:     store,
		blobs:     blobs,
		extractor: extractor,
		text:      PDFText,
		logr:      logr,
		metrics:   m,
	}
}

// WithTextFunc replaces the PDF text extraction step.
func (s *Scraper) WithTextFunc(fn TextFunc) *Scraper {
	s.text = fn
	return s
}

// Run reads the feed and processes every document it lists. Only a feed
// failure aborts the run.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	if s.opts.FeedURL == "" {
		return nil, errors.New("no appeal document feed configured")
	}
	items, err := FetchFeed(ctx, s.client, s.opts.FeedURL)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, items), nil
}

type outcome int

const (
	outcomeStored outcome = iota
	outcomeUpdated
	outcomeSkipped
)

type failure struct {
	item Item
	err  error
}

// Process downloads the items concurrently, then retries the failed ones
// one at a time.
func (s *Scraper) Process(ctx context.Context, items []Item) *Report {
	start := time.Now()
	report := &Report{RunID: ksuid.New().String(), Items: len(items)}
	logr := s.logr.With(zap.String("run_id", report.RunID))
	logr.Info("scraper run started", zap.Int("items", len(items)), zap.Int("concurrency", s.opts.Concurrency))

	var (
		mu       sync.Mutex
		failures []failure
	)

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for _, item := range items {
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				failures = append(failures, failure{item, ctx.Err()})
				mu.Unlock()
				return nil
			}
			res, err := s.processItem(ctx, item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, failure{item, err})
				return nil
			}
			report.record(res)
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failures {
		err := f.err
		if retry.IsRecoverable(err) && ctx.Err() == nil {
			var res outcome
			err = retry.Do(
				func() error {
					var err error
					res, err = s.processItem(ctx, f.item)
					return err
				},
				retry.Context(ctx),
				retry.Attempts(uint(s.opts.Retries)),
				retry.Delay(s.opts.RetryDelay),
				retry.DelayType(retry.BackOffDelay),
				retry.LastErrorOnly(true),
				retry.OnRetry(func(n uint, err error) {
					logr.Debug("retrying document", zap.String("url", f.item.URL), zap.Uint("attempt", n+1), zap.Error(err))
				}),
			)
			if err == nil {
				report.record(res)
				continue
			}
		}
		report.Failed++
		report.Errors = append(report.Errors, ItemError{Code: f.item.Code, URL: f.item.URL, Err: err.Error()})
		logr.Warn("document failed", zap.String("code", f.item.Code), zap.String("url", f.item.URL), zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.ScrapedDocuments.WithLabelValues("stored").Add(float64(report.Stored))
		s.metrics.ScrapedDocuments.WithLabelValues("skipped").Add(float64(report.Skipped))
		s.metrics.ScrapedDocuments.WithLabelValues("failed").Add(float64(report.Failed))
		s.metrics.ScrapeDuration.Observe(time.Since(start).Seconds())
	}
	logr.Info("scraper run finished",
		zap.Int("stored", report.Stored),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("took", time.Since(start)),
	)
	return report
}

func (r *Report) record(res outcome) {
	switch res {
	case outcomeSkipped:
		r.Skipped++
	case outcomeUpdated:
		r.Stored++
		r.Updated++
	default:
		r.Stored++
	}
}

func (s *Scraper) processItem(ctx context.Context, item Item) (outcome, error) {
	appeal, err := s.store.FindByCode(ctx, item.Code)
	if errors.Is(err, sql.ErrNoRows) {
		s.logr.Debug("no appeal for document", zap.String("code", item.Code))
		return outcomeSkipped, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find appeal %s: %w", item.Code, err)
	}

	body, contentType, err := s.download(ctx, item.URL)
	if err != nil {
		return 0, err
	}

	base := documentName(item.URL)
	location, err := s.blobs.Put(ctx, path.Join("appeals", item.Code, base), bytes.NewReader(body), contentType)
	if err != nil {
		return 0, err
	}

	doc := &models.AppealDocument{
		Name:        item.Title,
		DocumentURL: item.URL,
		Document:    location,
		AppealID:    appeal.ID,
		Type:        "Appeal",
	}
	if doc.Name == "" {
		doc.Name = base
	}
	if appeal.Country != nil && appeal.Country.ISO != nil {
		doc.ISO = *appeal.Country.ISO
	}
	if err := s.store.UpsertDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("save document: %w", err)
	}

	text, err := s.text(body)
	if err != nil {
		// the document is kept, only the figures are lost
		s.logr.Warn("document text unreadable", zap.String("url", item.URL), zap.Error(err))
		return outcomeStored, nil
	}
	ex := s.extractor.Extract(text)
	changed, err := s.store.FillMissingFields(ctx, appeal.ID, ex.Appeal)
	if err != nil {
		return 0, err
	}
	if changed {
		return outcomeUpdated, nil
	}
	return outcomeStored, nil
}

func (s *Scraper) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", retry.Unrecoverable(fmt.Errorf("bad document url %q: %w", rawURL, err))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, "", retry.Unrecoverable(err)
		}
		return nil, "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.opts.MaxDocumentSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	if int64(len(body)) > s.opts.MaxDocumentSize {
		return nil, "", retry.Unrecoverable(fmt.Errorf("download %s: larger than %d bytes", rawURL, s.opts.MaxDocumentSize))
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	return body, contentType, nil
}

func documentName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return ksuid.New().String() + ".pdf"
}
