package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"etgcatalog/internal/apis/etg"
	"etgcatalog/internal/apis/etg/mapper"
	"etgcatalog/internal/domain/models"
	"etgcatalog/internal/metrics"
)

const (
	MaxReportedErrors = 20

	DefaultMaxSeconds = 55
	DefaultTimeout    = 18 * time.Second
	DefaultPasses     = 2
	DefaultMaxPasses  = 5
)

// Params bound one FetchAll run. Zero values fall back to the service defaults.
type Params struct {
	MaxSeconds int
	Timeout    time.Duration
	Passes     int
}

type Result struct {
	Products      []models.Product
	Total         int
	UniqueURLs    int
	ReportedCount int
	PerPage       int
	ExpectedPages int
	// successful page fetches, bootstrap page included
	PagesFetched int
	PassesRun    int
	Duration     time.Duration
	// first MaxReportedErrors page errors; ErrorsTotal counts all of them
	Errors      []models.PageError
	ErrorsTotal int
}

// BootstrapError means page 1 could not be fetched, so nothing can be planned.
type BootstrapError struct {
	Err error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap page 1: %v", e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

type CatalogService struct {
	etg      etg.ETGService
	mapper   *mapper.Mapper
	log      *slog.Logger
	metrics  *metrics.Metrics
	defaults Params

	maxPasses int
	now       func() time.Time
}

type Option func(*CatalogService)

func WithClock(now func() time.Time) Option {
	return func(s *CatalogService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CatalogService) { s.metrics = m }
}

// WithDefaults replaces the parameters used for zero fields of Params.
func WithDefaults(p Params) Option {
	return func(s *CatalogService) {
		if p.MaxSeconds > 0 {
			s.defaults.MaxSeconds = p.MaxSeconds
		}
		if p.Timeout > 0 {
			s.defaults.Timeout = p.Timeout
		}
		if p.Passes > 0 {
			s.defaults.Passes = p.Passes
		}
	}
}

func WithMaxPasses(n int) Option {
	return func(s *CatalogService) {
		if n > 0 {
			s.maxPasses = n
		}
	}
}

func NewCatalogService(etgSvc etg.ETGService, m *mapper.Mapper, logger *slog.Logger, opts ...Option) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = mapper.New(nil)
	}

	s := &CatalogService{
		etg:    etgSvc,
		mapper: m,
		log:    logger,
		defaults: Params{
			MaxSeconds: DefaultMaxSeconds,
			Timeout:    DefaultTimeout,
			Passes:     DefaultPasses,
		},
		maxPasses: DefaultMaxPasses,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CatalogService) normalize(p Params) Params {
	if p.MaxSeconds <= 0 {
		p.MaxSeconds = s.defaults.MaxSeconds
	}
	if p.Timeout <= 0 {
		p.Timeout = s.defaults.Timeout
	}
	if p.Passes <= 0 {
		p.Passes = s.defaults.Passes
	}
	if p.Passes > s.maxPasses {
		p.Passes = s.maxPasses
	}
	return p
}

// ExpectedPages is ceil(count/perPage), never below 1.
func ExpectedPages(count, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 1
	}
	pages := count / perPage
	if count%perPage != 0 {
		pages++
	}
	return pages
}

// FetchAll bootstraps on page 1, then sweeps pages 2..N up to p.Passes times.
// Only a page 1 failure is returned as an error (*BootstrapError); later page
// failures and an exhausted time budget are recorded in Result.Errors.
func (s *CatalogService) FetchAll(ctx context.Context, p Params) (*Result, error) {
	p = s.normalize(p)
	start := s.now()
	today := start.UTC().Format(time.DateOnly)
	budget := time.Duration(p.MaxSeconds) * time.Second

	s.log.Info("catalog fetch start",
		"max_seconds", p.MaxSeconds,
		"timeout", p.Timeout,
		"passes", p.Passes,
	)

	first, err := s.fetchPage(ctx, 1, p.Timeout)
	if err != nil {
		s.metrics.IncPage("error")
		s.metrics.ObserveRun("bootstrap_failed", s.now().Sub(start))
		s.log.Error("bootstrap failed", "page", 1, "err", err)
		return nil, &BootstrapError{Err: err}
	}
	s.metrics.IncPage("ok")

	agg := newAggregation(s.mapper, today)
	s.metrics.AddProducts(agg.merge(first.Products))

	res := &Result{
		ReportedCount: first.Count,
		PerPage:       first.PerPage,
		ExpectedPages: ExpectedPages(first.Count, first.PerPage),
		PagesFetched:  1,
	}
	if !first.HasDetails {
		s.log.Warn("page 1 has no usable details, fetching it alone")
	}

	s.log.Info("catalog plan",
		"reported_count", res.ReportedCount,
		"per_page", res.PerPage,
		"expected_pages", res.ExpectedPages,
	)

sweep:
	for pass := 1; pass <= p.Passes; pass++ {
		res.PassesRun = pass
		before := agg.unique()

		for page := 2; page <= res.ExpectedPages; page++ {
			if elapsed := s.now().Sub(start); elapsed > budget {
				res.addError(page, fmt.Sprintf("time budget exceeded: %.1fs elapsed, max_seconds=%d", elapsed.Seconds(), p.MaxSeconds))
				s.metrics.IncPage("budget_exceeded")
				s.log.Warn("time budget exceeded", "pass", pass, "page", page, "elapsed", elapsed)
				break sweep
			}
			if err := ctx.Err(); err != nil {
				res.addError(page, err.Error())
				s.log.Warn("request context done", "pass", pass, "page", page, "err", err)
				break sweep
			}

			pg, err := s.fetchPage(ctx, page, p.Timeout)
			if err != nil {
				res.addError(page, err.Error())
				s.metrics.IncPage("error")
				s.log.Warn("page failed", "pass", pass, "page", page, "err", err)
				continue
			}
			s.metrics.IncPage("ok")
			res.PagesFetched++
			s.metrics.AddProducts(agg.merge(pg.Products))
		}

		s.log.Info("catalog pass done",
			"pass", pass,
			"new_urls", agg.unique()-before,
			"unique_urls", agg.unique(),
		)

		if agg.unique() >= res.ReportedCount {
			break
		}
	}

	res.Products = agg.products
	res.Total = len(agg.products)
	res.UniqueURLs = agg.unique()
	res.Duration = s.now().Sub(start)
	s.metrics.ObserveRun("ok", res.Duration)

	s.log.Info("catalog fetch done",
		"total", res.Total,
		"pages_fetched", res.PagesFetched,
		"passes_run", res.PassesRun,
		"errors", res.ErrorsTotal,
		"duration", res.Duration,
	)

	return res, nil
}

func (s *CatalogService) fetchPage(ctx context.Context, page int, timeout time.Duration) (etg.ProductsPage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pg, err := s.etg.ListProducts(ctx, page)
	if err != nil {
		return etg.ProductsPage{}, fmt.Errorf("page %d: %w", page, err)
	}
	return pg, nil
}

func (r *Result) addError(page int, msg string) {
	r.ErrorsTotal++
	if len(r.Errors) < MaxReportedErrors {
		r.Errors = append(r.Errors, models.PageError{Page: page, Error: msg})
	}
}

// aggregation is the per-run dedup state.
type aggregation struct {
	mapper   *mapper.Mapper
	today    string
	seen     map[string]struct{}
	products []models.Product
}

func newAggregation(m *mapper.Mapper, today string) *aggregation {
	return &aggregation{
		mapper:   m,
		today:    today,
		seen:     make(map[string]struct{}, 256),
		products: make([]models.Product, 0, 256),
	}
}

// merge adds products with unseen URLs and returns how many were added.
func (a *aggregation) merge(raw []etg.Product) int {
	added := 0
	for _, p := range raw {
		dp, ok := a.mapper.FromProduct(p, a.today)
		if !ok {
			continue
		}
		if _, dup := a.seen[dp.ProductURL]; dup {
			continue
		}
		a.seen[dp.ProductURL] = struct{}{}
		a.products = append(a.products, dp)
		added++
	}
	return added
}

func (a *aggregation) unique() int {
	return len(a.seen)
}
