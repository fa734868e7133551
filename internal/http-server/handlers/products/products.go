package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"etgcatalog/internal/apis/etg/usecases"
	"etgcatalog/internal/domain/models"
	"etgcatalog/internal/http-server/query"
	"etgcatalog/internal/http-server/respond"
)

//go:generate mockgen -destination=../../../mocks/mock_catalog.go -package=mocks etgcatalog/internal/http-server/handlers/products CatalogFetcher

type CatalogFetcher interface {
	FetchAll(ctx context.Context, p usecases.Params) (*usecases.Result, error)
}

const (
	maxSecondsLimit = 600
	// A single attempt is also cut at http.timeout_seconds by the outbound client,
	// so a larger per-page timeout only adds room for retries and backoff.
	timeoutLimit = 300.0

	BootstrapFailedMessage = "failed to fetch first page from ETG"
)

type Options struct {
	Log      *slog.Logger
	Catalog  CatalogFetcher
	Defaults usecases.Params
	// extra time on top of max_seconds+timeout before the request context is canceled
	Grace time.Duration
}

type Response struct {
	Total           int                `json:"total"`
	UniqueURLs      int                `json:"unique_urls"`
	ReportedCount   int                `json:"etg_reported_count"`
	PerPage         int                `json:"per_page"`
	ExpectedPages   int                `json:"expected_pages"`
	PagesFetched    int                `json:"pages_fetched"`
	DurationSeconds float64            `json:"duration_seconds"`
	Errors          []models.PageError `json:"errors"`
	Products        []models.Product   `json:"products"`
}

func NewResponse(res *usecases.Result) Response {
	out := Response{
		Total:           res.Total,
		UniqueURLs:      res.UniqueURLs,
		ReportedCount:   res.ReportedCount,
		PerPage:         res.PerPage,
		ExpectedPages:   res.ExpectedPages,
		PagesFetched:    res.PagesFetched,
		DurationSeconds: math.Round(res.Duration.Seconds()*100) / 100,
		Errors:          res.Errors,
		Products:        res.Products,
	}
	if len(out.Errors) > usecases.MaxReportedErrors {
		out.Errors = out.Errors[:usecases.MaxReportedErrors]
	}
	if out.Errors == nil {
		out.Errors = []models.PageError{}
	}
	if out.Products == nil {
		out.Products = []models.Product{}
	}
	return out
}

func NewGetHandler(opts Options) http.HandlerFunc {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.Defaults.MaxSeconds <= 0 {
		opts.Defaults.MaxSeconds = usecases.DefaultMaxSeconds
	}
	if opts.Defaults.Timeout <= 0 {
		opts.Defaults.Timeout = usecases.DefaultTimeout
	}
	if opts.Defaults.Passes <= 0 {
		opts.Defaults.Passes = usecases.DefaultPasses
	}
	if opts.Grace <= 0 {
		opts.Grace = 10 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			respond.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET only")
			return
		}
		if opts.Catalog == nil {
			log.Error("products handler misconfigured: catalog is nil")
			respond.WriteInternalError(w)
			return
		}

		p, err := parseParams(r, opts.Defaults)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		limit := time.Duration(p.MaxSeconds)*time.Second + p.Timeout + opts.Grace
		ctx, cancel := context.WithTimeout(r.Context(), limit)
		defer cancel()

		res, err := opts.Catalog.FetchAll(ctx, p)
		if err != nil {
			var be *usecases.BootstrapError
			if errors.As(err, &be) {
				log.Warn("bootstrap failed", "err", err, "rid", r.Header.Get("X-Request-Id"))
				respond.WriteError(w, http.StatusBadGateway, BootstrapFailedMessage, be.Err.Error())
				return
			}

			log.Error("FetchAll failed", "err", err)
			respond.WriteInternalError(w)
			return
		}

		respond.WriteJSON(w, http.StatusOK, NewResponse(res))
	}
}

func parseParams(r *http.Request, def usecases.Params) (usecases.Params, error) {
	p := def

	if v, present, err := query.Int(r, "max_seconds"); err != nil {
		return p, err
	} else if present {
		if v <= 0 || v > maxSecondsLimit {
			return p, fmt.Errorf("max_seconds must be in 1..%d", maxSecondsLimit)
		}
		p.MaxSeconds = v
	}

	if v, present, err := query.Float(r, "timeout"); err != nil {
		return p, err
	} else if present {
		if v <= 0 || v > timeoutLimit {
			return p, fmt.Errorf("timeout must be > 0 and <= %g", timeoutLimit)
		}
		p.Timeout = time.Duration(v * float64(time.Second))
	}

	if v, present, err := query.Int(r, "passes"); err != nil {
		return p, err
	} else if present {
		if v <= 0 {
			return p, fmt.Errorf("passes must be > 0")
		}
		p.Passes = v
	}

	return p, nil
}
