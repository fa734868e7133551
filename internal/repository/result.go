package repository

import (
	"time"

	"etgcatalog/internal/apis/etg/usecases"
	"etgcatalog/internal/domain/models"
)

type Summary struct {
	Total           int     `json:"total"`
	UniqueURLs      int     `json:"unique_urls"`
	ReportedCount   int     `json:"etg_reported_count"`
	PerPage         int     `json:"per_page"`
	ExpectedPages   int     `json:"expected_pages"`
	PagesFetched    int     `json:"pages_fetched"`
	PassesRun       int     `json:"passes_run"`
	DurationSeconds float64 `json:"duration_seconds"`
	ErrorsTotal     int     `json:"errors_total"`
}

// CatalogSnapshot is the CLI export of one aggregation run. It is never read back.
type CatalogSnapshot struct {
	FetchedAt string             `json:"fetched_at"`
	Source    string             `json:"source"`
	Summary   Summary            `json:"summary"`
	Errors    []models.PageError `json:"errors"`
	Products  []models.Product   `json:"products"`
}

func NewCatalogSnapshot(res *usecases.Result, fetchedAt time.Time) CatalogSnapshot {
	snap := CatalogSnapshot{
		FetchedAt: fetchedAt.UTC().Format(time.RFC3339),
		Source:    models.Source,
		Summary: Summary{
			Total:           res.Total,
			UniqueURLs:      res.UniqueURLs,
			ReportedCount:   res.ReportedCount,
			PerPage:         res.PerPage,
			ExpectedPages:   res.ExpectedPages,
			PagesFetched:    res.PagesFetched,
			PassesRun:       res.PassesRun,
			DurationSeconds: float64(res.Duration.Milliseconds()) / 1000,
			ErrorsTotal:     res.ErrorsTotal,
		},
		Errors:   res.Errors,
		Products: res.Products,
	}
	if snap.Errors == nil {
		snap.Errors = []models.PageError{}
	}
	if snap.Products == nil {
		snap.Products = []models.Product{}
	}
	return snap
}
