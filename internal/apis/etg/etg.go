package etg

import (
	"context"
	"log/slog"
	"net/http"

	"etgcatalog/internal/apis/etg/endpoints"
	"etgcatalog/internal/apis/etg/responses"
	"etgcatalog/internal/client"
)

const (
	DefaultBaseURL      = "https://engtechgroup.com"
	DefaultProductsPath = "/wp-content/themes/ETG/machines/filter-machines.php"
	DefaultFeatureType  = "all"

	UserAgent = "etgcatalog/1.0 (+catalog aggregator)"
)

type Product = responses.Product
type ProductsPage = responses.ProductsPage

type ETGService interface {
	ListProducts(ctx context.Context, page int) (ProductsPage, error)
}

type Options struct {
	BaseURL      string
	ProductsPath string
	FeatureType  string
	Logger       *slog.Logger
}

type service struct {
	api         *endpoints.Client
	featureType string
	log         *slog.Logger
}

func New(transport client.Transport, opts Options) ETGService {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ProductsPath == "" {
		opts.ProductsPath = DefaultProductsPath
	}
	if opts.FeatureType == "" {
		opts.FeatureType = DefaultFeatureType
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &service{featureType: opts.FeatureType, log: opts.Logger}
	s.api = endpoints.New(transport, opts.BaseURL, opts.ProductsPath, s.applyDefaultHeaders)
	return s
}

func (s *service) applyDefaultHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
}

func (s *service) ListProducts(ctx context.Context, page int) (ProductsPage, error) {
	out, err := s.api.ListProducts(ctx, page, s.featureType)
	if err != nil {
		return ProductsPage{}, err
	}
	s.log.Debug("etg page", "page", page, "products", len(out.Products), "count", out.Count, "per_page", out.PerPage)
	return out, nil
}
