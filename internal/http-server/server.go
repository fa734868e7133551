package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"etgcatalog/internal/apis/etg/usecases"
	"etgcatalog/internal/http-server/handlers/health"
	"etgcatalog/internal/http-server/handlers/products"
	"etgcatalog/internal/http-server/middleware"
	"etgcatalog/internal/metrics"
)

const (
	ProductsRoute = "/etg/products"
	HealthRoute   = "/healthz"
	MetricsRoute  = "/metrics"
)

type Server struct {
	log     *slog.Logger
	mux     *http.ServeMux
	metrics *metrics.Metrics
}

func New(log *slog.Logger, m *metrics.Metrics) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{log: log, mux: http.NewServeMux(), metrics: m}
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = middleware.WithRequestID(h)
	h = middleware.RecoverPanic(s.log, h)
	h = middleware.Metrics(s.metrics, s.route, h)
	h = middleware.AccessLog(s.log, h)
	return h
}

func (s *Server) route(r *http.Request) string {
	_, pattern := s.mux.Handler(r)
	return pattern
}

type Deps struct {
	Catalog  products.CatalogFetcher
	Defaults usecases.Params
	Grace    time.Duration
}

func (s *Server) RegisterRoutes(dep Deps) {
	s.mux.HandleFunc(ProductsRoute, products.NewGetHandler(products.Options{
		Log:      s.log,
		Catalog:  dep.Catalog,
		Defaults: dep.Defaults,
		Grace:    dep.Grace,
	}))

	s.mux.HandleFunc(HealthRoute, health.NewGetHandler())

	if s.metrics != nil {
		s.mux.Handle(MetricsRoute, promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
}
