package client

import (
	"log/slog"
	"net/http"
	"time"

	"etgcatalog/internal/client/httpc"
	"etgcatalog/internal/client/transport"
	"etgcatalog/internal/metrics"
)

type Transport = transport.Transport

type Options struct {
	HTTPClient *http.Client
	Retries    int

	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MinInterval time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func Build(opts Options) (Transport, error) {
	return transport.Build(transport.Options{
		HTTPClient:  opts.HTTPClient,
		Retries:     opts.Retries,
		BaseDelay:   opts.BaseDelay,
		MaxDelay:    opts.MaxDelay,
		MinInterval: opts.MinInterval,
		Logger:      opts.Logger,
		Metrics:     opts.Metrics,
	})
}

// NewHTTPClientWithProxy routes every request through proxyURL; an empty proxyURL
// falls back to the environment proxy settings. timeout bounds each attempt,
// response headers included.
func NewHTTPClientWithProxy(timeout time.Duration, proxyURL string) (*http.Client, error) {
	proxy, err := httpc.ProxyFromURL(proxyURL)
	if err != nil {
		return nil, err
	}
	return httpc.New(httpc.Options{
		Timeout:               timeout,
		ResponseHeaderTimeout: timeout,
		Proxy:                 proxy,
	}), nil
}
