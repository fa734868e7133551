package bootstrap

import (
	"log/slog"
	"time"

	"etgcatalog/internal/client"
	"etgcatalog/internal/client/transport"
	"etgcatalog/internal/config"
	"etgcatalog/internal/metrics"
)

func BuildTransport(profile *config.Config, log *slog.Logger, m *metrics.Metrics) (transport.Transport, error) {
	log.Info("profile",
		"env", profile.Env,
		"base_url", profile.ETG.BaseURL,
		"retries", profile.HTTP.Retries,
		"min_interval_ms", profile.HTTP.MinIntervalMS,
	)

	httpClient, err := client.NewHTTPClientWithProxy(
		time.Duration(profile.HTTP.TimeoutSeconds)*time.Second,
		profile.HTTP.ProxyURL,
	)
	if err != nil {
		return nil, err
	}

	if profile.HTTP.ProxyURL == "" {
		log.Debug("proxy from environment")
	} else {
		log.Info("proxy ON", "proxy_url", profile.HTTP.ProxyURL)
	}

	return client.Build(client.Options{
		HTTPClient:  httpClient,
		Retries:     profile.HTTP.Retries,
		BaseDelay:   time.Duration(profile.HTTP.BackoffMS) * time.Millisecond,
		MaxDelay:    time.Duration(profile.HTTP.BackoffMaxMS) * time.Millisecond,
		MinInterval: time.Duration(profile.HTTP.MinIntervalMS) * time.Millisecond,
		Logger:      log,
		Metrics:     m,
	})
}
