package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"etgcatalog/internal/apis/etg"
	"etgcatalog/internal/apis/etg/mapper"
	"etgcatalog/internal/apis/etg/usecases"
	"etgcatalog/internal/bootstrap"
	"etgcatalog/internal/config"
	httpserver "etgcatalog/internal/http-server"
	"etgcatalog/internal/lib/slugify"
	"etgcatalog/internal/logger"
	"etgcatalog/internal/metrics"
)

func main() {
	var (
		configPath = flag.String("config", "./config/config.yaml", "path to config.yaml")
		host       = flag.String("host", "", "override host")
		port       = flag.Int("port", 0, "override port")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Env:       cfg.Env,
	})
	slog.SetDefault(log)

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	m := metrics.New()

	transport, err := bootstrap.BuildTransport(cfg, log, m)
	if err != nil {
		log.Error("build transport failed", "err", err)
		os.Exit(1)
	}

	etgSvc := etg.New(transport, etg.Options{
		BaseURL:      cfg.ETG.BaseURL,
		ProductsPath: cfg.ETG.ProductsPath,
		FeatureType:  cfg.ETG.FeatureType,
		Logger:       log,
	})

	defaults := usecases.Params{
		MaxSeconds: cfg.Catalog.MaxSeconds,
		Timeout:    time.Duration(cfg.Catalog.TimeoutSeconds * float64(time.Second)),
		Passes:     cfg.Catalog.Passes,
	}

	catalog := usecases.NewCatalogService(
		etgSvc,
		mapper.New(slugify.NewMemo(cfg.Catalog.SlugCacheSize)),
		log,
		usecases.WithMetrics(m),
		usecases.WithDefaults(defaults),
		usecases.WithMaxPasses(cfg.Catalog.MaxPasses),
	)

	api := httpserver.New(log, m)

	api.RegisterRoutes(httpserver.Deps{
		Catalog:  catalog,
		Defaults: defaults,
	})

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("api started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", "signal", sig.String())

		// an aggregation run may take max_seconds plus one page timeout
		grace := time.Duration(cfg.Catalog.MaxSeconds)*time.Second + defaults.Timeout
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			_ = srv.Close()
		}
		log.Info("server stopped gracefully")

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("server closed")
			return
		}
		log.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}
