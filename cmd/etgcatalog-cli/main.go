package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"etgcatalog/internal/apis/etg"
	"etgcatalog/internal/apis/etg/mapper"
	"etgcatalog/internal/apis/etg/usecases"
	"etgcatalog/internal/bootstrap"
	"etgcatalog/internal/config"
	"etgcatalog/internal/lib/slugify"
	"etgcatalog/internal/logger"
	"etgcatalog/internal/repository"
	jsonfile "etgcatalog/internal/repository/json"
)

func main() {
	var (
		configPath = flag.String("config", "./config/config.yaml", "path to config.yaml")
		outputFile = flag.String("out", "", "override output file (optional)")
		passes     = flag.Int("passes", 0, "override sweep count (optional)")
		maxSeconds = flag.Int("max-seconds", 0, "override wall-clock budget in seconds (optional)")
		timeout    = flag.Float64("timeout", 0, "override per-page timeout in seconds (optional)")
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

	// overrides
	if *outputFile != "" {
		cfg.CLI.OutputFile = *outputFile
	}
	if *passes > 0 {
		cfg.Catalog.Passes = *passes
	}
	if *maxSeconds > 0 {
		cfg.Catalog.MaxSeconds = *maxSeconds
	}
	if *timeout > 0 {
		cfg.Catalog.TimeoutSeconds = *timeout
	}

	transport, err := bootstrap.BuildTransport(cfg, log, nil)
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

	catalog := usecases.NewCatalogService(
		etgSvc,
		mapper.New(slugify.NewMemo(cfg.Catalog.SlugCacheSize)),
		log,
		usecases.WithMaxPasses(cfg.Catalog.MaxPasses),
	)

	repo := jsonfile.New(cfg.CLI.OutputFile, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := catalog.FetchAll(ctx, usecases.Params{
		MaxSeconds: cfg.Catalog.MaxSeconds,
		Timeout:    time.Duration(cfg.Catalog.TimeoutSeconds * float64(time.Second)),
		Passes:     cfg.Catalog.Passes,
	})
	if err != nil {
		var be *usecases.BootstrapError
		if errors.As(err, &be) {
			log.Error("failed to fetch first page from ETG", "err", be.Err)
		} else {
			log.Error("fetch catalog failed", "err", err)
		}
		os.Exit(1)
	}

	if err := repo.Save(context.Background(), repository.NewCatalogSnapshot(res, time.Now())); err != nil {
		log.Error("save json failed", "err", err)
		os.Exit(1)
	}

	log.Info("done",
		"env", cfg.Env,
		"total", res.Total,
		"etg_reported_count", res.ReportedCount,
		"pages_fetched", res.PagesFetched,
		"passes_run", res.PassesRun,
		"errors", res.ErrorsTotal,
		"output", cfg.CLI.OutputFile,
	)
}
