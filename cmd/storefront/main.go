package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/groceryscout/storefront-gateway/api/routes"
	"github.com/groceryscout/storefront-gateway/internal/registry"
	"github.com/groceryscout/storefront-gateway/pkg/config"
	"github.com/groceryscout/storefront-gateway/pkg/env"
	"github.com/groceryscout/storefront-gateway/pkg/logger"
	"github.com/groceryscout/storefront-gateway/pkg/metrics"
	"github.com/groceryscout/storefront-gateway/pkg/redis"
	"github.com/groceryscout/storefront-gateway/pkg/upstream"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	upstreamMetrics := metrics.NewUpstreamMetrics(promRegistry)

	backendProbe, err := upstream.NewClient(cfg.Upstream, logg, upstreamMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build upstream probe", err)
		os.Exit(1)
	}

	reg, err := registry.New(cfg, logg, upstreamMetrics, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create session registry", err)
		os.Exit(1)
	}
	defer func() {
		if err := reg.Close(); err != nil {
			logg.Error(context.Background(), "error closing session registry", err)
		}
	}()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go reg.RunSweeper(sweepCtx)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"upstream": cfg.Upstream.BaseURL,
	})
	logg.Info(ctx, "starting storefront gateway")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, backendProbe, reg, promRegistry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "storefront gateway stopped unexpectedly", err)
		os.Exit(1)
	}
}
