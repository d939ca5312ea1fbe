// Package main is the entry point for the keytier API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/jwkoo/keytier/internal/algoconfig"
	"github.com/jwkoo/keytier/internal/api"
	"github.com/jwkoo/keytier/internal/config"
	"github.com/jwkoo/keytier/internal/db"
	"github.com/jwkoo/keytier/internal/health"
	"github.com/jwkoo/keytier/internal/jobs"
	"github.com/jwkoo/keytier/internal/keyword"
	"github.com/jwkoo/keytier/internal/middleware"
	"github.com/jwkoo/keytier/internal/pipeline"
	"github.com/jwkoo/keytier/internal/rank"
	"github.com/jwkoo/keytier/internal/stats"
	"github.com/jwkoo/keytier/internal/tracing"
	"github.com/jwkoo/keytier/internal/volume"
)

const serviceName = "keytier-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Keytier API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		logger := middleware.NewLogger(config.DefaultEnv)
		for _, err := range errs {
			logger.Error("configuration error", "error", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis is an optional side cache; the service runs without it.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	tracer, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracer", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()

	volumeMetrics := volume.NewPromMetrics()
	if err := volumeMetrics.Register(registry); err != nil {
		logger.Error("failed to register volume metrics", "error", err)
		os.Exit(1)
	}
	pipelineMetrics := pipeline.NewMetrics()
	if err := pipelineMetrics.Register(registry); err != nil {
		logger.Error("failed to register pipeline metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	jobMetrics := jobs.NewMetrics()
	if err := jobMetrics.Register(registry); err != nil {
		logger.Error("failed to register job metrics", "error", err)
		os.Exit(1)
	}

	source, err := volume.NewHTTPSource(volume.HTTPSourceConfig{
		BaseURL:    cfg.VolumeAPIBaseURL,
		APIKey:     cfg.VolumeAPIKey,
		CustomerID: cfg.VolumeAPICustomerID,
	}, logger)
	if err != nil {
		logger.Error("failed to create volume source", "error", err)
		os.Exit(1)
	}

	var sideCache *volume.RedisCache
	if redisClient != nil {
		sideCache = volume.NewRedisCache(redisClient, logger)
	}

	volumeStore := volume.NewPostgresStore(pool)
	volumeResolver := volume.NewResolver(
		volumeStore,
		source,
		sideCache,
		stats.NewResolutionStats(),
		volumeMetrics,
		time.Duration(cfg.VolumeCacheTTLDays)*24*time.Hour,
		logger,
	)

	rankLookup, err := rank.NewHTTPLookup(cfg.RankAPIBaseURL, 0)
	if err != nil {
		logger.Error("failed to create rank lookup client", "error", err)
		os.Exit(1)
	}
	verifier := rank.NewVerifier(rankLookup, 0, logger)

	configStore := algoconfig.NewPostgresStore(pool)
	configResolver := algoconfig.NewResolver(
		configStore,
		time.Duration(cfg.AlgoConfigTTLSeconds)*time.Second,
		logger,
	)

	tiering := pipeline.New(
		keyword.NewExtractor(keyword.DefaultMaxTokens),
		volumeResolver,
		verifier,
		configResolver,
		pipeline.NewPostgresSink(pool),
		pipelineMetrics,
		logger,
	)

	retention := time.Duration(cfg.VolumeCacheTTLDays) * 24 * time.Hour
	sweeper := jobs.NewSweeper(volumeStore, retention, jobs.DefaultSweepInterval, jobMetrics, logger)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweeper.Run(sweepCtx)

	healthCfg := api.HealthHandlersConfig{DBChecker: health.NewDBChecker(pool)}
	if redisClient != nil {
		healthCfg.RedisChecker = health.NewRedisChecker(redisClient)
	}

	handler := api.NewRouter(api.RouterConfig{
		Tiering:        api.NewTieringHandlers(tiering, logger),
		Config:         api.NewConfigHandlers(configResolver, configStore, logger),
		Health:         api.NewHealthHandlers(healthCfg),
		HTTPMetrics:    httpMetrics,
		Registry:       registry,
		TracingEnabled: tracer.IsEnabled(),
		ServiceName:    serviceName,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
