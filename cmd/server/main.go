package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dinahmaccodes/stellar-insights/internal/anchors"
	"github.com/dinahmaccodes/stellar-insights/internal/api"
	"github.com/dinahmaccodes/stellar-insights/internal/corridors"
	"github.com/dinahmaccodes/stellar-insights/internal/horizon"
	"github.com/dinahmaccodes/stellar-insights/internal/notification"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/aws"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/cache"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/config"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
	"github.com/dinahmaccodes/stellar-insights/internal/storage"
)

func main() {
	// Create root context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Local development overrides; missing .env is fine
	_ = godotenv.Load()

	// Load configuration
	log.Println("Loading configuration...")
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))

	// Setup observability (foundational - must be first)
	log.Println("Setting up observability...")
	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics, err := observability.NewMetrics(cfg.Observability.ServiceName, cfg.Observability.Metrics.Enabled)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	tracerProvider, err := observability.NewTracerProvider(ctx, observability.TracingConfig{
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Fatalf("Failed to create tracer: %v", err)
	}
	defer tracerProvider.Shutdown(ctx)

	tracer := observability.NewNoopTracer()
	if cfg.Observability.Tracing.Enabled {
		tracer = observability.NewTracer(cfg.Observability.ServiceName)
	}

	logger.Info("observability setup complete")

	// Setup infrastructure
	logger.Info("setting up infrastructure...")

	// Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.LogError(ctx, "failed to create Redis cache", err)
		log.Fatalf("Failed to create Redis cache: %v", err)
	}
	defer redisCache.Close()

	// Memory cache
	memCache := cache.NewMemoryCache(cfg.Cache.L1MaxSize)
	defer memCache.Close()

	// Layered cache
	layeredCache := cache.NewLayeredCacheWithConfig(cache.LayeredCacheConfig{
		L1:      memCache,
		L2:      redisCache,
		Logger:  logger.Logger,
		Metrics: metrics,
	})

	// Postgres metadata store
	store, err := storage.NewStore(ctx, storage.StoreConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		Logger:          logger,
	})
	if err != nil {
		logger.LogError(ctx, "failed to connect to Postgres", err)
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer store.Close()

	// Horizon client
	logger.Info("connecting to Horizon...")
	horizonClient, err := horizon.NewClient(horizon.ClientConfig{
		Endpoints:      cfg.Horizon.Endpoints,
		Timeout:        cfg.Horizon.Timeout,
		PageLimit:      cfg.Horizon.PageLimit,
		RateLimitRPM:   cfg.Horizon.RateLimit.RequestsPerMinute,
		RateLimitBurst: cfg.Horizon.RateLimit.Burst,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err != nil {
		logger.LogError(ctx, "failed to create Horizon client", err)
		log.Fatalf("Failed to create Horizon client: %v", err)
	}

	// Alert publisher: SNS when alerting is on, no-op otherwise
	var publisher anchors.AlertPublisher = notification.NewNoOpPublisher(logger)
	if cfg.Alerts.Enabled {
		awsCfg, err := aws.LoadAWSConfig(ctx, aws.Config{Region: cfg.AWS.Region})
		if err != nil {
			logger.LogError(ctx, "failed to load AWS config", err)
			log.Fatalf("Failed to load AWS config: %v", err)
		}

		snsClient := aws.NewSNSClient(aws.SNSClientConfig{
			AWSConfig: awsCfg,
			Endpoint:  cfg.AWS.Endpoint,
			Logger:    logger,
			Metrics:   metrics,
		})

		publisher, err = notification.NewPublisher(notification.PublisherConfig{
			SNSClient: snsClient,
			TopicARN:  cfg.AWS.SNSTopicARN,
			Logger:    logger,
			Tracer:    tracer,
		})
		if err != nil {
			logger.LogError(ctx, "failed to create publisher", err)
			log.Fatalf("Failed to create publisher: %v", err)
		}
	}

	// Create metric services
	logger.Info("creating metric services...")
	anchorService, err := anchors.NewService(anchors.ServiceConfig{
		Store:          store,
		Payments:       horizonClient,
		Cache:          layeredCache,
		Publisher:      publisher,
		AlertsEnabled:  cfg.Alerts.Enabled,
		Logger:         logger,
		Metrics:        metrics,
		Tracer:         tracer,
		CacheTTL:       cfg.Cache.TTLFor(cache.ResourceAnchor),
		PageLimit:      cfg.Horizon.PageLimit,
		DefaultLimit:   cfg.Server.DefaultLimit,
		MaxConcurrency: int64(cfg.Horizon.MaxConcurrency),
	})
	if err != nil {
		logger.LogError(ctx, "failed to create anchor service", err)
		log.Fatalf("Failed to create anchor service: %v", err)
	}

	corridorService, err := corridors.NewService(corridors.ServiceConfig{
		Ledger:       horizonClient,
		Cache:        layeredCache,
		Logger:       logger,
		Metrics:      metrics,
		Tracer:       tracer,
		CacheTTL:     cfg.Cache.TTLFor(cache.ResourceCorridor),
		PageLimit:    cfg.Horizon.PageLimit,
		DefaultLimit: cfg.Server.DefaultLimit,
	})
	if err != nil {
		logger.LogError(ctx, "failed to create corridor service", err)
		log.Fatalf("Failed to create corridor service: %v", err)
	}

	// Warm the cache before accepting traffic
	if cfg.Cache.WarmOnStart {
		logger.Info("warming cache...")
		warmer := cache.NewWarmer(logger, cache.DefaultWarmupConfig())
		warmer.RegisterProvider(anchorService)
		warmer.RegisterProvider(corridorService)
		warmer.Warmup(ctx)
	}

	// API server
	server, err := api.NewServer(api.ServerConfig{
		Anchors:      anchorService,
		Corridors:    corridorService,
		Logger:       logger,
		Metrics:      metrics,
		DefaultLimit: cfg.Server.DefaultLimit,
		MaxLimit:     cfg.Server.MaxLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	if err != nil {
		logger.LogError(ctx, "failed to create API server", err)
		log.Fatalf("Failed to create API server: %v", err)
	}

	// Operational endpoints on their own port
	opsMux := api.NewOpsMux(metrics, logger, map[string]api.HealthChecker{
		"postgres": store.Ping,
		"redis":    redisCache.Ping,
	}, horizonClient.Health)
	opsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Observability.Metrics.Port),
		Handler: opsMux,
	}
	go func() {
		logger.Info("ops server listening", "address", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError(ctx, "ops server error", err)
		}
	}()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Run application
	logger.Info("starting metrics API...")
	go func() {
		if err := server.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			logger.LogError(ctx, "API server error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	select {
	case <-sigCh:
		logger.Info("shutdown signal received, gracefully stopping...")
	case <-ctx.Done():
		logger.Info("context cancelled, gracefully stopping...")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogError(shutdownCtx, "API server shutdown error", err)
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.LogError(shutdownCtx, "ops server shutdown error", err)
	}

	logger.Info("application stopped")
}
