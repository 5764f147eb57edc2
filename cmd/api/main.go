package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/chamada/internal/api"
	"github.com/saturnino-fabrica-de-software/chamada/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/chamada/internal/audit"
	"github.com/saturnino-fabrica-de-software/chamada/internal/cache"
	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/database"
	"github.com/saturnino-fabrica-de-software/chamada/internal/face"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/repository"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
	"github.com/saturnino-fabrica-de-software/chamada/internal/webhook"
	"github.com/saturnino-fabrica-de-software/chamada/internal/ws"
)

const cacheJanitorInterval = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting Chamada API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("detector", cfg.Detector),
		slog.String("encoder", cfg.Encoder),
		slog.String("metric", cfg.MatchMetric),
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	providers, err := face.NewProviders(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create providers: %w", err)
	}

	metric, err := matcher.MetricByName(cfg.MatchMetric)
	if err != nil {
		return err
	}
	m, err := matcher.New(metric, cfg.MatchThreshold)
	if err != nil {
		return fmt.Errorf("failed to create matcher: %w", err)
	}

	identityRepo := repository.NewIdentityRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)

	galleryCache := gallery.NewCache(identityRepo, gallery.Config{
		TTL:         cfg.GalleryTTL,
		LoadTimeout: cfg.GalleryLoadTimeout,
		Dimension:   cfg.EmbeddingDim,
	}, logger.With("component", "gallery"))

	auditLogger := audit.NewSlogLogger(logger)
	hub := ws.NewHub()

	summaryCache := cache.NewPGCache(pool, "chamada")
	go cache.NewJanitor(summaryCache, logger.With("component", "cache_janitor"), cacheJanitorInterval).Run(ctx)

	enrollmentService := service.NewEnrollmentService(
		providers.Detector,
		providers.Encoder,
		identityRepo,
		galleryCache,
		logger.With("component", "enrollment"),
		cfg.EmbeddingDim,
	).WithAudit(auditLogger, providers.Name)

	recognitionService := service.NewRecognitionService(
		providers.Detector,
		providers.Encoder,
		galleryCache,
		m,
		logger.With("component", "recognition"),
	).WithAudit(auditLogger, providers.Name)

	attendanceService := service.NewAttendanceService(recognitionService, attendanceRepo, logger.With("component", "attendance")).
		WithSummaryCache(summaryCache, cfg.SummaryCacheTTL).
		WithBroadcaster(hub).
		WithAudit(auditLogger)

	if cfg.WebhookURL != "" {
		attendanceService.WithBroadcaster(webhook.NewDispatcher(pool, logger, cfg.WebhookMaxAttempts))
		sender := webhook.NewSender(cfg.WebhookURL, cfg.WebhookSecret, cfg.ProviderTimeout)
		go webhook.NewWorker(pool, sender, logger, cfg.WebhookInterval).Run(ctx)
	}

	// Cross-replica invalidation
	if cfg.RedisURL != "" {
		client, err := gallery.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		notifier := gallery.NewRedisNotifier(client, cfg.RedisChannel, logger)
		enrollmentService.WithNotifier(notifier)
		go func() {
			if err := notifier.Listen(ctx, galleryCache); err != nil {
				logger.Error("gallery invalidation listener failed", slog.Any("error", err))
			}
		}()
	}

	if cfg.GalleryWarmInterval > 0 {
		go gallery.NewWarmer(galleryCache, logger.With("component", "gallery_warmer"), cfg.GalleryWarmInterval).Run(ctx)
	} else if err := galleryCache.Refresh(ctx); err != nil {
		// the first recognition retries the load
		logger.Warn("initial gallery load failed", slog.Any("error", err))
	}

	checks := []handler.Check{{Name: "database", Ping: pool.Ping}}
	for _, p := range providers.Pingers {
		checks = append(checks, handler.Check{Name: "provider", Ping: p.Ping})
	}

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Enrollment:  enrollmentService,
		Recognition: recognitionService,
		Attendance:  attendanceService,
		Gallery:     galleryCache,
		Hub:         hub,
		Decoder:     imaging.NewDecoder(cfg.MaxImageSize),
		Checks:      checks,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- router.Shutdown() }()

	select {
	case err := <-shutdownDone:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}
