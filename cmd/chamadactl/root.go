package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
	"github.com/saturnino-fabrica-de-software/chamada/internal/database"
	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/face"
	"github.com/saturnino-fabrica-de-software/chamada/internal/gallery"
	"github.com/saturnino-fabrica-de-software/chamada/internal/imaging"
	"github.com/saturnino-fabrica-de-software/chamada/internal/matcher"
	"github.com/saturnino-fabrica-de-software/chamada/internal/repository"
	"github.com/saturnino-fabrica-de-software/chamada/internal/service"
)

// Version is the application version.
const Version = "0.1.0"

// app holds everything the subcommands share. It is built once per run.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	decoder     *imaging.Decoder
	gallery     *gallery.Cache
	enrollment  *service.EnrollmentService
	recognition *service.RecognitionService
	attendance  *service.AttendanceService
	closers     []func()
}

var (
	cli      *app
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "chamadactl",
	Short:         "Operate the Chamada attendance database",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cli, err = newApp(cmd.Context())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cli != nil {
			cli.close()
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// CLI output goes to stdout; logs are only for diagnostics.
	logger := config.NewLogger(cfg.Environment, logLevel)

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	providers, err := face.NewProviders(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	metric, err := matcher.MetricByName(cfg.MatchMetric)
	if err != nil {
		pool.Close()
		return nil, err
	}
	m, err := matcher.New(metric, cfg.MatchThreshold)
	if err != nil {
		pool.Close()
		return nil, err
	}

	identities := repository.NewIdentityRepository(pool)
	cache := gallery.NewCache(identities, gallery.Config{
		TTL:         cfg.GalleryTTL,
		LoadTimeout: cfg.GalleryLoadTimeout,
		Dimension:   cfg.EmbeddingDim,
	}, logger.With("component", "gallery"))

	recognition := service.NewRecognitionService(providers.Detector, providers.Encoder, cache, m, logger)

	a := &app{
		cfg:         cfg,
		logger:      logger,
		decoder:     imaging.NewDecoder(cfg.MaxImageSize),
		gallery:     cache,
		enrollment:  service.NewEnrollmentService(providers.Detector, providers.Encoder, identities, cache, logger, cfg.EmbeddingDim),
		recognition: recognition,
		attendance:  service.NewAttendanceService(recognition, repository.NewAttendanceRepository(pool), logger),
		closers:     []func(){pool.Close},
	}

	if cfg.RedisURL != "" {
		client, err := gallery.NewRedisClient(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		// running API replicas drop their gallery after CLI enrollments
		a.enrollment.WithNotifier(gallery.NewRedisNotifier(client, cfg.RedisChannel, logger))
	}

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) readImage(path string) (*domain.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	img, err := a.decoder.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
