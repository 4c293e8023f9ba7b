package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dukerupert/liftcheck"
	"github.com/dukerupert/liftcheck/catalog"
	"github.com/dukerupert/liftcheck/email"
	"github.com/dukerupert/liftcheck/engine"
	"github.com/dukerupert/liftcheck/postgres"
	"github.com/dukerupert/liftcheck/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Services holds all application services.
type Services struct {
	InspectionService liftcheck.InspectionService
	Templates         liftcheck.TemplateCatalog
	FileStorage       liftcheck.FileStorage
	Notifier          liftcheck.Notifier
	Engine            *engine.Engine
}

// initServices initializes all application services.
func initServices(ctx context.Context, pool *pgxpool.Pool, cfg *Config, logger *slog.Logger, reg prometheus.Registerer) (*Services, error) {
	// Initialize database wrapper with all domain services
	db := postgres.NewDB(pool)
	logger.Info("database services initialized")

	templates, err := initTemplates(ctx, db, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("template catalog initialized", slog.String("provider", cfg.TemplateProvider))

	// Initialize file storage
	fileStorage, err := initFileStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("file storage initialized", slog.String("provider", cfg.StorageProvider))

	// Initialize email notifications
	notifier := initNotifier(cfg, logger)
	logger.Info("email service initialized", slog.String("provider", cfg.EmailProvider))

	var metrics *engine.Metrics
	if reg != nil {
		metrics = engine.NewMetrics(reg)
	}

	eng := engine.New(engine.Config{
		Inspections: db.InspectionService,
		Templates:   templates,
		Storage:     fileStorage,
		Notifier:    notifier,
		Metrics:     metrics,
		Logger:      logger,
	})

	return &Services{
		InspectionService: db.InspectionService,
		Templates:         templates,
		FileStorage:       fileStorage,
		Notifier:          notifier,
		Engine:            eng,
	}, nil
}

// initTemplates builds the template catalog. The file catalog is always
// loaded; with the postgres provider its templates seed the database and
// lookups go through a cache in front of PostgreSQL.
func initTemplates(ctx context.Context, db *postgres.DB, cfg *Config, logger *slog.Logger) (liftcheck.TemplateCatalog, error) {
	files, err := loadFileCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	if cfg.TemplateProvider != "postgres" {
		return files, nil
	}

	seeded, err := db.TemplateService.SeedTemplates(ctx, files.All())
	if err != nil {
		return nil, fmt.Errorf("seeding templates: %w", err)
	}
	logger.Info("templates seeded",
		slog.Int("inserted", seeded),
		slog.Duration("cache_ttl", cfg.TemplateCacheTTL))

	return catalog.NewCache(db.TemplateService, cacheTTL(cfg.TemplateCacheTTL)), nil
}

func loadFileCatalog(cfg *Config) (*catalog.FileCatalog, error) {
	if cfg.TemplateDir == "" {
		return catalog.Default()
	}
	return catalog.Load(os.DirFS(cfg.TemplateDir))
}

func cacheTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	return ttl
}

// initFileStorage creates the appropriate file storage implementation.
func initFileStorage(ctx context.Context, cfg *Config, logger *slog.Logger) (liftcheck.FileStorage, error) {
	logger.Debug("storage service configuration",
		slog.String("provider", cfg.StorageProvider),
		slog.String("local_path", cfg.StorageLocalPath),
		slog.String("s3_bucket", cfg.StorageS3Bucket),
		slog.String("s3_region", cfg.StorageS3Region))

	storageCfg := liftcheck.StorageConfig{
		Provider:  cfg.StorageProvider,
		LocalPath: cfg.StorageLocalPath,
		LocalURL:  cfg.StorageLocalURL,
		S3Bucket:  cfg.StorageS3Bucket,
		S3Region:  cfg.StorageS3Region,
		S3BaseURL: cfg.StorageS3BaseURL,
	}

	return storage.New(ctx, logger, storageCfg)
}

// initNotifier creates the appropriate completion notifier.
func initNotifier(cfg *Config, logger *slog.Logger) liftcheck.Notifier {
	logger.Debug("email service configuration",
		slog.String("provider", cfg.EmailProvider),
		slog.String("from_address", cfg.EmailFromAddress),
		slog.Int("admins", len(cfg.AdminEmails)))

	emailCfg := liftcheck.EmailConfig{
		Provider:            cfg.EmailProvider,
		FromAddress:         cfg.EmailFromAddress,
		FromName:            cfg.EmailFromName,
		AdminAddresses:      cfg.AdminEmails,
		ReviewBaseURL:       cfg.EmailReviewBaseURL,
		PostmarkServerToken: cfg.EmailPostmarkToken,
	}

	return email.New(logger, emailCfg)
}
