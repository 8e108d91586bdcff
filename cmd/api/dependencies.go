package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/paycycle-budget/internal/domain/categorization"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/category"
	categoryhandler "github.com/FACorreiaa/paycycle-budget/internal/domain/category/handler"
	importhandler "github.com/FACorreiaa/paycycle-budget/internal/domain/import/handler"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/paycycle-budget/internal/domain/import/service"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/period"
	periodhandler "github.com/FACorreiaa/paycycle-budget/internal/domain/period/handler"
	"github.com/FACorreiaa/paycycle-budget/internal/domain/transaction"
	transactionhandler "github.com/FACorreiaa/paycycle-budget/internal/domain/transaction/handler"
	"github.com/FACorreiaa/paycycle-budget/pkg/config"
	"github.com/FACorreiaa/paycycle-budget/pkg/cron"
	"github.com/FACorreiaa/paycycle-budget/pkg/db"
	"github.com/FACorreiaa/paycycle-budget/pkg/metrics"
	"github.com/FACorreiaa/paycycle-budget/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Repositories
	CategoryRepo       *category.Repository
	CategorizationRepo *categorization.Repository
	TransactionRepo    *transaction.Repository
	PeriodRepo         *period.Repository

	// Services
	Calculator            *period.Calculator
	CategoryService       *category.Service
	CategorizationService *categorization.Service
	TransactionService    *transaction.Service
	PeriodService         *period.Service
	ImportService         *importservice.ImportService
	Archive               storage.Archive
	Scheduler             *cron.Scheduler

	// Handlers
	CategoryHandler    *categoryhandler.CategoryHandler
	TransactionHandler *transactionhandler.TransactionHandler
	ImportHandler      *importhandler.ImportHandler
	PeriodHandler      *periodhandler.PeriodHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics()

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.New(d.Registry)
	}
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase(ctx context.Context) error {
	database, err := db.New(ctx, db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		d.DB.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.CategoryRepo = category.NewRepository(d.DB.Pool)
	d.CategorizationRepo = categorization.NewRepository(d.DB.Pool)
	d.TransactionRepo = transaction.NewRepository(d.DB.Pool)
	d.PeriodRepo = period.NewRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	calc, err := period.NewCalculator(d.Config.Period.StartDay,
		period.WithLocale(period.LocaleFor(d.Config.Period.Locale)),
		period.WithLocation(d.Config.Period.Location),
	)
	if err != nil {
		return err
	}
	d.Calculator = calc

	d.CategorizationService = categorization.NewService(d.CategorizationRepo, d.CategoryRepo, d.Logger).
		WithMetrics(d.Metrics)
	if len(d.Config.Import.NoiseTokens) > 0 {
		d.CategorizationService.WithNoiseTokens(d.Config.Import.NoiseTokens)
	}
	if err := d.CategorizationService.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to load categorization rules: %w", err)
	}

	d.CategoryService = category.NewService(d.CategoryRepo, d.CategorizationService, d.Logger)
	d.TransactionService = transaction.NewService(d.TransactionRepo, d.CategorizationService, d.CategoryService, d.Logger)
	d.PeriodService = period.NewService(calc, d.TransactionRepo, d.CategoryService, d.Logger).
		WithCache(d.PeriodRepo)

	archive, err := storage.New(d.Config.Import.ArchiveDir)
	if err != nil {
		return fmt.Errorf("failed to init statement archive: %w", err)
	}
	d.Archive = archive

	p := parser.New(parser.Config{AccountName: d.Config.Import.AccountName})
	d.ImportService = importservice.NewImportService(d.TransactionRepo, p, d.Logger).
		WithCategorizer(d.CategorizationService).
		WithMetrics(d.Metrics)
	if archive != nil {
		d.ImportService.WithArchive(archive)
	}

	if d.Config.Cron.Enabled {
		d.Scheduler = cron.NewScheduler(d.PeriodService, d.CategorizationService,
			d.Config.Cron.PeriodRefresh, d.Config.Period.Location, d.Logger)
	}

	d.Logger.Info("services initialized",
		slog.Int("rules", d.CategorizationService.RuleCount()),
		slog.Bool("archive", archive != nil),
	)
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.CategoryHandler = categoryhandler.NewCategoryHandler(d.CategoryService, d.CategorizationService, d.Logger)
	d.TransactionHandler = transactionhandler.NewTransactionHandler(d.TransactionService, d.Calculator, d.CategorizationService, d.Logger)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Config.Import.MaxFileSize, d.Logger)
	d.PeriodHandler = periodhandler.NewPeriodHandler(d.PeriodService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
