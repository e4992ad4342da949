package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"license-tracker/config"
	"license-tracker/database"
	"license-tracker/handlers"
	"license-tracker/logger"
	"license-tracker/metrics"
	"license-tracker/scheduler"
	"license-tracker/services"
	"license-tracker/utils"
)

func main() {
	// Load configuration from .env and the environment
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer zl.Sync()

	if !cfg.DotEnvLoaded {
		zl.Info("no .env file found, using environment variables only")
	}

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	// Initialize database connection
	db, err := database.InitDB(ctx, cfg.Database, zl)
	if err != nil {
		return err
	}
	defer db.Close()

	// Apply database migrations
	if err := database.ApplyMigrations(cfg.Database.URL, cfg.Database.MigrationsPath, zl); err != nil {
		return err
	}

	licenses := database.NewLicenseStore(db)
	emailLogs := database.NewEmailLogStore(db, cfg.MailLocation())
	limiter := utils.NewDailyLimiter(emailLogs, cfg.SMTP.DailyLimit, emailLogs.Location())

	var generator services.ContentGenerator = services.NewTemplateGenerator()
	if cfg.Notify.Strategy == config.StrategyGenerative {
		generator = services.NewGenerativeGenerator(cfg.GenAI)
	}

	// A nil interface, not a nil *MailService, keeps the scanner generate-only.
	var deliverer services.Deliverer
	if cfg.Notify.DeliveryMode == config.DeliverySend {
		deliverer = services.NewMailService(cfg.SMTP, emailLogs, limiter, zl)
	}

	zl.Info("expiration notifications configured",
		zap.String("strategy", cfg.Notify.Strategy),
		zap.String("delivery", cfg.Notify.DeliveryMode),
		zap.Int("window_months", cfg.Notify.WindowMonths),
		zap.String("schedule", cfg.Notify.Schedule),
		zap.String("timezone", cfg.Notify.Timezone),
		zap.Bool("recipient_override", cfg.Notify.Recipient != ""),
		zap.Bool("trigger_secret", cfg.Notify.CronSecret != ""),
	)

	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}

	var locker services.Locker
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		locker = services.NewRedisLocker(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		zl.Info("distributed scan lock enabled")
	}

	scanner := services.NewExpirationScanner(licenses, generator, deliverer, services.NewScannerConfig(cfg), zl)
	guard := services.NewScanGuard(scanner, locker, cfg.Notify.LockTTL, zl)

	sched, err := scheduler.New(cfg.Notify.Schedule, cfg.ScanLocation(), guard, zl)
	if err != nil {
		return err
	}
	sched.Start()

	// Set up router
	r := handlers.NewRouter(handlers.Deps{
		Licenses:     licenses,
		Suppliers:    database.NewSupplierStore(db),
		Rdas:         database.NewRdaStore(db),
		Requests:     database.NewRequestStore(db),
		EmailLogs:    emailLogs,
		Limiter:      limiter,
		Scans:        guard,
		Checks:       checks,
		CronSecret:   cfg.Notify.CronSecret,
		WindowMonths: cfg.Notify.WindowMonths,
		ScanLocation: cfg.ScanLocation(),
		StaticDir:    cfg.HTTP.StaticDir,
		Log:          zl,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Cancel any scan first so HTTP callers waiting on it return, and so it
	// is done with the database and Redis before they are closed.
	if err := sched.Stop(shutdownCtx); err != nil {
		zl.Warn("expiration scan did not stop in time", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http server shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
	return nil
}
