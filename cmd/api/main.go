package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/alemendez13/sistema-ATU-sub000/internal/api/router"
	"github.com/alemendez13/sistema-ATU-sub000/internal/availability"
	"github.com/alemendez13/sistema-ATU-sub000/internal/booking"
	"github.com/alemendez13/sistema-ATU-sub000/internal/calendar"
	"github.com/alemendez13/sistema-ATU-sub000/internal/catalog"
	appconfig "github.com/alemendez13/sistema-ATU-sub000/internal/config"
	"github.com/alemendez13/sistema-ATU-sub000/internal/folio"
	"github.com/alemendez13/sistema-ATU-sub000/internal/http/handlers"
	"github.com/alemendez13/sistema-ATU-sub000/internal/inventory"
	"github.com/alemendez13/sistema-ATU-sub000/internal/ledger"
	"github.com/alemendez13/sistema-ATU-sub000/internal/lockout"
	"github.com/alemendez13/sistema-ATU-sub000/internal/messagelog"
	"github.com/alemendez13/sistema-ATU-sub000/internal/observability/metrics"
	"github.com/alemendez13/sistema-ATU-sub000/internal/slots"
	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking engine API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Error("invalid clinic timezone", "tz", cfg.ClinicTimezone, "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	if cfg.GoogleCredentialsFile == "" {
		logger.Error("GOOGLE_CREDENTIALS_FILE is required")
		os.Exit(1)
	}
	var cal calendar.Service
	gcal, err := calendar.NewGoogleClient(ctx, cfg.GoogleCredentialsFile, cfg.ClinicTimezone, logger)
	if err != nil {
		logger.Error("failed to create calendar client", "error", err)
		os.Exit(1)
	}
	cal = gcal

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	slotRepo := slots.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)
	messageLog := messagelog.NewStore(pool)
	depleter := inventory.NewDepleter(pool, logger)
	folioGen := folio.NewGenerator(pool, logger)
	intents := booking.NewIntentStore(pool)

	resolver := availability.NewResolver(catalogRepo, slotRepo, messageLog, cal, cfg.DefaultCalendarID, loc, logger)
	guard := booking.NewGuard(slotRepo, cal, cfg.DefaultCalendarID, loc, logger)
	bookingService := booking.NewService(booking.Config{
		Slots:       slotRepo,
		Ledger:      ledgerRepo,
		Stock:       depleter,
		Folio:       folioGen,
		Catalog:     catalogRepo,
		Calendar:    cal,
		Intents:     intents,
		Guard:       guard,
		Metrics:     bookingMetrics,
		Logger:      logger,
		Location:    loc,
		DefaultCal:  cfg.DefaultCalendarID,
		FolioPrefix: cfg.FolioPrefix,
	})

	bookingHandler := handlers.NewBookingHandler(bookingService, nil, logger)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		admission := lockout.NewChecker(redisClient, lockout.Config{
			Enabled:     cfg.LockoutEnabled,
			MaxAttempts: cfg.LockoutMaxAttempts,
			Window:      cfg.LockoutWindow,
		}, logger)
		bookingHandler = handlers.NewBookingHandler(bookingService, admission, logger)
	}

	reconciler := booking.NewReconciler(intents, slotRepo, cal, logger).
		WithStaleAfter(cfg.IntentStaleAfter).
		WithInterval(cfg.ReconcileInterval)
	go reconciler.Start(ctx)

	r := router.New(&router.Config{
		Logger:             logger,
		Availability:       handlers.NewAvailabilityHandler(resolver, logger),
		Bookings:           bookingHandler,
		Inventory:          handlers.NewInventoryHandler(depleter, logger),
		Folios:             handlers.NewFolioHandler(folioGen, cfg.FolioPrefix, logger),
		Catalog:            handlers.NewCatalogHandler(catalogRepo, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
