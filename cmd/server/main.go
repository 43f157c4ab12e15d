package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"farmops/internal/alert"
	"farmops/internal/application"
	"farmops/internal/catalog"
	"farmops/internal/config"
	"farmops/internal/media"
	"farmops/internal/recipe"
	"farmops/internal/server"
	"farmops/internal/stock"
	"farmops/pkg/clients/webhook"
	"farmops/pkg/database"
	"farmops/pkg/logger"
	"farmops/pkg/middleware"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	db, err := database.Connect(cfg.DB.DSN)
	if err != nil {
		baseLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := database.AutoMigrate(db); err != nil {
		baseLogger.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		baseLogger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		redisClient = nil
	}

	catalogSvc := catalog.NewService(db)
	stockSvc := stock.NewService(db)
	applicationSvc := application.NewService(db, baseLogger.Named("svc.application"))
	recipeSvc := recipe.NewService(db, catalogSvc)

	handlers := server.Handlers{
		Catalog:     catalog.NewHandler(catalogSvc),
		Stock:       stock.NewHandler(stockSvc),
		Application: application.NewHandler(applicationSvc),
		Recipe:      recipe.NewHandler(recipeSvc),
	}

	if cfg.StorageEnabled() {
		store, err := media.NewObjectClient(context.Background(),
			cfg.Storage.Endpoint, cfg.Storage.Region, cfg.Storage.Bucket,
			cfg.Storage.AccessKey, cfg.Storage.SecretKey)
		if err != nil {
			baseLogger.Fatal("failed to init object storage", zap.Error(err))
		}
		mediaSvc := media.NewService(db, store, baseLogger.Named("svc.media"))
		handlers.Media = media.NewHandler(mediaSvc)
		baseLogger.Info("attachment storage enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		baseLogger.Warn("storage not configured, attachments disabled")
	}

	var limiter *middleware.RateLimiter
	if redisClient != nil {
		limiter = middleware.NewRateLimiter(redisClient, 120)
	}

	engine := server.New(handlers, limiter, cfg.Auth.JWTSecret, baseLogger.Named("router"))

	alertSvc := alert.NewService(db)
	var notifier webhook.Notifier
	if cfg.AlertsEnabled() {
		notifier = webhook.NewClient(cfg.Alerts.WebhookURL)
	}
	sched := alert.NewScheduler(alertSvc, notifier, cfg.Alerts.CronSchedule, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
