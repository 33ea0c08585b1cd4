package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adtime-landing/internal/config"
	"adtime-landing/internal/i18n"
	"adtime-landing/internal/metrics"
	mw "adtime-landing/internal/middleware"
	"adtime-landing/internal/notify"
	"adtime-landing/internal/pricing"
	"adtime-landing/internal/server"
	"adtime-landing/pkg/logger"
	"adtime-landing/pkg/redis"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// ENTRY POINT

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Инициализация логгера
	zapLogger, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	// Обработка сигналов завершения
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("Server stopped with error", zap.Error(err))
	}

	zapLogger.Info("Server shutdown gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	catalog, err := pricing.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	log.Info("Catalog loaded",
		zap.Int("offerings", len(catalog.Offerings)),
		zap.String("currency", catalog.Currency))

	store, err := i18n.Load()
	if err != nil {
		return err
	}

	sentryEnabled := cfg.SentryDSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			AttachStacktrace: true,
		}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	m := metrics.New()

	deps := server.Deps{
		Config:  cfg,
		Catalog: catalog,
		I18n:    store,
		Dispatcher: notify.NewDispatcher(notify.Options{
			TelegramEndpoint: cfg.TelegramAPIEndpoint,
			TelegramTimeout:  cfg.TelegramTimeout,
			SendGridHost:     cfg.SendGridHost,
			EmailTimeout:     cfg.EmailTimeout,
			PhoneRegion:      cfg.PhoneRegion,
			Observer:         m,
		}, log),
		Metrics: m,
		Logger:  log,
		Sentry:  sentryEnabled,
	}

	// Redis is optional: it only shares rate limits between instances.
	// Without it the server keeps an in-memory per-IP limiter.
	if cfg.RedisAddr != "" {
		redisClient, err := redis.Connect(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		deps.Limiter = mw.NewRedisRateLimiter(redisClient, cfg.RateLimitPerMinute)
		deps.HealthCheck = redisClient.Ping
	}

	return server.New(deps).Start(ctx)
}
