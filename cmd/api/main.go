package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/consultation-booking/cmd/mainconfig"
	"github.com/wolfman30/consultation-booking/internal/api/router"
	"github.com/wolfman30/consultation-booking/internal/app/bootstrap"
	"github.com/wolfman30/consultation-booking/internal/availability"
	appconfig "github.com/wolfman30/consultation-booking/internal/config"
	"github.com/wolfman30/consultation-booking/internal/consultations"
	httpmiddleware "github.com/wolfman30/consultation-booking/internal/http/middleware"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting consultation booking API",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.BookingTimezone,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	deps := bootstrap.Deps{Pool: pool, Redis: redisClient}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("AWS config unavailable; S3 attachments and SES disabled", "error", err)
	} else {
		deps.S3 = mainconfig.NewS3Client(awsCfg, cfg)
		deps.SES = mainconfig.NewSESClient(awsCfg, cfg)
	}

	metricsHandler, registry := setupMetrics()
	deps.Registerer = registry
	rt := bootstrap.Build(cfg, logger, deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      buildHandler(cfg, logger, rt, metricsHandler, healthCheck(pool, redisClient)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics returns a private registry with runtime collectors and the
// handler that exposes it.
func setupMetrics() (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), reg
}

func buildHandler(cfg *appconfig.Config, logger *logging.Logger, rt *bootstrap.Runtime, metricsHandler http.Handler, health func(context.Context) error) http.Handler {
	return router.New(&router.Config{
		Logger:          logger,
		Availability:    availability.NewHandler(rt.Engine, logger),
		Bookings:        consultations.NewHandler(rt.Service, logger, cfg.MaxUploadBytes),
		AdminBookings:   consultations.NewAdminHandler(rt.Service, logger),
		AdminAuthSecret: cfg.AdminJWTSecret,
		CSRF: httpmiddleware.CSRFConfig{
			Key:            cfg.CSRFKey,
			Secure:         cfg.Env == "production",
			TrustedOrigins: cfg.CORSAllowedOrigins,
		},
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		MetricsHandler:     metricsHandler,
		HealthCheck:        health,
	})
}

// healthCheck pings whichever backing stores are configured.
func healthCheck(pool *pgxpool.Pool, redisClient *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
