package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/consultation-booking/internal/attachments"
	"github.com/wolfman30/consultation-booking/internal/availability"
	appconfig "github.com/wolfman30/consultation-booking/internal/config"
	"github.com/wolfman30/consultation-booking/internal/consultations"
	"github.com/wolfman30/consultation-booking/internal/notify"
	"github.com/wolfman30/consultation-booking/internal/observability/metrics"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// ConnectPostgres opens a pool for DATABASE_URL. An empty URL returns nil so
// callers fall back to the in-memory repository.
func ConnectPostgres(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("postgres ping failed", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// Deps are the externally constructed clients. Any of them may be nil.
type Deps struct {
	Registerer prometheus.Registerer
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	S3         attachments.S3API
	SES        notify.SESAPI
	Now        func() time.Time
}

// Runtime is the assembled booking backend.
type Runtime struct {
	Engine      *availability.Engine
	Service     *consultations.Service
	Metrics     *metrics.BookingMetrics
	Attachments *attachments.S3Store
	Email       notify.EmailSender
	Repository  consultations.Repository
}

// Build wires repository, availability engine, submission lock, attachment
// store, email notifier and metrics from cfg.
func Build(cfg *appconfig.Config, logger *logging.Logger, deps Deps) *Runtime {
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location()
	m := metrics.NewBookingMetrics(deps.Registerer)

	var repo consultations.Repository
	if deps.Pool != nil {
		repo = consultations.NewPostgresRepository(deps.Pool)
		logger.Info("using postgres booking repository")
	} else {
		repo = consultations.NewInMemoryRepository()
		logger.Warn("DATABASE_URL not set; bookings are kept in memory")
	}

	engineOpts := []availability.Option{
		availability.WithLogger(logger),
		availability.WithMetrics(m),
	}
	if deps.Now != nil {
		engineOpts = append(engineOpts, availability.WithClock(deps.Now))
	}
	engine := availability.NewEngine(repo, availability.Config{
		OpenHour:   cfg.BookingOpenHour,
		CloseHour:  cfg.BookingCloseHour,
		Step:       cfg.SlotStep,
		Buffer:     cfg.BookingBuffer,
		ClosedDays: cfg.ClosedWeekdays,
		Location:   loc,
		CacheSize:  cfg.AvailabilityCacheSize,
		CacheTTL:   cfg.AvailabilityCacheTTL,
	}, engineOpts...)

	var lock consultations.SubmissionLock
	if deps.Redis != nil {
		lock = consultations.NewRedisSubmissionLock(deps.Redis, cfg.SubmitLockTTL)
	} else {
		lock = consultations.NewMemorySubmissionLock(cfg.SubmitLockTTL)
	}

	sender := notify.NewEmailSender(notify.SenderConfig{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
	}, deps.SES, logger)

	opts := []consultations.ServiceOption{
		consultations.WithSubmissionLock(lock),
		consultations.WithNotifier(notify.NewBookingNotifier(sender, cfg.AdminEmail, loc, logger)),
		consultations.WithMetrics(m),
		consultations.WithDuplicateWindow(cfg.DuplicateWindow),
	}
	store := attachments.NewS3Store(deps.S3, cfg.AttachmentsBucket, logger)
	if store.Enabled() {
		opts = append(opts, consultations.WithAttachmentStore(store))
	} else {
		logger.Warn("ATTACHMENTS_BUCKET not set; uploaded documents are not stored")
	}

	return &Runtime{
		Engine:      engine,
		Service:     consultations.NewService(repo, engine, logger, opts...),
		Metrics:     m,
		Attachments: store,
		Email:       sender,
		Repository:  repo,
	}
}
