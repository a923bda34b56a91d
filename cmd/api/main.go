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

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/safezone/server/internal/auth"
	"github.com/safezone/server/internal/config"
	"github.com/safezone/server/internal/db"
	"github.com/safezone/server/internal/events"
	httphandler "github.com/safezone/server/internal/http"
	"github.com/safezone/server/internal/http/handlers"
	"github.com/safezone/server/internal/logging"
	"github.com/safezone/server/internal/metrics"
	"github.com/safezone/server/internal/middleware"
	"github.com/safezone/server/internal/repo"
	"github.com/safezone/server/internal/safety"
	"github.com/safezone/server/internal/storage"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.DevMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	userRepo := repo.NewUserRepo(database)
	alertRepo := repo.NewAlertRepo(database)
	safeSpotRepo := repo.NewSafeSpotRepo(database)

	hasher, err := auth.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		logger.Fatal("failed to build password hasher", zap.Error(err))
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("failed to build token service", zap.Error(err))
	}
	authService := auth.NewService(userRepo, hasher, tokens, logger)

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	store := newAttachmentStore(ctx, cfg, logger)

	limiter, closeLimiter := newLimiter(ctx, cfg, logger)
	defer closeLimiter()

	m := metrics.New()

	router := httphandler.NewRouter(httphandler.Deps{
		Logger:         logger,
		Metrics:        m,
		Tokens:         tokens,
		Users:          userRepo,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Auth:           handlers.NewAuthHandler(authService),
		Alerts:         handlers.NewAlertHandler(safety.NewAlertService(alertRepo, publisher, m, logger)),
		SafeSpots:      handlers.NewSafeSpotHandler(safety.NewSafeSpotService(safeSpotRepo)),
		Zones:          handlers.NewZoneHandler(safety.NewZoneService(alertRepo), safety.NewRouteService()),
		SOS:            handlers.NewSOSHandler(safety.NewSOSService(safeSpotRepo, publisher, m, logger), store, cfg.MaxUploadBytes, logger),
		Health:         handlers.NewHealthHandler(database, logger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exited")
}

// newPublisher falls back to a no-op publisher when NATS is not configured
// or unreachable at startup.
func newPublisher(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if cfg.NATSURL == "" {
		return events.NopPublisher{}
	}
	p, err := events.NewNATSPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Warn("event publishing disabled", zap.Error(err))
		return events.NopPublisher{}
	}
	return p
}

func newAttachmentStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) storage.AttachmentStore {
	if cfg.UseS3() {
		s, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logger.Fatal("failed to configure S3 storage", zap.Error(err))
		}
		return s
	}

	s, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("failed to prepare upload directory", zap.Error(err))
	}
	return s
}

// newLimiter shares counters through Redis when REDIS_ADDR is set. The
// returned func releases the limiter's resources.
func newLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (middleware.Limiter, func()) {
	if cfg.RedisAddr == "" {
		l := middleware.NewMemoryLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst)
		return l, l.Close
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiting fails open until it recovers", zap.Error(err))
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	return middleware.NewRedisLimiter(client, time.Minute, cfg.RateLimitRPS*60), closeClient
}
