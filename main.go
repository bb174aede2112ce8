package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-theatre/internal/auth"
	"ms-theatre/internal/cache"
	"ms-theatre/internal/config"
	"ms-theatre/internal/database"
	"ms-theatre/internal/database/migrations"
	"ms-theatre/internal/kafka"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/media"
	"ms-theatre/internal/reservation"
)

func runMigrations(bunDB *bun.DB, seed bool, log *logger.Logger) error {
	opts := migrations.DefaultOptions()
	opts.SeedData = seed
	runner := migrations.NewRunner(bunDB, opts, log)
	return runner.RunMigrations()
}

func newCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (cache.Cache, func()) {
	if !cfg.Enabled {
		log.Info("REDIS", "Catalog cache disabled")
		return cache.Noop{}, func() {}
	}
	client, err := cache.Connect(ctx, cfg.Addr, cfg.Password, cfg.DB, log)
	if err != nil {
		log.Warn("REDIS", fmt.Sprintf("Catalog cache unavailable, serving from database: %v", err))
		return cache.Noop{}, func() {}
	}
	return cache.NewRedisCache(client, "catalog", cfg.CacheTTL), func() { client.Close() }
}

func newPublisher(cfg config.KafkaConfig, log *logger.Logger) (reservation.EventPublisher, func()) {
	if !cfg.Enabled {
		log.Info("KAFKA", "Reservation events disabled")
		return nil, func() {}
	}
	if err := kafka.EnsureTopicsExist(cfg.Brokers, []string{cfg.Topics.ReservationEvents}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	producer := kafka.NewProducer(cfg.Brokers, cfg.Topics.ReservationEvents, log)
	log.Info("KAFKA", "Kafka producer initialized successfully")
	return producer, func() { producer.Close() }
}

func newStorage(ctx context.Context, cfg config.MediaConfig) (media.Storage, error) {
	switch cfg.Backend {
	case "s3":
		return media.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region)
	case "local", "":
		return &media.LocalStorage{Dir: cfg.Dir, BaseURL: cfg.BaseURL}, nil
	default:
		return nil, fmt.Errorf("unsupported media backend %q", cfg.Backend)
	}
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, jwtManager *auth.JWTManager, log *logger.Logger) auth.TokenVerifier {
	if cfg.OIDCIssuer == "" {
		return jwtManager
	}
	oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClient, cfg.AdminRole)
	if err != nil {
		log.Warn("AUTH", fmt.Sprintf("OIDC disabled: %v", err))
		return jwtManager
	}
	log.Info("AUTH", fmt.Sprintf("Accepting OIDC tokens from %s", cfg.OIDCIssuer))
	return auth.Chain{jwtManager, oidcVerifier}
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	log.Info("APP", "Starting theatre service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx := context.Background()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := prepareSchema(ctx, bunDB, cfg.Database, log); err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("Failed to prepare schema: %v", err))
	}

	catalogCache, closeCache := newCache(ctx, cfg.Redis, log)
	defer closeCache()

	events, closeEvents := newPublisher(cfg.Kafka, log)
	defer closeEvents()

	store, err := newStorage(ctx, cfg.Media)
	if err != nil {
		log.Fatal("MEDIA", err.Error())
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	verifier := newVerifier(ctx, cfg.Auth, jwtManager, log)

	a := newApp(bunDB, cfg, catalogCache, events, store, verifier, jwtManager, log)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      a.router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Theatre service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Theatre service shutdown complete")
	}
}
