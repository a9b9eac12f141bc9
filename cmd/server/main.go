package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/places-api/internal/auth"
	"github.com/ayush/places-api/internal/config"
	"github.com/ayush/places-api/internal/geocode"
	"github.com/ayush/places-api/internal/logging"
	"github.com/ayush/places-api/internal/places"
	"github.com/ayush/places-api/internal/server"
	"github.com/ayush/places-api/internal/store"
	"github.com/ayush/places-api/internal/upload"
	"github.com/ayush/places-api/internal/users"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.IsDevelopment())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Data store ───────────────────────────────────────────
	var db store.Store
	switch cfg.StoreDriver {
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoConnectionURI()))
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if err := client.Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongo ping: %w", err)
		}
		mongoStore := store.NewMongoStore(client.Database(cfg.DBName))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return err
		}
		db = mongoStore
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping: %w", err)
		}
		pgStore := store.NewPostgresStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			return err
		}
		db = pgStore
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		db = store.NewMemoryStore()
	}

	// ── Image store ──────────────────────────────────────────
	var images upload.FileStore
	switch cfg.ImageBackend {
	case "minio":
		images, err = store.NewMinioStore(ctx, store.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return err
		}
	default:
		images, err = upload.NewDiskStore(cfg.UploadDir)
		if err != nil {
			return err
		}
	}

	// ── Login limiter ────────────────────────────────────────
	var limiter users.RateLimiter
	if cfg.RedisAddr != "" {
		var rdb *redis.Client
		rdb, err = store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		limiter = auth.NewLoginLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow)
	} else {
		logger.Info("REDIS_ADDR not set, login throttling disabled")
	}

	// ── Services and handlers ────────────────────────────────
	tokens := auth.NewTokenManager(cfg.JWTKey, cfg.TokenTTL)
	geocoder := geocode.NewClient(cfg.GeocodeURL, cfg.GoogleAPIKey, cfg.GeocodeTimeout)

	router := server.NewRouter(server.Deps{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		Tokens:         tokens,
		Images:         images,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Places:         places.NewHandler(places.NewService(db, geocoder, images)),
		Users:          users.NewHandler(users.NewService(db, tokens, cfg.BcryptCost), limiter),
	})

	// ── Server ───────────────────────────────────────────────
	srv := server.New(":"+cfg.Port, router, cfg.ReadTimeout, cfg.WriteTimeout, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
