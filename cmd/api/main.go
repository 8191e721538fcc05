//	@title			Image Upload API
//	@version		1.0
//	@description	Uploads image batches to object storage, records their keys and serves signed URLs.
//
//	@host		localhost:5000
//	@BasePath	/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/imagepost/service/internal/config"
	"github.com/imagepost/service/internal/db"
	"github.com/imagepost/service/internal/image"
	"github.com/imagepost/service/internal/logger"
	"github.com/imagepost/service/internal/response"
	"github.com/imagepost/service/internal/server"
	"github.com/imagepost/service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("object storage init failed: %w", err)
	}

	// Wire dependencies: repository + storage → service → handler
	limits := image.Limits{MaxFiles: cfg.UploadMaxFiles, MaxFileSize: cfg.UploadMaxFileSize}
	imageSvc := image.NewService(repo, store, limits, log)
	imageHandler := image.NewHandler(imageSvc, response.Writer{Legacy: cfg.LegacyStatusCodes}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.NewRouter(imageHandler, log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.AppEnv),
			zap.String("record_store", cfg.RecordStore),
			zap.String("storage_driver", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down gracefully", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (image.Repository, func(), error) {
	if cfg.RecordStore == config.RecordStorePostgres {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		applied, err := db.Migrate(cfg.DatabaseURL)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		log.Info("connected to postgres", zap.Bool("migrated", applied))
		return image.NewPostgresRepository(pool), pool.Close, nil
	}

	client, err := db.ConnectMongo(ctx, cfg.MongoURL)
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb connection failed: %w", err)
	}
	log.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Warn("mongodb disconnect", zap.Error(err))
		}
	}
	return image.NewMongoRepository(client.Database(cfg.MongoDatabase)), closeFn, nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Storage, error) {
	if cfg.StorageDriver == config.StorageDriverMinio {
		s, err := storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Region:     cfg.StorageRegion,
			Bucket:     cfg.StorageBucket,
			KeyPrefix:  cfg.StorageKeyPrefix,
			UseSSL:     cfg.StorageUseSSL,
			PublicRead: cfg.StoragePublicRead,
			Expiry:     cfg.SignedURLExpiry,
		}, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := storage.NewS3Storage(ctx, storage.S3Options{
		Region:    cfg.StorageRegion,
		Bucket:    cfg.StorageBucket,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Endpoint:  cfg.StorageEndpoint,
		KeyPrefix: cfg.StorageKeyPrefix,
		Expiry:    cfg.SignedURLExpiry,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
