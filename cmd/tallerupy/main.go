package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/AlfilAlex/taller-upy/internal/config"
	"github.com/AlfilAlex/taller-upy/internal/db"
	"github.com/AlfilAlex/taller-upy/internal/logging"
	"github.com/AlfilAlex/taller-upy/internal/service"
	"github.com/AlfilAlex/taller-upy/internal/store"
	"github.com/AlfilAlex/taller-upy/internal/uploads"
	localsigner "github.com/AlfilAlex/taller-upy/internal/uploads/local"
	s3signer "github.com/AlfilAlex/taller-upy/internal/uploads/s3"
	"github.com/AlfilAlex/taller-upy/internal/web"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required")
		return
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	signer, err := newUploadSigner(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize upload signer", "error", err)
		return
	}

	lotService := service.NewLotService(store.NewLotStore(database), cfg.MinImages, logger)
	server := web.NewServer(lotService, signer, database, cfg.JWTSecret, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newUploadSigner(cfg *config.Config, logger *slog.Logger) (uploads.Signer, error) {
	switch cfg.UploadBackend {
	case "local":
		logger.Info("using local upload signer", "base_url", cfg.UploadLocalBase)
		return localsigner.New(cfg.UploadLocalBase, cfg.JWTSecret), nil
	default:
		logger.Info("using s3 upload signer", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
		return s3signer.New(context.Background(), s3signer.Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	}
}
