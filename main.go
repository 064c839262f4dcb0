package main

import (
	"context"
	"strings"
	"time"

	"github.com/cppla/wallpress/config"
	"github.com/cppla/wallpress/models"
	"github.com/cppla/wallpress/routes"
	"github.com/cppla/wallpress/storage"
	"github.com/cppla/wallpress/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db, err := config.InitDatabase(cfg, models.All()...)
	if err != nil {
		utils.Sugar.Fatalf("database init failed: %v", err)
	}

	rc := utils.NewRedis(cfg)

	blob, err := newBlobService(cfg)
	if err != nil {
		utils.Sugar.Fatalf("storage init failed: %v", err)
	}

	r := routes.SetupRouter(routes.Deps{DB: db, Redis: rc, Blob: blob, Config: cfg})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func newBlobService(cfg config.AppConfig) (storage.BlobService, error) {
	if strings.ToLower(cfg.StorageDriver) == "minio" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewMinioBlobService(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
	}
	return storage.NewHTTPBlobService(storage.HTTPOptions{
		BaseURL:       cfg.StorageServiceURL,
		ServiceName:   cfg.StorageServiceName,
		ServiceKey:    cfg.StorageServiceKey,
		ServiceSecret: cfg.StorageServiceSecret,
		AccountID:     cfg.StorageAccountID,
		Timeout:       time.Duration(cfg.StorageTimeoutSec) * time.Second,
	}), nil
}
