package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"docrepo/internal/auth"
	"docrepo/internal/config"
	"docrepo/internal/document"
	"docrepo/internal/logger"
	"docrepo/internal/server"
	"docrepo/internal/storage"
	"docrepo/internal/upload"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		logg.Fatal("connect minio", zap.Error(err))
	}

	if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
		logg.Fatal("ensure bucket", zap.Error(err))
	}

	authRepo := auth.NewRepository(dbPool)
	authService := auth.NewService(authRepo, cfg.Auth)

	documentRepo := document.NewRepository(dbPool)
	documentStore := document.NewMinIOStore(minioClient)
	documentService := document.NewService(documentRepo, documentStore, cfg.MinIO.Bucket)

	chunkStore, err := upload.NewChunkStore(cfg.Upload.TempDir)
	if err != nil {
		logg.Fatal("init chunk store", zap.Error(err))
	}
	uploadService := upload.NewService(chunkStore, documentService, documentService, cfg.Upload, logg)

	go uploadService.StartSweeper(ctx)

	if cfg.Seed.Enabled {
		seedAdmin(ctx, authService, cfg.Seed, logg)
	}

	router := server.NewRouter(server.Dependencies{
		Config:          cfg,
		DB:              dbPool,
		ObjectStore:     minioClient,
		AuthService:     authService,
		DocumentService: documentService,
		UploadService:   uploadService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("document repository API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}

func seedAdmin(ctx context.Context, authService *auth.Service, seed config.SeedConfig, logg *zap.Logger) {
	if seed.Password == "" {
		logg.Warn("admin seeding enabled but no password configured, skipping")
		return
	}

	_, err := authService.Register(ctx, auth.RegisterInput{
		Email:    seed.Email,
		Username: seed.Username,
		Password: seed.Password,
		Role:     auth.RoleAdmin,
	})
	switch {
	case err == nil:
		logg.Info("seeded admin user", zap.String("email", seed.Email))
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		logg.Debug("admin user already present", zap.String("email", seed.Email))
	default:
		logg.Error("seed admin user", zap.Error(err))
	}
}
