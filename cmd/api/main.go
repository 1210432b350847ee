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

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/diagram-service/config"
	"github.com/GoSim-25-26J-441/diagram-service/internal/auth"
	authmw "github.com/GoSim-25-26J-441/diagram-service/internal/auth/middleware"
	"github.com/GoSim-25-26J-441/diagram-service/internal/bootstrap"
	"github.com/GoSim-25-26J-441/diagram-service/internal/logging"
	"github.com/GoSim-25-26J-441/diagram-service/internal/storage/postgres"
	redisstore "github.com/GoSim-25-26J-441/diagram-service/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redisstore.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var verifier authmw.TokenVerifier
	if cfg.Auth.Mode == config.AuthModeFirebase {
		client, err := auth.InitializeFirebase(ctx, &cfg.Auth)
		if err != nil {
			logger.Fatal("firebase", zap.Error(err))
		}
		verifier = client
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:     "diagram-service",
		Version:         cfg.App.Version,
		CORSOrigins:     cfg.App.CORSOrigins,
		DB:              db,
		Redis:           rdb,
		Verifier:        verifier,
		TrustUserHeader: cfg.Auth.Mode == config.AuthModeHeader,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("auth_mode", cfg.Auth.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
