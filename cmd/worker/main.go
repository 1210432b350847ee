package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/diagram-service/config"
	"github.com/GoSim-25-26J-441/diagram-service/internal/collections"
	"github.com/GoSim-25-26J-441/diagram-service/internal/entities"
	"github.com/GoSim-25-26J-441/diagram-service/internal/indexing"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	rdb, err := redisstore.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sweeper := indexing.NewSweeper(
		entities.NewRepo(db),
		collections.NewRepo(db),
		entities.NewIndexer(rdb),
		cfg.Indexing.RatePerSecond,
		logger.Named("sweeper"),
	)

	if len(os.Args) > 1 && os.Args[1] == "once" {
		st, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Fatal("sweep", zap.Error(err))
		}
		logger.Info("sweep done",
			zap.Int("pending", st.Pending),
			zap.Int("collections", st.Collections),
			zap.Int("reindexed", st.Reindexed),
			zap.Int("removed", st.Removed))
		return
	}

	c, err := sweeper.Start(ctx, cfg.Indexing.SweepCron)
	if err != nil {
		logger.Fatal("schedule", zap.Error(err))
	}
	logger.Info("index sweeper started", zap.String("schedule", cfg.Indexing.SweepCron))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("index sweeper stopped")
}
