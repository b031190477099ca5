// Package main runs the background export worker (render PDF, upload to S3).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/best-shot/backend/config"
	"github.com/best-shot/backend/internal/bootstrap"
	"github.com/best-shot/backend/internal/logging"
	"github.com/best-shot/backend/internal/metrics"
	"github.com/best-shot/backend/internal/worker"
	"github.com/best-shot/backend/pkg/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Fatal("load config", zap.Error(err))
	}
	logger := logging.New(cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()
	st, err := bootstrap.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer st.Close()

	if !cfg.Redis.Enabled {
		logger.Fatal("export worker requires REDIS_ENABLED=true")
	}
	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client := bootstrap.OpenS3(ctx, cfg.AWS, logger)
	if s3Client == nil {
		logger.Fatal("s3", zap.String("reason", "AWS_REGION not set or client unavailable"))
	}

	exportService := bootstrap.ExportService(cfg.Export, st, metrics.New(), logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewExportProcessor(exportService, bootstrap.Jobs(rdb), s3Client, jobQueue, cfg.Export.Filename, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(workerCtx)
	}()
	logger.Info("export worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("export worker did not stop in time")
	}
	logger.Info("worker stopped")
}
