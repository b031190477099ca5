// Package bootstrap opens the backends shared by the server, the export
// worker and bestshotctl from a loaded config.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/best-shot/backend/config"
	"github.com/best-shot/backend/internal/export"
	"github.com/best-shot/backend/internal/metrics"
	"github.com/best-shot/backend/internal/realtime"
	"github.com/best-shot/backend/internal/store"
	"github.com/best-shot/backend/internal/store/postgres"
	"github.com/best-shot/backend/internal/store/sqlite"
	"github.com/best-shot/backend/internal/voting"
	"github.com/best-shot/backend/pkg/database"
	"github.com/best-shot/backend/pkg/redis"
	"github.com/best-shot/backend/pkg/storage"
)

// OpenStore connects the configured relational store and applies migrations.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("SQLite store opened", zap.String("path", cfg.SQLitePath))
		return st, nil
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.DSN(), database.PoolOptions{
			MaxConns:        int32(cfg.MaxConns),
			MaxConnIdleTime: 5 * time.Minute,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.New(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenRedis returns nil when Redis is disabled.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		logger.Info("Redis disabled; using in-process feed, drafts and export status")
		return nil, nil
	}
	return redis.NewClient(ctx, redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: time.Duration(cfg.DialTimeout) * time.Second,
	}, logger)
}

// OpenS3 returns nil when no region is configured or the client cannot be built.
func OpenS3(ctx context.Context, cfg config.AWSConfig, logger *zap.Logger) *storage.S3 {
	if cfg.Region == "" {
		return nil
	}
	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.Region,
		AccessKeyID:          cfg.AccessKeyID,
		SecretAccessKey:      cfg.SecretAccessKey,
		ExportsBucket:        cfg.ExportsBucket,
		PresignExpireMinutes: cfg.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Warn("s3 disabled", zap.Error(err))
		return nil
	}
	return s3Client
}

// Feed returns the Redis change feed, or an in-process one without Redis.
func Feed(rdb *redis.Client, logger *zap.Logger) realtime.Feed {
	if rdb == nil {
		return realtime.NewLocalFeed()
	}
	return realtime.NewRedisFeed(rdb.Client, logger)
}

// Drafts returns the draft store matching the Redis setting.
func Drafts(rdb *redis.Client, cfg config.VotingConfig) voting.DraftStore {
	if rdb == nil {
		return voting.NewMemoryDrafts()
	}
	return voting.NewRedisDrafts(rdb.Client, time.Duration(cfg.DraftTTLHours)*time.Hour)
}

// Jobs returns the export job status store matching the Redis setting.
func Jobs(rdb *redis.Client) export.JobStore {
	if rdb == nil {
		return export.NewMemoryJobStore()
	}
	return export.NewRedisJobStore(rdb.Client)
}

// ExportService wires the export pipeline over st.
func ExportService(cfg config.ExportConfig, st store.Store, m *metrics.Metrics, logger *zap.Logger) *export.Service {
	timeout := time.Duration(cfg.FetchTimeoutSec) * time.Second
	budget := time.Duration(cfg.FetchBudgetSec) * time.Second
	fetcher := export.NewFetcher(&http.Client{Timeout: timeout}, cfg.FetchConcurrency, timeout, budget)
	return export.NewService(st, fetcher, export.NewRenderer(cfg.FontPath), export.Options{
		Title:    cfg.Title,
		Subtitle: cfg.Subtitle,
		TopN:     cfg.TopN,
	}, m, logger)
}
