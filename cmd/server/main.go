// Package main runs the Best Shot HTTP server with the live tally WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/best-shot/backend/config"
	"github.com/best-shot/backend/internal/admin"
	"github.com/best-shot/backend/internal/auth"
	"github.com/best-shot/backend/internal/bootstrap"
	"github.com/best-shot/backend/internal/export"
	"github.com/best-shot/backend/internal/logging"
	"github.com/best-shot/backend/internal/metrics"
	"github.com/best-shot/backend/internal/middleware"
	"github.com/best-shot/backend/internal/photos"
	"github.com/best-shot/backend/internal/realtime"
	"github.com/best-shot/backend/internal/tally"
	"github.com/best-shot/backend/internal/voting"
	"github.com/best-shot/backend/pkg/queue"
	"github.com/best-shot/backend/pkg/response"
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

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}
	s3Client := bootstrap.OpenS3(ctx, cfg.AWS, logger)

	m := metrics.New()
	feed := bootstrap.Feed(rdb, logger)
	drafts := bootstrap.Drafts(rdb, cfg.Voting)

	// Live tally
	hub := realtime.NewHub(logger)
	hub.SetViewerChangeHandler(m.SetTallyViewers)
	aggregator := tally.NewAggregator(st, feed, hub, m, cfg.Tally.ResyncSeconds, logger)
	aggCtx, aggCancel := context.WithCancel(context.Background())
	defer aggCancel()
	if err := aggregator.Start(aggCtx); err != nil {
		logger.Fatal("tally aggregator", zap.Error(err))
	}
	defer aggregator.Stop()
	tallyHandler := tally.NewHandler(aggregator, hub, logger)

	// Participants
	votingService := voting.NewService(st, drafts, feed, aggregator, m, logger)
	votingHandler := voting.NewHandler(votingService, logger)
	photoHandler := photos.NewHandler(st, aggregator, logger)

	// Admin
	adminService := admin.NewService(st, drafts, feed, m, cfg.Server.PublicBaseURL, logger)
	adminHandler := admin.NewHandler(adminService, logger)

	var (
		enqueuer  export.Enqueuer
		presigner export.Presigner
	)
	if rdb != nil && s3Client != nil {
		q := queue.NewQueue(rdb.Client, logger)
		m.WatchExportQueue(q)
		enqueuer = q
		presigner = s3Client
	}
	exportService := bootstrap.ExportService(cfg.Export, st, m, logger)
	exportHandler := export.NewHandler(exportService, bootstrap.Jobs(rdb), enqueuer, presigner, cfg.Export.Filename, logger)

	// Admin gate: a nil service leaves /admin open
	jwtService := auth.NewJWTService(cfg.Admin.JWTSecret, cfg.Admin.ExpireHours)
	authHandler := auth.NewHandler(cfg.Admin.PasswordHash, jwtService, logger)
	gate := jwtService
	if !cfg.Admin.Enabled() {
		gate = nil
		logger.Warn("ADMIN_PASSWORD_HASH not set; admin routes are unauthenticated")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		if rdb != nil {
			if err := rdb.Healthy(c.Request.Context()); err != nil {
				response.ServiceUnavailable(c, "redis unavailable")
				return
			}
		}
		response.OK(c, gin.H{"status": "ok", "tally_version": aggregator.Snapshot().Version})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	votingHandler.Register(router)
	photoHandler.Register(router)
	tallyHandler.Register(router)

	router.POST("/admin/login", authHandler.Login)
	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin(gate))
	{
		adminHandler.Register(adminGroup)
		exportHandler.Register(adminGroup)
		tallyHandler.RegisterAdmin(adminGroup)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("db_driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	aggregator.Stop()
	logger.Info("server stopped")
}
