package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/application"
	appai "github.com/bryanwahyu/inspection-sync/internal/application/ai"
	"github.com/bryanwahyu/inspection-sync/internal/application/ledger"
	appnotices "github.com/bryanwahyu/inspection-sync/internal/application/notices"
	"github.com/bryanwahyu/inspection-sync/internal/application/scheduling"
	appsyncs "github.com/bryanwahyu/inspection-sync/internal/application/syncs"
	"github.com/bryanwahyu/inspection-sync/internal/config"
	"github.com/bryanwahyu/inspection-sync/internal/domain/notices"
	"github.com/bryanwahyu/inspection-sync/internal/domain/presence"
	"github.com/bryanwahyu/inspection-sync/internal/infra/ai/openai"
	"github.com/bryanwahyu/inspection-sync/internal/infra/db"
	"github.com/bryanwahyu/inspection-sync/internal/infra/export"
	"github.com/bryanwahyu/inspection-sync/internal/infra/httpserver"
	"github.com/bryanwahyu/inspection-sync/internal/infra/notice"
	presenceredis "github.com/bryanwahyu/inspection-sync/internal/infra/presence"
	minioStore "github.com/bryanwahyu/inspection-sync/internal/infra/storage"
	"github.com/bryanwahyu/inspection-sync/internal/logging"
	"github.com/bryanwahyu/inspection-sync/internal/middleware"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Service)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	handle, err := db.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store open error", zap.Error(err))
	}
	defer handle.Close()
	st := handle.Store
	clock := application.SystemClock{}

	health := map[string]middleware.HealthChecker{
		"database": middleware.PingChecker{Ping: st.Ping},
	}

	var (
		registry    presence.Registry
		broadcaster presence.Broadcaster
	)
	if cfg.Redis.Addr != "" {
		rdb := presenceredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		hub := presenceredis.NewHub(rdb, cfg.Redis.Prefix, logger)
		registry, broadcaster = hub, hub
		health["redis"] = middleware.PingChecker{Ping: hub.Ping}
	} else {
		logger.Warn("redis not configured, presence and broadcast disabled")
	}

	var objects ledger.ObjectStore
	if cfg.Minio.Endpoint != "" {
		ms, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
			logger,
		)
		if err != nil {
			logger.Fatal("minio init error", zap.Error(err))
		}
		objects = ms
	} else {
		logger.Warn("minio not configured, photo upload disabled")
	}

	noticeSvc := appnotices.NewService(st.Notices(), clock)
	var generator notices.Generator = noticeSvc
	if cfg.Notices.Mode == "http" {
		generator = notice.NewClient(cfg.Notices.BaseURL, time.Duration(cfg.Notices.TimeoutSeconds)*time.Second, st.Notices(), logger)
	}

	var aiSvc *appai.Service
	if cfg.OpenAI.APIKey != "" {
		aiSvc = appai.NewService(openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model), logger)
	} else {
		aiSvc = appai.NewService(nil, logger)
	}

	metrics := middleware.NewMetrics()
	window := time.Duration(cfg.Server.RateLimit.WindowS) * time.Second
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Requests, window)
	defer limiter.Close()

	if len(cfg.Server.APIKeys) == 0 {
		logger.Warn("no API keys configured, authentication disabled")
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Sync: &appsyncs.Service{
			Store:         st,
			Broadcaster:   broadcaster,
			Recorder:      metrics,
			Clock:         clock,
			Log:           logger.Named("sync"),
			ChangeTimeout: cfg.ChangeTimeout(),
		},
		Scheduling: &scheduling.Service{
			Store:    st,
			Notices:  generator,
			Clock:    clock,
			Log:      logger.Named("scheduling"),
			Location: cfg.Location(),
		},
		Ledger: &ledger.Service{
			Store:   st,
			Objects: objects,
			Render:  export.Workbook,
			Clock:   clock,
			Log:     logger.Named("ledger"),
		},
		Notices:     noticeSvc,
		AI:          aiSvc,
		Presence:    registry,
		Metrics:     metrics,
		Health:      health,
		APIKeys:     cfg.Server.APIKeys,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimiter: limiter,
		RateWindow:  window,
		Log:         logger.Named("http"),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
