package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/globe-observations/internal/api"
	"github.com/jengzang/globe-observations/internal/cache"
	"github.com/jengzang/globe-observations/internal/config"
	"github.com/jengzang/globe-observations/internal/database"
	"github.com/jengzang/globe-observations/internal/logging"
	"github.com/jengzang/globe-observations/internal/middleware"
	"github.com/jengzang/globe-observations/internal/repository"
	"github.com/jengzang/globe-observations/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(cfg.Server.GinMode)

	// 打开数据集
	registry, err := database.OpenDatasets(cfg.Datasets, cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Error("failed to open datasets", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	stores := make(map[string]service.ObservationStore, len(cfg.Datasets))
	for _, name := range registry.Names() {
		db, _ := registry.Get(name)
		stores[name] = repository.NewObservationRepository(db, cfg.Database.QueryTimeout)
	}

	var binCache service.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Addr != "" {
			vk, err := cache.NewValkey(cfg.Cache.Addr, "globe:")
			if err != nil {
				logger.Error("failed to connect to valkey", "addr", cfg.Cache.Addr, "error", err)
				os.Exit(1)
			}
			defer vk.Close()
			binCache = vk
			logger.Info("bin cache enabled", "backend", "valkey", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
		} else {
			binCache = cache.NewMemory(cfg.Cache.MaxEntries, cfg.Cache.TTL)
			logger.Info("bin cache enabled", "backend", "memory", "ttl", cfg.Cache.TTL, "max_entries", cfg.Cache.MaxEntries)
		}
	}

	svc := service.NewHeatmapService(stores, binCache, cfg.Cache.TTL, logger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Requests > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Stop()
	}

	// 初始化路由
	router := api.SetupRouter(cfg, svc, logger, limiter)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "datasets", svc.Datasets())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
