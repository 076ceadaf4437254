package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/api/handler"
	"github.com/oumizumi/Kairo-sub002/internal/api/router"
	"github.com/oumizumi/Kairo-sub002/internal/app"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
	"github.com/oumizumi/Kairo-sub002/internal/repository"
	"github.com/oumizumi/Kairo-sub002/internal/service"
	"github.com/oumizumi/Kairo-sub002/pkg/database"
	"github.com/oumizumi/Kairo-sub002/pkg/jwt"
	applogger "github.com/oumizumi/Kairo-sub002/pkg/logger"
	"github.com/oumizumi/Kairo-sub002/pkg/redis"
)

func main() {
	// 1. config
	cfg, err := config.Load(os.Getenv("KAIRO_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting kairo api",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("data_source", cfg.Data.Source),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. database + migrations
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.Driver, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	// 4. redis (optional: without it logout cannot revoke access tokens and
	// rate limiting is off)
	var (
		rdb       *redis.Client
		blacklist service.TokenBlacklist
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("redis unavailable, token revocation and rate limiting disabled", zap.Error(err))
			rdb = nil
		} else {
			blacklist = rdb
		}
	}

	ctx := context.Background()

	// 5. program data: curricula and term offerings
	data, err := app.OpenData(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open program data", zap.Error(err))
	}
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		report, err := data.Warm(warmCtx)
		if err != nil {
			logger.Warn("program data warm-up failed, loading lazily", zap.Error(err))
			return
		}
		logger.Info("program data warmed",
			zap.Int("programs", report.Programs),
			zap.Int("curricula", report.Curricula),
			zap.Strings("terms", report.Terms),
			zap.Strings("unavailable", report.Unavailable),
		)
	}()

	refresher, err := data.StartRefresh(cfg.Data.RefreshCron)
	if err != nil {
		logger.Fatal("schedule term data refresh", zap.Error(err))
	}

	// 6. model client (optional)
	llmClient, err := app.NewLLM(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init model client", zap.Error(err))
	}

	// 7. dependency injection: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	// classification is per user inside ScheduleService
	generator := planner.NewGenerator(nil, data.Store, data.Catalog, logger)
	svc := service.NewService(cfg, service.Dependencies{
		Repo:       repo,
		JWT:        jwtMgr,
		Blacklist:  blacklist,
		Curriculum: data.Store,
		Offerings:  data.Catalog,
		Generator:  generator,
		LLM:        llmClient,
	}, logger)
	h := handler.NewHandler(svc, cfg.Auth.RefreshTokenTTL)

	// 8. router
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}

	<-refresher.Stop().Done()

	if closeDB, _ := db.DB(); closeDB != nil {
		closeDB.Close()
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("server stopped")
}
