// cmd/history-service/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/database"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/observability"
	"search-orchestrator/internal/common/server"
	"search-orchestrator/internal/historysvc"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(config.ServiceHistory)
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": config.ServiceHistory})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(config.ServiceHistory, cfg.Observability, log)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	var pg *database.PostgresClient
	err = database.RetryWithBackoff(ctx, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := pg.Migrate(ctx, historysvc.Schema...); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	redis := database.NewRedis(cfg.Database.Redis)
	err = database.RetryWithBackoff(ctx, func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	svc := historysvc.NewService(
		historysvc.Config{AutoProvisionUsers: cfg.History.AutoProvisionUsers},
		historysvc.NewPostgresRepository(pg.DB),
		historysvc.NewUserCache(redis.Client, config.GetDuration(cfg.History.UserCacheTTL), log),
		log,
	)

	srv := server.New(server.Options{
		Service:     config.ServiceHistory,
		Environment: cfg.App.Environment,
		Server:      cfg.Server,
		Logger:      log,
		Tracer:      obs.Tracer(),
	})
	historysvc.NewHandler(svc, pg, log).RegisterRoutes(srv.Engine())

	if err := srv.Run(ctx); err != nil {
		zapLog.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("History service stopped")
}
