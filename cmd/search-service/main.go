// cmd/search-service/main.go
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
	"search-orchestrator/internal/searchsvc"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(config.ServiceSearch)
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": config.ServiceSearch})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(config.ServiceSearch, cfg.Observability, log)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	var esClient *database.ElasticsearchClient
	err = database.RetryWithBackoff(ctx, func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.Search.Index))

	provider := searchsvc.NewElasticsearchProvider(esClient.Client, cfg.Search.Index, cfg.Search.MaxResults, log)

	srv := server.New(server.Options{
		Service:     config.ServiceSearch,
		Environment: cfg.App.Environment,
		Server:      cfg.Server,
		Logger:      log,
		Tracer:      obs.Tracer(),
	})
	searchsvc.NewHandler(provider, log).RegisterRoutes(srv.Engine())

	if err := srv.Run(ctx); err != nil {
		zapLog.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("Search service stopped")
}
