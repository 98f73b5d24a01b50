// cmd/orchestrator/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/observability"
	"search-orchestrator/internal/common/server"
	"search-orchestrator/internal/orchestrator/client"
	"search-orchestrator/internal/orchestrator/handler"
	"search-orchestrator/internal/orchestrator/historyclient"
	"search-orchestrator/internal/orchestrator/searchclient"
	"search-orchestrator/internal/orchestrator/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(config.ServiceOrchestrator)
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": config.ServiceOrchestrator})

	zapLog.Info("Starting search orchestrator...")

	obs, err := observability.New(config.ServiceOrchestrator, cfg.Observability, log)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(ctx)
	}()

	searchBackend := client.NewHTTPClient("search", cfg.Clients.Search, log, obs)
	historyBackend := client.NewHTTPClient("history", cfg.Clients.History, log, obs)

	orch := service.New(
		service.Config{HistoryTimeout: config.GetDuration(cfg.Clients.History.Timeout)},
		searchclient.New(searchBackend),
		historyclient.New(historyBackend),
		[]service.Probe{
			{Name: "search_service", Client: searchBackend},
			{Name: "user_history_service", Client: historyBackend},
		},
		log,
		obs,
	)

	srv := server.New(server.Options{
		Service:     config.ServiceOrchestrator,
		Environment: cfg.App.Environment,
		Server:      cfg.Server,
		Logger:      log,
		Tracer:      obs.Tracer(),
	})
	handler.NewHandler(orch, log).RegisterRoutes(srv.Engine())

	zapLog.Info("Downstream clients initialized",
		zap.String("searchURL", cfg.Clients.Search.BaseURL),
		zap.String("historyURL", cfg.Clients.History.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		zapLog.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("Search orchestrator stopped")
}
