package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"dashboard-query-service/internal/config"
	"dashboard-query-service/internal/controller"
	"dashboard-query-service/internal/db"
	httpserver "dashboard-query-service/internal/http"
	"dashboard-query-service/internal/logging"
	"dashboard-query-service/internal/repository"
	"dashboard-query-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	logging.Init(cfg.LogLevel, cfg.AppMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.NewConnection(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("connect db")
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn); err != nil {
		logrus.WithError(err).Fatal("migrate")
	}

	repo := repository.NewEventRepository(conn)
	worker := service.NewBatchEventWorker(repo, cfg.WorkerBufferSize, cfg.WorkerBatchSize, cfg.WorkerFlushEvery)
	eventService := service.NewEventService(worker, cfg.FutureTolerance)
	queryService := service.NewQueryService(repo, service.QueryOptions{
		Fallback:      cfg.Query.Fallback,
		RetryAttempts: cfg.Query.RetryAttempts,
		RetryDelay:    cfg.Query.RetryDelay,
		CacheTTL:      cfg.Query.CacheTTL,
	})

	server := httpserver.NewServer(cfg,
		controller.NewEventController(eventService),
		controller.NewQueryController(queryService),
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("server shutdown")
		}
	}()

	logrus.WithField("addr", cfg.HTTPPort).Info("starting server")
	if err := server.Listen(cfg.HTTPPort); err != nil {
		logrus.WithError(err).Error("server stopped")
	}

	worker.Shutdown()
}
