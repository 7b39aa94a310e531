package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/config"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/data/mongo"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/data/postgres"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger_api"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/logger"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/cache"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/persistence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"port", cfg.Server.Port,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresDB.Close()

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	auditRepo := mongo.NewLedgerEventRepository(log, mongoDB.Database())
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create audit log indexes", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// A typed nil *SummaryCache would not compare equal to nil inside the ledger.
	var dashboardCache ledger.DashboardCache
	if redisClient != nil {
		dashboardCache = cache.NewSummaryCache(redisClient, cfg.Redis.SummaryTTL, log)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(reg)

	ledgerService := ledger.New(postgresDB, ledger.Repositories{
		Sellers:     postgres.NewSellerRepository(log, postgresDB),
		Commissions: postgres.NewCommissionRepository(log, postgresDB),
		Withdrawals: postgres.NewWithdrawalRepository(log, postgresDB),
		Outbox:      postgres.NewOutboxRepository(log, postgresDB),
	}, dashboardCache, ledgerMetrics, log, ledger.Options{
		CommissionRoundingUnit: cfg.Ledger.CommissionRoundingUnit,
		RecalculateConcurrency: cfg.Ledger.RecalculateConcurrency,
		RecalculatePageSize:    cfg.Ledger.RecalculatePageSize,
	})

	server := ledger_api.NewServer(log, cfg, ledger_api.Dependencies{
		Ledger:   ledgerService,
		AuditLog: auditRepo,
		Metrics:  reg,
		Ready:    postgresDB.Ping,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case serviceErr = <-errChan:
		log.Error("Service error occurred", "error", serviceErr)
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Ledger API shutdown with errors", "error", serviceErr)
		return
	}
	log.Info("Ledger API shutdown completed successfully")
}
