package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/config"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/data/mongo"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/data/postgres"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/ledger"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/logger"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/order_processor/consumer"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/order_processor/outbox_poller"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/order_processor/service"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/cache"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/messaging/consumers"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/messaging/producers"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/metrics"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/platform/persistence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("order_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Order Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}
	var dashboardCache ledger.DashboardCache
	if redisClient != nil {
		dashboardCache = cache.NewSummaryCache(redisClient, cfg.Redis.SummaryTTL, log)
	}

	// Initialize repositories
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	auditRepo := mongo.NewLedgerEventRepository(log, mongoDB.Database())
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create audit log indexes", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(reg)

	ledgerService := ledger.New(postgresDB, ledger.Repositories{
		Sellers:     postgres.NewSellerRepository(log, postgresDB),
		Commissions: postgres.NewCommissionRepository(log, postgresDB),
		Withdrawals: postgres.NewWithdrawalRepository(log, postgresDB),
		Outbox:      outboxRepo,
	}, dashboardCache, ledgerMetrics, log, ledger.Options{
		CommissionRoundingUnit: cfg.Ledger.CommissionRoundingUnit,
		RecalculateConcurrency: cfg.Ledger.RecalculateConcurrency,
		RecalculatePageSize:    cfg.Ledger.RecalculatePageSize,
	})

	processingService, err := service.NewWorkerPoolProcessingService(
		service.NewProcessingService(ledgerService.Store, ledgerMetrics, log),
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to create worker pool", "error", err)
		os.Exit(1)
	}
	log.Info("Worker pool ready", "capacity", processingService.Capacity())

	dlqProducer, err := producers.NewDLQProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil when no DLQ topic is configured; keep the interface nil too.
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	eventProducer, err := producers.NewLedgerEventProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger event producer", "error", err)
		os.Exit(1)
	}

	orderEventHandler := consumer.NewOrderEventHandler(log, processingService, deadLetters)
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	publisher := outbox_poller.NewLedgerEventPublisher(outboxRepo, auditRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, publisher, ledgerMetrics, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, orderEventHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to order events", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	go func() {
		log.Info("Metrics endpoint listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
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

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Waiting for services to stop...")
	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	processingService.Shutdown()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping metrics server", "error", err)
	}
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}
	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing ledger event producer", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Order Processor shutdown with errors", "error", serviceErr)
		return
	}
	log.Info("Order Processor shutdown completed successfully")
}
